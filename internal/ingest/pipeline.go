package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

var ErrPipelineClosed = errors.New("ingest pipeline is closed")

// Loader persists one batch of transactions atomically.
type Loader interface {
	LoadDataset(ctx context.Context, transactions []models.Transaction) error
}

type Config struct {
	BatchSize   int
	Workers     int
	MaxAttempts int
	RetryDelay  time.Duration
}

// Stats counts what the workers did with the pushed batches.
type Stats struct {
	Batches      int `json:"batches"`
	Loaded       int `json:"loaded"`
	FailedBatch  int `json:"failed_batches"`
	FailedRecord int `json:"failed_records"`
}

// Pipeline fans transaction batches out to workers that write them through
// a Loader, retrying failed batches with exponential backoff.
type Pipeline struct {
	loader  Loader
	cfg     Config
	logger  *logrus.Logger
	batches chan []models.Transaction
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	statsMu sync.Mutex
	stats   Stats
}

func NewPipeline(loader Loader, cfg Config, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	return &Pipeline{
		loader:  loader,
		cfg:     cfg,
		logger:  logger,
		batches: make(chan []models.Transaction, cfg.Workers*2),
	}
}

func (p *Pipeline) BatchSize() int {
	return p.cfg.BatchSize
}

// Start launches the workers. They exit once Close drains the queue or ctx
// is cancelled.
func (p *Pipeline) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.work(ctx, i)
	}
}

// Push queues a batch, blocking while every worker is busy.
func (p *Pipeline) Push(ctx context.Context, batch []models.Transaction) error {
	if len(batch) == 0 {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPipelineClosed
	}

	select {
	case p.batches <- batch:
		p.logger.WithField("batch_size", len(batch)).Debug("Pushed batch to ingest queue")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting batches and waits for the workers to finish.
func (p *Pipeline) Close() Stats {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.batches)
	}
	p.mu.Unlock()

	p.wg.Wait()

	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

func (p *Pipeline) work(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-p.batches:
			if !ok {
				return
			}
			err := p.loadBatch(ctx, batch)

			p.statsMu.Lock()
			p.stats.Batches++
			if err != nil {
				p.stats.FailedBatch++
				p.stats.FailedRecord += len(batch)
			} else {
				p.stats.Loaded += len(batch)
			}
			p.statsMu.Unlock()

			if err != nil {
				p.logger.WithError(err).WithField("worker", id).Error("Failed to load batch")
			}
		}
	}
}

func (p *Pipeline) loadBatch(ctx context.Context, batch []models.Transaction) error {
	backoff := retry.WithMaxRetries(uint64(p.cfg.MaxAttempts-1), retry.NewExponential(p.cfg.RetryDelay))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := p.loader.LoadDataset(ctx, batch); err != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{
				"attempt":      attempt,
				"max_attempts": p.cfg.MaxAttempts,
				"batch_size":   len(batch),
			}).Warn("Batch load attempt failed")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load batch after %d attempts: %w", attempt, err)
	}

	p.logger.WithField("batch_size", len(batch)).Info("Loaded transaction batch")
	return nil
}
