package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

// ReadJSON streams a JSON array of transactions from r into p in batches
// of the pipeline's batch size. It returns the number of records pushed.
func ReadJSON(ctx context.Context, r io.Reader, p *Pipeline) (int, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return 0, fmt.Errorf("failed to read dataset: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return 0, fmt.Errorf("dataset must be a JSON array")
	}

	pushed := 0
	batch := make([]models.Transaction, 0, p.BatchSize())
	for dec.More() {
		var t models.Transaction
		if err := dec.Decode(&t); err != nil {
			return pushed, fmt.Errorf("failed to decode transaction %d: %w", pushed+len(batch), err)
		}
		batch = append(batch, t)

		if len(batch) == p.BatchSize() {
			if err := p.Push(ctx, batch); err != nil {
				return pushed, err
			}
			pushed += len(batch)
			batch = make([]models.Transaction, 0, p.BatchSize())
		}
	}
	if _, err := dec.Token(); err != nil {
		return pushed, fmt.Errorf("failed to read dataset: %w", err)
	}

	if err := p.Push(ctx, batch); err != nil {
		return pushed, err
	}
	return pushed + len(batch), nil
}
