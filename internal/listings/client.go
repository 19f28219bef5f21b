package listings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/jbcholat-Dev/Estimation-immo/internal/geocoding"
	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

var (
	// ErrClientDisabled means no API key was configured.
	ErrClientDisabled = errors.New("listing search is disabled: no API key")
	// ErrRateLimited is returned when the API keeps answering 429.
	ErrRateLimited = errors.New("listing search rate limited")
)

// Geocoder resolves listing addresses that come back without coordinates.
type Geocoder interface {
	First(ctx context.Context, address string) (geocoding.Candidate, error)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
	MaxResults  int
}

// Query describes the for-sale listings to look for.
type Query struct {
	City         string  `json:"city"`
	PostalCode   string  `json:"postal_code"`
	PropertyType string  `json:"property_type"`
	PriceMin     float64 `json:"price_min"`
	PriceMax     float64 `json:"price_max"`
	RadiusKm     float64 `json:"radius_km"`
}

// Client searches current listings through a chat-completions API. It is
// safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	geocoder   Geocoder
	logger     *logrus.Logger
}

func NewClient(cfg Config, geocoder Geocoder, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.perplexity.ai"
	}
	if cfg.Model == "" {
		cfg.Model = "sonar"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg:      cfg,
		geocoder: geocoder,
		logger:   logger,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != ""
}

// Search returns the listings found for q. Every upstream failure is
// logged and turned into an empty result.
func (c *Client) Search(ctx context.Context, q Query) []models.Listing {
	fields := logrus.Fields{"city": q.City, "postal_code": q.PostalCode}

	content, err := c.complete(ctx, buildSearchPrompt(q))
	if err != nil {
		if errors.Is(err, ErrClientDisabled) {
			c.logger.WithFields(fields).Error("Listing search client is not configured")
		} else {
			c.logger.WithError(err).WithFields(fields).Warn("Listing search returned no usable response")
		}
		return []models.Listing{}
	}

	listings, err := parseListings(content)
	if err != nil {
		c.logger.WithError(err).WithFields(fields).Warn("Failed to parse listing search response")
		return []models.Listing{}
	}

	valid := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if err := l.Validate(); err != nil {
			c.logger.WithError(err).WithField("address", l.Address).Warn("Skipping invalid listing")
			continue
		}
		valid = append(valid, l)
	}
	if c.cfg.MaxResults > 0 && len(valid) > c.cfg.MaxResults {
		valid = valid[:c.cfg.MaxResults]
	}

	c.enrich(ctx, valid)

	c.logger.WithFields(fields).WithField("count", len(valid)).Info("Listing search completed")
	return valid
}

// enrich fills missing coordinates with the first geocoding candidate.
func (c *Client) enrich(ctx context.Context, listings []models.Listing) {
	if c.geocoder == nil {
		return
	}
	for i := range listings {
		if listings[i].HasCoordinates() {
			continue
		}
		candidate, err := c.geocoder.First(ctx, listings[i].Address)
		if err != nil {
			c.logger.WithError(err).WithField("address", listings[i].Address).Warn("Geocoding failed for listing")
			continue
		}
		lat, lon := candidate.Latitude, candidate.Longitude
		listings[i].Latitude = &lat
		listings[i].Longitude = &lon
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete sends prompt and returns the first choice's content, retrying
// timeouts, transport errors, 429 and 5xx with exponential backoff.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if !c.Enabled() {
		return "", ErrClientDisabled
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.2,
		TopP:        0.9,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	backoff := retry.WithMaxRetries(uint64(c.cfg.MaxAttempts-1), retry.NewExponential(c.cfg.RetryDelay))

	var content string
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		var err error
		content, err = c.attempt(ctx, body)
		if err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"attempt":      attempt,
				"max_attempts": c.cfg.MaxAttempts,
			}).Warn("Listing search attempt failed")
		}
		return err
	})
	return content, err
}

func (c *Client) attempt(ctx context.Context, body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTransient(err) {
			return "", retry.RetryableError(fmt.Errorf("request failed: %w", err))
		}
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", retry.RetryableError(fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", retry.RetryableError(ErrRateLimited)
	case resp.StatusCode >= 500:
		return "", retry.RetryableError(fmt.Errorf("listing API error (status %d)", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("listing API error (status %d): %s", resp.StatusCode, string(payload))
	}

	var response chatResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("empty completion content")
	}
	return content, nil
}

// isTransient reports timeouts and socket-level connection failures. A
// caller cancellation or a malformed request (bad scheme, TLS verification)
// is final.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
