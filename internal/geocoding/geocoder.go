package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNoResults is returned by First when the address matches nothing.
var ErrNoResults = errors.New("no geocoding results")

// Candidate is one possible location for a free-text address.
type Candidate struct {
	FormattedAddress string  `json:"formatted_address"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
}

type Config struct {
	BaseURL      string
	UserAgent    string
	CountryCodes []string
	Limit        int
	CacheDir     string
	// Minimum spacing between upstream requests
	MinInterval time.Duration
}

type Geocoder struct {
	logger      *logrus.Logger
	cfg         Config
	cache       map[string][]Candidate
	cacheLock   sync.RWMutex
	client      *http.Client
	throttle    sync.Mutex
	lastRequest time.Time
}

func NewGeocoder(logger *logrus.Logger, cfg Config) *Geocoder {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}

	g := &Geocoder{
		logger: logger,
		cfg:    cfg,
		cache:  make(map[string][]Candidate),
		client: &http.Client{Timeout: 10 * time.Second},
	}

	if cfg.CacheDir != "" {
		if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
			logger.WithError(err).Warn("Could not create geocode cache directory")
		}
		g.loadCache()
	}

	return g
}

func (g *Geocoder) cacheFile() string {
	return filepath.Join(g.cfg.CacheDir, "geocode_cache.json")
}

func (g *Geocoder) loadCache() {
	data, err := os.ReadFile(g.cacheFile())
	if err != nil {
		if !os.IsNotExist(err) {
			g.logger.Warnf("Could not load geocode cache: %v", err)
		}
		return
	}

	if err := json.Unmarshal(data, &g.cache); err != nil {
		g.logger.Errorf("Failed to parse geocode cache: %v", err)
		return
	}

	g.logger.Infof("Loaded %d cached addresses", len(g.cache))
}

func (g *Geocoder) saveCache() {
	if g.cfg.CacheDir == "" {
		return
	}

	g.cacheLock.RLock()
	data, err := json.Marshal(g.cache)
	g.cacheLock.RUnlock()
	if err != nil {
		g.logger.Errorf("Failed to marshal geocode cache: %v", err)
		return
	}

	if err := os.WriteFile(g.cacheFile(), data, 0644); err != nil {
		g.logger.Errorf("Failed to save geocode cache: %v", err)
		return
	}

	g.logger.Debug("Saved geocode cache to disk")
}

type nominatimResponse []struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

func cacheKey(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

// wait enforces Nominatim's one request per second usage policy.
func (g *Geocoder) wait(ctx context.Context) error {
	g.throttle.Lock()
	defer g.throttle.Unlock()

	if delay := g.cfg.MinInterval - time.Since(g.lastRequest); delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	g.lastRequest = time.Now()
	return nil
}

// Geocode returns up to Limit candidates for address. An address with no
// match yields an empty slice and no error.
func (g *Geocoder) Geocode(ctx context.Context, address string) ([]Candidate, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return []Candidate{}, nil
	}
	key := cacheKey(address)

	g.cacheLock.RLock()
	if cached, ok := g.cache[key]; ok {
		g.cacheLock.RUnlock()
		g.logger.WithFields(logrus.Fields{
			"address": address,
			"count":   len(cached),
			"source":  "cache",
		}).Debug("Found candidates in cache")
		return append([]Candidate(nil), cached...), nil
	}
	g.cacheLock.RUnlock()

	g.logger.WithField("address", address).Info("Geocoding address with Nominatim")

	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"q":              []string{address},
		"format":         []string{"json"},
		"limit":          []string{strconv.Itoa(g.cfg.Limit)},
		"addressdetails": []string{"1"},
	}
	if len(g.cfg.CountryCodes) > 0 {
		params.Set("countrycodes", strings.Join(g.cfg.CountryCodes, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(g.cfg.BaseURL, "/")+"/search", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", g.cfg.UserAgent)
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).WithField("address", address).Error("Geocoding request failed")
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.WithFields(logrus.Fields{
			"address": address,
			"status":  resp.StatusCode,
		}).Error("Geocoding request rejected")
		return nil, fmt.Errorf("geocoding request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		g.logger.WithError(err).WithField("address", address).Error("Failed to read response")
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result nominatimResponse
	if err := json.Unmarshal(body, &result); err != nil {
		g.logger.WithError(err).WithField("address", address).Error("Failed to parse response")
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	candidates := make([]Candidate, 0, len(result))
	for _, r := range result {
		lat, errLat := strconv.ParseFloat(r.Lat, 64)
		lon, errLon := strconv.ParseFloat(r.Lon, 64)
		if errLat != nil || errLon != nil {
			g.logger.WithField("address", address).Warn("Skipping result with invalid coordinates")
			continue
		}
		candidates = append(candidates, Candidate{
			FormattedAddress: r.DisplayName,
			Latitude:         lat,
			Longitude:        lon,
		})
	}

	if len(candidates) == 0 {
		g.logger.WithField("address", address).Warn("No results found")
		return candidates, nil
	}

	g.logger.WithFields(logrus.Fields{
		"address":   address,
		"count":     len(candidates),
		"latitude":  candidates[0].Latitude,
		"longitude": candidates[0].Longitude,
		"source":    "nominatim",
	}).Info("Successfully geocoded address")

	g.cacheLock.Lock()
	g.cache[key] = candidates
	g.cacheLock.Unlock()
	g.saveCache()

	return append([]Candidate(nil), candidates...), nil
}

// First returns the best candidate for address, or ErrNoResults.
func (g *Geocoder) First(ctx context.Context, address string) (Candidate, error) {
	candidates, err := g.Geocode(ctx, address)
	if err != nil {
		return Candidate{}, err
	}
	if len(candidates) == 0 {
		return Candidate{}, fmt.Errorf("%w for address %q", ErrNoResults, address)
	}
	return candidates[0], nil
}
