package app

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/jbcholat-Dev/Estimation-immo/config"
	"github.com/jbcholat-Dev/Estimation-immo/internal/database"
	"github.com/jbcholat-Dev/Estimation-immo/internal/estimation"
	"github.com/jbcholat-Dev/Estimation-immo/internal/finance"
	"github.com/jbcholat-Dev/Estimation-immo/internal/geocoding"
	"github.com/jbcholat-Dev/Estimation-immo/internal/listings"
	"github.com/jbcholat-Dev/Estimation-immo/internal/valuation"
)

// App holds the wired components shared by the server and the CLI.
type App struct {
	Config   *config.Config
	Store    database.Store
	Rates    finance.RateTable
	Geocoder *geocoding.Geocoder
	Listings *listings.Client
	Service  *valuation.Service
	Logger   *logrus.Logger
}

// NewLogger returns a JSON logrus logger at the configured level.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithField("level", level).Warn("Unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// DefaultSearch converts the configured search bounds.
func DefaultSearch(cfg *config.Config) database.SearchParams {
	return database.SearchParams{
		RadiusKm:            cfg.Search.RadiusKm,
		YearsBack:           cfg.Search.YearsBack,
		SurfaceTolerancePct: cfg.Search.SurfaceTolerancePct,
		Limit:               cfg.Search.Limit,
	}
}

// New opens the store and builds the valuation pipeline. The caller owns
// Close.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	rates, err := config.LoadRateTable(cfg.Finance.RatesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load rate table: %w", err)
	}
	adjuster, err := finance.NewAdjuster(rates)
	if err != nil {
		return nil, err
	}

	scorer, err := estimation.NewScorer(estimation.DefaultWeights(), cfg.Search.RadiusKm, cfg.Search.YearsBack)
	if err != nil {
		return nil, err
	}
	estimator := estimation.NewEstimator(scorer, adjuster, cfg.Search.TopN, logger)

	geocoder := geocoding.NewGeocoder(logger, geocoding.Config{
		BaseURL:      cfg.Geocoder.BaseURL,
		UserAgent:    cfg.Geocoder.UserAgent,
		CountryCodes: cfg.Geocoder.CountryCodes,
		Limit:        cfg.Geocoder.Limit,
		CacheDir:     cfg.Geocoder.CacheDir,
		MinInterval:  cfg.Geocoder.MinInterval,
	})

	listingClient := listings.NewClient(listings.Config{
		APIKey:      cfg.Listings.APIKey,
		BaseURL:     cfg.Listings.BaseURL,
		Model:       cfg.Listings.Model,
		MaxAttempts: cfg.Listings.MaxAttempts,
		RetryDelay:  cfg.Listings.RetryDelay,
		Timeout:     cfg.Listings.Timeout,
		MaxResults:  cfg.Listings.MaxResults,
	}, geocoder, logger)
	if !listingClient.Enabled() {
		logger.Info("Listings API key not set, listing search disabled")
	}

	store, err := database.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.WithField("driver", cfg.Database.Driver).Info("Transactions store ready")

	service := valuation.NewService(store, estimator, listingClient, geocoder, DefaultSearch(cfg), logger)

	return &App{
		Config:   cfg,
		Store:    store,
		Rates:    rates,
		Geocoder: geocoder,
		Listings: listingClient,
		Service:  service,
		Logger:   logger,
	}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}
