package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jbcholat-Dev/Estimation-immo/config"
	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

// ComparableFinder retrieves candidate transactions around a point.
// Implementations order results by distance ascending then sale date
// descending, cap them at the query limit and return an empty slice when
// nothing matches.
type ComparableFinder interface {
	FindCandidates(ctx context.Context, q CandidateQuery) ([]models.Transaction, error)
}

// Store is a ComparableFinder with a managed connection lifetime.
type Store interface {
	ComparableFinder
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the store selected by the database configuration.
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostGIS:
		store, err := NewPostGISStore(ctx, PostGISConfig{
			URL:          cfg.Database.URL,
			Schema:       cfg.Database.Schema,
			MaxConns:     cfg.Database.MaxConns,
			QueryTimeout: cfg.Database.QueryTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverSQLite:
		store, err := NewSQLiteStore(cfg.Database.Path, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
