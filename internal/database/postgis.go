package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

// ComparableView is the view created by the migrations over the DVF+ table.
const ComparableView = "comparable_mutations"

// PostGISConfig configures the pgx pool behind PostGISStore.
type PostGISConfig struct {
	URL          string
	Schema       string
	MaxConns     int32
	QueryTimeout time.Duration
}

// PostGISStore runs candidate queries against the DVF+ PostGIS database.
type PostGISStore struct {
	pool    *pgxpool.Pool
	logger  *logrus.Logger
	view    string
	timeout time.Duration
	now     func() time.Time
}

// NewPostGISStore opens and pings a pgx pool.
func NewPostGISStore(ctx context.Context, cfg PostGISConfig, logger *logrus.Logger) (*PostGISStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, retrievalError("parse database url", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, retrievalError("connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, retrievalError("ping", err)
	}

	logger.WithField("schema", cfg.Schema).Info("Connected to PostGIS")
	return newPostGISStore(pool, cfg, logger), nil
}

func newPostGISStore(pool *pgxpool.Pool, cfg PostGISConfig, logger *logrus.Logger) *PostGISStore {
	schema := cfg.Schema
	if schema == "" {
		schema = "valuation"
	}
	return &PostGISStore{
		pool:    pool,
		logger:  logger,
		view:    pgx.Identifier{schema, ComparableView}.Sanitize(),
		timeout: cfg.QueryTimeout,
		now:     time.Now,
	}
}

const candidateSQL = `
    SELECT
        id,
        sale_date,
        sale_price::float8,
        built_surface::float8,
        type_label,
        nbmai1pp, nbmai2pp, nbmai3pp, nbmai4pp, nbmai5pp,
        nbapt1pp, nbapt2pp, nbapt3pp, nbapt4pp, nbapt5pp,
        nblocmut,
        COALESCE(energy_rating, ''),
        COALESCE(address, ''),
        COALESCE(postal_code, ''),
        COALESCE(commune, ''),
        ST_Y(geog::geometry),
        ST_X(geog::geometry),
        ST_Distance(geog, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) / 1000.0 AS distance_km
    FROM %s
    WHERE built_surface >= $3
      AND built_surface <= $4
      AND sale_price > 0
      AND type_label ILIKE '%%' || $5 || '%%'
      AND geog IS NOT NULL
      AND sale_date >= $6
      AND ST_DWithin(geog, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $7)
    ORDER BY distance_km ASC, sale_date DESC
    LIMIT $8
`

// buildCandidateSQL returns the query text and its positional arguments.
// Longitude comes first in ST_MakePoint; the radius is in metres.
func (s *PostGISStore) buildCandidateSQL(q CandidateQuery) (string, []any) {
	args := []any{
		q.Longitude,
		q.Latitude,
		q.SurfaceMin,
		q.SurfaceMax,
		q.Label(),
		q.SaleDateCutoff(s.now()),
		q.RadiusKm * 1000,
		q.Limit,
	}
	return fmt.Sprintf(candidateSQL, s.view), args
}

// FindCandidates runs the geodesic radius query.
func (s *PostGISStore) FindCandidates(ctx context.Context, q CandidateQuery) ([]models.Transaction, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	query, args := s.buildCandidateSQL(q)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, retrievalError("query candidates", err)
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0)
	for rows.Next() {
		var row mutationRow
		if err := rows.Scan(row.scanTargets()...); err != nil {
			return nil, retrievalError("scan candidate", err)
		}
		transactions = append(transactions, row.toTransaction())
	}
	if err := rows.Err(); err != nil {
		return nil, retrievalError("iterate candidates", err)
	}

	s.logger.WithFields(logrus.Fields{
		"latitude":   q.Latitude,
		"longitude":  q.Longitude,
		"radius_km":  q.RadiusKm,
		"type_label": q.Label(),
		"found":      len(transactions),
	}).Info("Retrieved comparable candidates")

	return transactions, nil
}

// Ping checks the pool can reach the server.
func (s *PostGISStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return retrievalError("ping", err)
	}
	return nil
}

// Close releases the pool resources.
func (s *PostGISStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
