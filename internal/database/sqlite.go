package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jbcholat-Dev/Estimation-immo/internal/geometry"
	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

// SQLiteDriverName is the go-sqlite3 driver with the geodesic_km function.
const SQLiteDriverName = "sqlite3_geo"

func init() {
	sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("geodesic_km", geometry.DistanceKmCoords, true)
		},
	})
}

// SQLiteStore serves candidate queries from an embedded DVF extract.
type SQLiteStore struct {
	db     *gorm.DB
	logger *logrus.Logger
	now    func() time.Time
}

// NewSQLiteStore opens the dataset at path and migrates the mutations table.
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.New(sqlite.Config{
		DriverName: SQLiteDriverName,
		DSN:        path,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, retrievalError("open sqlite", err)
	}

	store := &SQLiteStore{db: db, logger: logger, now: time.Now}
	if err := store.RunMigrations(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// RunMigrations creates the mutations table and its indexes.
func (s *SQLiteStore) RunMigrations() error {
	if err := s.db.AutoMigrate(&MutationRecord{}); err != nil {
		return retrievalError("migrate sqlite", err)
	}
	return nil
}

// LoadDataset inserts transactions in batches inside one transaction.
func (s *SQLiteStore) LoadDataset(ctx context.Context, transactions []models.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}
	records := make([]MutationRecord, 0, len(transactions))
	for _, t := range transactions {
		records = append(records, NewMutationRecord(t))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&records, 500).Error
	})
	if err != nil {
		return retrievalError("load dataset", err)
	}

	s.logger.WithField("count", len(records)).Info("Loaded transactions into dataset")
	return nil
}

const sqliteCandidateSQL = `
    SELECT
        id,
        sale_date,
        sale_price,
        built_surface,
        type_label,
        nbmai1pp, nbmai2pp, nbmai3pp, nbmai4pp, nbmai5pp,
        nbapt1pp, nbapt2pp, nbapt3pp, nbapt4pp, nbapt5pp,
        nblocmut,
        COALESCE(energy_rating, '') AS energy_rating,
        COALESCE(address, '') AS address,
        COALESCE(postal_code, '') AS postal_code,
        COALESCE(commune, '') AS commune,
        latitude,
        longitude,
        geodesic_km(?, ?, COALESCE(latitude, 0.0), COALESCE(longitude, 0.0)) AS distance_km
    FROM mutations
    WHERE latitude IS NOT NULL
      AND longitude IS NOT NULL
      AND built_surface >= ?
      AND built_surface <= ?
      AND sale_price > 0
      AND UPPER(type_label) LIKE '%' || ? || '%'
      AND sale_date >= ?
      AND geodesic_km(?, ?, COALESCE(latitude, 0.0), COALESCE(longitude, 0.0)) <= ?
    ORDER BY distance_km ASC, sale_date DESC
    LIMIT ?
`

// FindCandidates applies the same filters as the PostGIS query with the
// geodesic distance computed by the geodesic_km SQL function.
func (s *SQLiteStore) FindCandidates(ctx context.Context, q CandidateQuery) ([]models.Transaction, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var rows []mutationRow
	err := s.db.WithContext(ctx).Raw(sqliteCandidateSQL,
		q.Latitude,
		q.Longitude,
		q.SurfaceMin,
		q.SurfaceMax,
		q.Label(),
		q.SaleDateCutoff(s.now()),
		q.Latitude,
		q.Longitude,
		q.RadiusKm,
		q.Limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, retrievalError("query candidates", err)
	}

	transactions := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, row.toTransaction())
	}

	s.logger.WithFields(logrus.Fields{
		"latitude":   q.Latitude,
		"longitude":  q.Longitude,
		"radius_km":  q.RadiusKm,
		"type_label": q.Label(),
		"found":      len(transactions),
	}).Debug("Retrieved comparable candidates from dataset")

	return transactions, nil
}

// Ping checks the underlying connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return retrievalError("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return retrievalError("ping", err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
