package database

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the valuation schema migrations to the DVF+
// database at url.
func Migrate(ctx context.Context, url string, logger *logrus.Logger) error {
	connCfg, err := pgx.ParseConfig(url)
	if err != nil {
		return retrievalError("parse database url", err)
	}
	db := stdlib.OpenDB(*connCfg)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	goose.SetTableName("valuation_goose_db_version")
	if err := goose.SetDialect("postgres"); err != nil {
		return retrievalError("migrate", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return retrievalError("migrate", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return retrievalError("migrate", err)
	}
	logger.WithField("version", version).Info("PostGIS migrations applied")
	return nil
}
