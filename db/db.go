package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DirectoryDB is a user directory stored in PostgreSQL.
type DirectoryDB struct {
	DB  *sql.DB
	Log *zerolog.Logger
}

// NewDirectoryDB opens and pings the database at source.
func NewDirectoryDB(source string, log *zerolog.Logger) (*DirectoryDB, error) {
	if source == "" {
		log.Error().Msg("database source is not set")
		return nil, fmt.Errorf("database source is not set")
	}

	// Open the database connection
	db, err := sql.Open("postgres", source)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open database connection")
		return nil, err
	}

	// Check we are actually connected
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Database connection failed during ping")
		db.Close()
		return nil, err
	}

	return &DirectoryDB{
		DB:  db,
		Log: log,
	}, nil
}

func (d *DirectoryDB) Close() error {
	if err := d.DB.Close(); err != nil {
		return err
	}
	d.Log.Info().Msg("database connection closed")
	return nil
}

// Migrate applies every pending schema migration.
func (d *DirectoryDB) Migrate() error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.Up(d.DB, "migrations"); err != nil {
		d.Log.Error().Err(err).Msg("failed to run migrations")
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Log.Info().Msg("Migrations applied successfully")
	return nil
}
