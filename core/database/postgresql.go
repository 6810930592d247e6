package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"group-scheduler/core/config"
	"group-scheduler/core/logger"
	"group-scheduler/migrations"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type IDatabase interface {
	ExecContext(ctx context.Context, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	SQLx() *sqlx.DB
}

type Database struct {
	sqlx *sqlx.DB
}

// New wraps an existing connection, e.g. one opened by sqlmock in tests.
func New(db *sqlx.DB) Database {
	return Database{sqlx: db}
}

func InitDB(cfg config.DatabaseConfig) (Database, error) {
	logger.Info("Initializing database...")

	sqlxDB, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		return Database{}, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB := sqlxDB.DB
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if err = sqlDB.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		return Database{}, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database initialized successfully",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.DBName,
		"user", cfg.User,
		"maxOpenConns", cfg.MaxOpenConns,
		"maxIdleConns", cfg.MaxIdleConns,
		"connMaxLifetime", cfg.ConnMaxLifetimeMinutes,
	)

	db := Database{sqlx: sqlxDB}
	if cfg.AutoMigrate {
		if err := db.Migrate(context.Background()); err != nil {
			return Database{}, err
		}
	}
	return db, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (d *Database) Migrate(ctx context.Context) error {
	for _, name := range migrations.Files() {
		body, err := migrations.Read(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := d.sqlx.ExecContext(ctx, body); err != nil {
			logger.Error("Database:Migrate", "file", name, "error", err)
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		logger.Info("Database:Migrate:Applied", "file", name)
	}
	return nil
}

func (d *Database) Close() error {
	if d.sqlx == nil {
		return nil
	}
	return d.sqlx.Close()
}

func (d *Database) ExecContext(ctx context.Context, query string, args ...any) error {
	_, err := d.sqlx.ExecContext(ctx, query, args...)
	return err
}

func (d *Database) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return d.sqlx.GetContext(ctx, dest, query, args...)
}

func (d *Database) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return d.sqlx.SelectContext(ctx, dest, query, args...)
}

func (d *Database) NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error) {
	return d.sqlx.NamedExecContext(ctx, query, arg)
}

func (d *Database) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return d.sqlx.BeginTxx(ctx, opts)
}

func (d *Database) SQLx() *sqlx.DB {
	return d.sqlx
}
