package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"crypto-donation-tracker/internal/domain/repository"
	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const milestoneFlagsTable = "milestone_flags"

// PostgresMilestoneRepository stores milestone flags in a single table
type PostgresMilestoneRepository struct {
	db         *sql.DB
	sqlBuilder sq.StatementBuilderType
	logger     *logger.Logger
}

// OpenPostgres opens the pool and makes sure the flag table exists, retrying
// while the database is still starting
func OpenPostgres(ctx context.Context, cfg *config.PostgresConfig, logger *logger.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("db open connection error: %w", err)
	}

	if err := pingWithRetry(ctx, db, pingAttempts, pingRetryDelay, logger); err != nil {
		db.Close()
		return nil, err
	}

	ddl := `CREATE TABLE IF NOT EXISTS ` + milestoneFlagsTable + ` (
		key     TEXT PRIMARY KEY,
		seen_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create %s: %w", milestoneFlagsTable, err)
	}

	return db, nil
}

const (
	pingAttempts   = 5
	pingRetryDelay = 2 * time.Second
)

type pinger interface {
	PingContext(ctx context.Context) error
}

// pingWithRetry waits for the database to accept connections. It gives up
// after attempts pings or as soon as ctx ends.
func pingWithRetry(ctx context.Context, db pinger, attempts int, delay time.Duration, logger *logger.Logger) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		logger.Warn("Database not ready yet, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return fmt.Errorf("cannot connect to database: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("cannot connect to database after retries: %w", err)
}

// NewPostgresMilestoneRepository creates a repository over an open pool
func NewPostgresMilestoneRepository(db *sql.DB, logger *logger.Logger) repository.MilestoneRepository {
	return &PostgresMilestoneRepository{
		db:         db,
		sqlBuilder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger:     logger.WithComponent("postgres-milestone-repo"),
	}
}

// HasSeen reports whether a row exists for key
func (r *PostgresMilestoneRepository) HasSeen(ctx context.Context, key string) (bool, error) {
	query, args, err := r.hasSeenQuery(key)
	if err != nil {
		return false, fmt.Errorf("build select flag: %w", err)
	}

	var seen bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&seen); err != nil {
		return false, fmt.Errorf("select flag: %w", err)
	}
	return seen, nil
}

// MarkSeen inserts the flag row; an existing row is left untouched
func (r *PostgresMilestoneRepository) MarkSeen(ctx context.Context, key string) error {
	query, args, err := r.markSeenQuery(key, time.Now())
	if err != nil {
		return fmt.Errorf("build insert flag: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec insert flag: %w", err)
	}

	r.logger.Debug("Milestone flag persisted", zap.String("key", key))
	return nil
}

// Reset deletes every flag row
func (r *PostgresMilestoneRepository) Reset(ctx context.Context) (int64, error) {
	query, args, err := r.resetQuery()
	if err != nil {
		return 0, fmt.Errorf("build delete flags: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec delete flags: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	r.logger.Info("Milestone flags deleted", zap.Int64("count", deleted))
	return deleted, nil
}

func (r *PostgresMilestoneRepository) hasSeenQuery(key string) (string, []interface{}, error) {
	return r.sqlBuilder.
		Select("COUNT(*) > 0").
		From(milestoneFlagsTable).
		Where(sq.Eq{"key": key}).
		ToSql()
}

func (r *PostgresMilestoneRepository) markSeenQuery(key string, at time.Time) (string, []interface{}, error) {
	return r.sqlBuilder.
		Insert(milestoneFlagsTable).
		Columns("key", "seen_at").
		Values(key, at).
		Suffix("ON CONFLICT (key) DO NOTHING").
		ToSql()
}

func (r *PostgresMilestoneRepository) resetQuery() (string, []interface{}, error) {
	return r.sqlBuilder.Delete(milestoneFlagsTable).ToSql()
}
