package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/tracking-recovery/internal/trackingid"
)

const (
	keyPrefix     = "prefix"
	keyDateDigits = "date_digits"
)

type DBConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// SQLStore persists the grammar in a tracking_id_settings key/value table on
// Postgres (pgx) or SQLite, chosen by the DSN scheme.
type SQLStore struct {
	db     *sql.DB
	pool   *pgxpool.Pool // nil for SQLite
	logger *slog.Logger
}

// IsPostgres reports whether dsn addresses a Postgres server.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func OpenSQLStore(ctx context.Context, cfg DBConfig, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DSN == "" {
		return nil, invalid("SETTINGS_DB_URL is required", nil)
	}
	if !IsPostgres(cfg.DSN) {
		path := strings.TrimPrefix(cfg.DSN, "sqlite://")
		logger.Info("opening settings store", "driver", "sqlite", "path", path)
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
		return &SQLStore{db: db, logger: logger}, nil
	}

	logger.Info("opening settings store", "driver", "pgx")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "tracking-recovery"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	return &SQLStore{db: stdlib.OpenDBFromPool(pool), pool: pool, logger: logger}, nil
}

// Migrate creates the settings table if missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS tracking_id_settings (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("migrate settings: %w", err)
	}
	return nil
}

// Load returns the stored grammar; missing keys take their defaults.
func (s *SQLStore) Load(ctx context.Context) (trackingid.Config, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM tracking_id_settings WHERE key = $1 OR key = $2`, keyPrefix, keyDateDigits)
	if err != nil {
		return trackingid.Config{}, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	var cfg trackingid.Config
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return trackingid.Config{}, fmt.Errorf("scan settings: %w", err)
		}
		switch k {
		case keyPrefix:
			cfg.Prefix = v
		case keyDateDigits:
			if cfg.DateDigits, err = strconv.Atoi(v); err != nil {
				s.logger.Warn("ignoring malformed date_digits", "value", v)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return trackingid.Config{}, fmt.Errorf("read settings: %w", err)
	}
	return cfg.Normalized(), nil
}

// Save upserts both keys in one transaction.
func (s *SQLStore) Save(ctx context.Context, cfg trackingid.Config) error {
	if cfg.DateDigits != 6 && cfg.DateDigits != 8 {
		return invalid("date digits must be 6 or 8", nil)
	}
	cfg = cfg.Normalized()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, kv := range [][2]string{
		{keyPrefix, cfg.Prefix},
		{keyDateDigits, strconv.Itoa(cfg.DateDigits)},
	} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tracking_id_settings (key, value, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			kv[0], kv[1], now); err != nil {
			return errors.Join(fmt.Errorf("upsert %s: %w", kv[0], err), tx.Rollback())
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("tracking id settings saved", "prefix", cfg.Prefix, "date_digits", cfg.DateDigits)
	return nil
}

// HealthCheck pings the database.
func (s *SQLStore) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}
