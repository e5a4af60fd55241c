package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/regatta-tracker/internal/common"
)

type Config struct {
	Driver           string // sqlite | postgres
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ConfigFrom maps the application database section.
func ConfigFrom(c common.DatabaseConfig) Config {
	return Config{
		Driver:           c.Driver,
		DSN:              c.DSN,
		MaxConns:         c.MaxConns,
		MinConns:         c.MinConns,
		MaxConnLifetime:  c.MaxConnLifetime,
		MaxConnIdleTime:  c.MaxConnIdleTime,
		DialTimeout:      c.DialTimeout,
		StatementTimeout: c.StatementTimeout,
	}
}

// DB is an open audit database. Pool is nil for sqlite.
type DB struct {
	Driver  *entsql.Driver
	Pool    *pgxpool.Pool
	dialect string
}

// SQL exposes the underlying *sql.DB.
func (d *DB) SQL() *sql.DB { return d.Driver.DB() }

// Dialect is the ent dialect name (postgres or sqlite3).
func (d *DB) Dialect() string { return d.dialect }

func (d *DB) builder() *entsql.DialectBuilder { return entsql.Dialect(d.dialect) }

// Open connects to postgres through a pgx pool, or to sqlite through
// database/sql, and wraps the result for the ent SQL builder.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case "postgres":
		return openPostgres(ctx, cfg, logger)
	case "sqlite", "":
		return openSQLite(ctx, cfg, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported database driver %q", cfg.Driver), common.ErrInvalidInput)
	}
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", "postgres")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "regatta-tracker"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

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

	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database", "driver", "postgres")
	return &DB{Driver: entsql.OpenDB(dialect.Postgres, db), Pool: pool, dialect: dialect.Postgres}, nil
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", "sqlite", "dsn", cfg.DSN)
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	// one connection: ":memory:" databases are per connection and sqlite
	// serializes writers anyway
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	logger.Info("successfully connected to database", "driver", "sqlite")
	return &DB{Driver: entsql.OpenDB(dialect.SQLite, db), dialect: dialect.SQLite}, nil
}

// Close closes the database connections gracefully
func Close(db *DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing database connections")
	if err := db.Driver.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
	if db.Pool != nil {
		db.Pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings with an optional timeout.
func HealthCheck(ctx context.Context, db *DB, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	logger.Debug("pinging database")
	if db.Pool != nil {
		if err := db.Pool.Ping(ctx); err != nil {
			return common.WrapError(err, "ping postgres")
		}
	} else if err := db.SQL().PingContext(ctx); err != nil {
		return common.WrapError(err, "ping sqlite")
	}
	logger.Debug("database ping successful")
	return nil
}

const jobsTable = "extract_jobs"

// Migrate creates the audit table and its indexes when missing.
func Migrate(ctx context.Context, db *DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	ts, js := "datetime", "text"
	if db.dialect == dialect.Postgres {
		ts, js = "timestamptz", "jsonb"
	}
	b := db.builder()
	col := func(name, typ string) *entsql.ColumnBuilder { return b.Column(name).Type(typ) }

	stmts := []entsql.Querier{
		b.CreateTable(jobsTable).IfNotExists().
			Columns(
				col("id", "varchar(36)").Attr("NOT NULL"),
				col("kind", "varchar(16)").Attr("NOT NULL"),
				col("content_hash", "varchar(64)").Attr("NOT NULL"),
				col("sail_number", "varchar(32)"),
				col("status", "varchar(16)").Attr("NOT NULL"),
				col("method", "varchar(32)"),
				col("success", "boolean").Attr("NOT NULL DEFAULT FALSE"),
				col("confidence", "varchar(8)"),
				col("rank", "integer"),
				col("total_participants", "integer"),
				col("amount", "double precision"),
				col("regatta_name", "text"),
				col("feedback", "text"),
				col("ocr_quality", "real"),
				col("result_json", js),
				col("error_message", "text"),
				col("started_at", ts).Attr("NOT NULL"),
				col("finished_at", ts),
			).
			PrimaryKey("id"),
		b.CreateIndex("extract_jobs_content_hash").IfNotExists().Table(jobsTable).Columns("content_hash"),
		b.CreateIndex("extract_jobs_kind_status_started").IfNotExists().Table(jobsTable).Columns("kind", "status", "started_at"),
	}
	for _, st := range stmts {
		q, args := st.Query()
		if _, err := db.SQL().ExecContext(ctx, q, args...); err != nil {
			logger.Error("migration failed", "statement", q, "error", err)
			return common.NewAppError("MIGRATION_ERROR", "create extract_jobs", err)
		}
	}
	logger.Info("database schema ready", "table", jobsTable)
	return nil
}
