package indexdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type Config struct {
	Dialect     Dialect
	SQLitePath  string
	PostgresDSN string
}

// ConfigFromEnv reads DB_DIALECT, DB_SQLITE_PATH and DB_POSTGRES_DSN (or
// DATABASE_URL). defaultPath is used when sqlite has no explicit path.
func ConfigFromEnv(defaultPath string) Config {
	c := Config{
		Dialect:     Dialect(strings.TrimSpace(strings.ToLower(os.Getenv("DB_DIALECT")))),
		SQLitePath:  strings.TrimSpace(os.Getenv("DB_SQLITE_PATH")),
		PostgresDSN: strings.TrimSpace(os.Getenv("DB_POSTGRES_DSN")),
	}
	if c.Dialect == "" {
		c.Dialect = DialectSQLite
	}
	if c.SQLitePath == "" {
		c.SQLitePath = defaultPath
	}
	if c.PostgresDSN == "" {
		c.PostgresDSN = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	return c
}

func openDB(ctx context.Context, cfg Config) (*sql.DB, error) {
	var driver, dsn string
	switch cfg.Dialect {
	case DialectSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("empty db path")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		driver, dsn = "sqlite", cfg.SQLitePath
	case DialectPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("DB_DIALECT=postgres requires DB_POSTGRES_DSN or DATABASE_URL")
		}
		driver, dsn = "pgx", cfg.PostgresDSN
	default:
		return nil, fmt.Errorf("unsupported DB_DIALECT %q", cfg.Dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Dialect, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", cfg.Dialect, err)
	}
	if cfg.Dialect == DialectSQLite {
		if err := initPragmas(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func initPragmas(ctx context.Context, db *sql.DB) error {
	// WAL suits the append-heavy event table.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

type sqlDialect Dialect

func (d sqlDialect) bind(pos int) string {
	if Dialect(d) == DialectPostgres {
		return fmt.Sprintf("$%d", pos)
	}
	return "?"
}

func (d sqlDialect) placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = d.bind(i + 1)
	}
	return strings.Join(ph, ", ")
}

func (d sqlDialect) insertQuery(table string, cols []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), d.placeholders(len(cols)))
}

// upsertQuery inserts or overwrites by key. Both dialects accept ON CONFLICT ... excluded.
func (d sqlDialect) upsertQuery(table, key string, cols []string) string {
	var set []string
	for _, c := range cols {
		if c != key {
			set = append(set, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s", d.insertQuery(table, cols), key, strings.Join(set, ", "))
}

func applyMigrations(ctx context.Context, db *sql.DB, d sqlDialect) error {
	create := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scan schema migration: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate schema migrations: %w", err)
	}
	rows.Close()

	files, err := fs.Glob(migrationFS, fmt.Sprintf("migrations/%s/*.sql", Dialect(d)))
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)
	for _, file := range files {
		base := filepath.Base(file)
		if applied[base] {
			continue
		}
		body, err := migrationFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration tx %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		q := d.insertQuery("schema_migrations", []string{"version", "applied_at"})
		if _, err := tx.ExecContext(ctx, q, base, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}
