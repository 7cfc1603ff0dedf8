package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"
)

const defaultSecretTable = "secure_store"

// PostgresStoreConfig captures configuration required to initialize a Postgres-backed store.
type PostgresStoreConfig struct {
	DSN    string
	Schema string
	Table  string
}

// PostgresStore persists one row per credential key. The content column holds the
// already sealed value; the table never sees plaintext tokens.
type PostgresStore struct {
	db  *sql.DB
	cfg PostgresStoreConfig
}

// NewPostgresStore establishes a connection to PostgreSQL.
func NewPostgresStore(ctx context.Context, cfg PostgresStoreConfig) (*PostgresStore, error) {
	trimmedDSN := strings.TrimSpace(cfg.DSN)
	if trimmedDSN == "" {
		return nil, fmt.Errorf("postgres store: DSN is required")
	}
	cfg.DSN = trimmedDSN
	if strings.TrimSpace(cfg.Table) == "" {
		cfg.Table = defaultSecretTable
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres store: open database connection: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres store: ping database: %w", err)
	}
	return &PostgresStore{db: db, cfg: cfg}, nil
}

// Close releases the underlying database connection.
func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureSchema creates the secret table (and schema when provided).
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store: not initialized")
	}
	if schema := strings.TrimSpace(s.cfg.Schema); schema != "" {
		query := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quoteIdentifier(schema))
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("postgres store: create schema: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, s.createTableQuery()); err != nil {
		return fmt.Errorf("postgres store: create secret table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.upsertQuery(), key, value); err != nil {
		return fmt.Errorf("postgres store: upsert %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Retrieve(ctx context.Context, key string) (string, bool, error) {
	var content string
	err := s.db.QueryRowContext(ctx, s.selectQuery(), key).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("postgres store: select %s: %w", key, err)
	}
	return content, true, nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, s.deleteQuery(), key)
	if err != nil {
		return fmt.Errorf("postgres store: delete %s: %w", key, err)
	}
	if n, errRows := res.RowsAffected(); errRows == nil && n == 0 {
		log.WithField("store", "postgres").Debugf("delete %s: no row", key)
	}
	return nil
}

func (s *PostgresStore) createTableQuery() string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, s.fullTableName(s.cfg.Table))
}

func (s *PostgresStore) upsertQuery() string {
	return fmt.Sprintf(`
		INSERT INTO %s (id, content, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (id)
		DO UPDATE SET content = EXCLUDED.content, updated_at = NOW()
	`, s.fullTableName(s.cfg.Table))
}

func (s *PostgresStore) selectQuery() string {
	return fmt.Sprintf("SELECT content FROM %s WHERE id = $1", s.fullTableName(s.cfg.Table))
}

func (s *PostgresStore) deleteQuery() string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.fullTableName(s.cfg.Table))
}

func (s *PostgresStore) fullTableName(name string) string {
	if strings.TrimSpace(s.cfg.Schema) == "" {
		return quoteIdentifier(name)
	}
	return quoteIdentifier(s.cfg.Schema) + "." + quoteIdentifier(name)
}

func quoteIdentifier(identifier string) string {
	replaced := strings.ReplaceAll(identifier, "\"", "\"\"")
	return "\"" + replaced + "\""
}
