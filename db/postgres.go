package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// documentLockID is the pg_advisory_lock key guarding document writes.
const documentLockID int64 = 0x706f7274616c

// PostgresBackend stores the document as one TEXT row. TEXT keeps the key
// order of the serialized document; JSONB would not.
type PostgresBackend struct {
	pool *pgxpool.Pool
	name string
}

// InitDB initializes the PostgreSQL database connection pool
func InitDB(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Ping the database to verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Successfully connected to PostgreSQL database!")
	return pool, nil
}

// CreateSchema sets up the document table.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS portal_documents (
		name VARCHAR(64) PRIMARY KEY,
		body TEXT NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}
	return nil
}

// OpenPostgres connects, creates the schema and returns a backend for the
// "default" document row.
func OpenPostgres(ctx context.Context, connString string) (*PostgresBackend, error) {
	pool, err := InitDB(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := CreateSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresBackend{pool: pool, name: "default"}, nil
}

func (p *PostgresBackend) Read(ctx context.Context) ([]byte, error) {
	var body string
	err := p.pool.QueryRow(ctx, "SELECT body FROM portal_documents WHERE name = $1", p.name).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return []byte(body), nil
}

func (p *PostgresBackend) Write(ctx context.Context, data []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO portal_documents (name, body, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`, p.name, string(data))
	if err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	return nil
}

// Lock holds a session-level advisory lock on a dedicated connection.
func (p *PostgresBackend) Lock(ctx context.Context) (func(), error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", documentLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("advisory lock: %w", err)
	}
	return func() {
		if _, err := conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", documentLockID); err != nil {
			logrus.WithError(err).Error("failed to release document advisory lock")
		}
		conn.Release()
	}, nil
}

func (p *PostgresBackend) Close() error {
	p.pool.Close()
	return nil
}
