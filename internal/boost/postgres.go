package boost

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time interface check.
var _ Persister = (*PostgresStore)(nil)

// PostgresStore persists boosting words in a boost_words table. All methods
// are safe for concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore establishes a connection pool to the PostgreSQL database
// at dsn and ensures the boost_words table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("boost postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("boost postgres: ping: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS boost_words (
		    domain TEXT             NOT NULL,
		    word   TEXT             NOT NULL,
		    boost  DOUBLE PRECISION NOT NULL,
		    PRIMARY KEY (domain, word)
		)`
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("boost postgres: migrate: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Ping reports whether the database is reachable. Used by readiness probes.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close releases all connections held by the underlying pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// Load implements Persister.
func (p *PostgresStore) Load(ctx context.Context) (map[string]map[string]float64, error) {
	const q = `SELECT domain, word, boost FROM boost_words`

	rows, err := p.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("boost postgres: load: %w", err)
	}
	defer rows.Close()

	domains := map[string]map[string]float64{}
	for rows.Next() {
		var (
			domain, word string
			b            float64
		)
		if err := rows.Scan(&domain, &word, &b); err != nil {
			return nil, fmt.Errorf("boost postgres: scan: %w", err)
		}
		if domains[domain] == nil {
			domains[domain] = map[string]float64{}
		}
		domains[domain][word] = b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("boost postgres: load rows: %w", err)
	}
	return domains, nil
}

// Upsert implements Persister. All words are written in one transaction.
func (p *PostgresStore) Upsert(ctx context.Context, domain string, words map[string]float64) error {
	const q = `
		INSERT INTO boost_words (domain, word, boost)
		VALUES ($1, $2, $3)
		ON CONFLICT (domain, word) DO UPDATE SET boost = EXCLUDED.boost`

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		for w, b := range words {
			if _, err := tx.Exec(ctx, q, domain, w, b); err != nil {
				return fmt.Errorf("boost postgres: upsert %q: %w", w, err)
			}
		}
		return nil
	})
}

// Delete implements Persister.
func (p *PostgresStore) Delete(ctx context.Context, domain string, words []string) error {
	const q = `DELETE FROM boost_words WHERE domain = $1 AND word = ANY($2)`

	if _, err := p.pool.Exec(ctx, q, domain, words); err != nil {
		return fmt.Errorf("boost postgres: delete: %w", err)
	}
	return nil
}
