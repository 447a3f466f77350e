package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/sqlite"
)

// ErrPathRequired is returned when no DSN is configured.
var ErrPathRequired = errors.New("oracle storage path must be configured")

// ErrNoSnapshot is returned when a token has never been aggregated.
var ErrNoSnapshot = errors.New("oracle snapshot not found")

// Storage records raw source samples and aggregated medians.
type Storage struct {
	db *sql.DB
}

// Open initialises the store from a sqlite DSN.
func Open(dsn string) (*Storage, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, ErrPathRequired
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordSample persists one source quote. price is a decimal string.
func (s *Storage) RecordSample(ctx context.Context, token, source, price string, observed, recorded time.Time) error {
	if s == nil {
		return fmt.Errorf("storage not configured")
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO oracle_samples(token, source, price, observed_at, recorded_at)
        VALUES(?, ?, ?, ?, ?)
    `, strings.ToUpper(strings.TrimSpace(token)), strings.ToLower(source), price, observed.UTC().Unix(), recorded.UTC())
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

// RecordSnapshot stores an aggregated median.
func (s *Storage) RecordSnapshot(ctx context.Context, snap Snapshot) error {
	if s == nil {
		return fmt.Errorf("storage not configured")
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO oracle_snapshots(token, median_price, feeders, proof_id, observed_at, recorded_at)
        VALUES(?, ?, ?, ?, ?, ?)
    `, strings.ToUpper(strings.TrimSpace(snap.Token)), snap.MedianPrice, strings.Join(snap.Feeders, ","), snap.ProofID, snap.ObservedAt.UTC().Unix(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent median for token.
func (s *Storage) LatestSnapshot(ctx context.Context, token string) (Snapshot, error) {
	result := Snapshot{Token: strings.ToUpper(strings.TrimSpace(token))}
	if s == nil {
		return result, fmt.Errorf("storage not configured")
	}
	row := s.db.QueryRowContext(ctx, `
        SELECT median_price, feeders, proof_id, observed_at
        FROM oracle_snapshots
        WHERE token = ?
        ORDER BY id DESC
        LIMIT 1
    `, result.Token)
	var feeders string
	var observed int64
	if err := row.Scan(&result.MedianPrice, &feeders, &result.ProofID, &observed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, ErrNoSnapshot
		}
		return result, fmt.Errorf("query snapshot: %w", err)
	}
	result.ObservedAt = time.Unix(observed, 0).UTC()
	if feeders != "" {
		result.Feeders = strings.Split(feeders, ",")
	}
	return result, nil
}

// PruneSamples deletes raw samples observed before cutoff.
func (s *Storage) PruneSamples(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("storage not configured")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM oracle_samples WHERE observed_at < ?`, cutoff.UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("prune samples: %w", err)
	}
	return res.RowsAffected()
}

// Snapshot is one aggregated oracle price.
type Snapshot struct {
	Token       string
	MedianPrice string
	Feeders     []string
	ProofID     string
	ObservedAt  time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS oracle_samples (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    token TEXT NOT NULL,
    source TEXT NOT NULL,
    price TEXT NOT NULL,
    observed_at INTEGER NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_oracle_samples_token_ts ON oracle_samples(token, observed_at);

CREATE TABLE IF NOT EXISTS oracle_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    token TEXT NOT NULL,
    median_price TEXT NOT NULL,
    feeders TEXT NOT NULL,
    proof_id TEXT NOT NULL,
    observed_at INTEGER NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_oracle_snapshots_token_ts ON oracle_snapshots(token, observed_at);
`
