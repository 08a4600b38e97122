package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/viren/internal/oracle"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS altar_sessions (
	user_id     TEXT PRIMARY KEY,
	first_text  TEXT,
	second_text TEXT,
	surrendered BOOLEAN NOT NULL DEFAULT false,
	chosen_path TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// EnsureSchema creates the altar_sessions table if needed.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create altar_sessions: %w", err)
	}
	return nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanRecord(ctx context.Context, q rowQuerier, query, userID string) (Record, bool, error) {
	var (
		r    Record
		path string
	)
	err := q.QueryRow(ctx, query, userID).Scan(&r.UserID, &r.First, &r.Second, &r.Surrendered, &path, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	r.ChosenPath = oracle.Path(path)
	r.CreatedAt = r.CreatedAt.UTC()
	return r, true, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (Record, bool, error) {
	r, ok, err := scanRecord(ctx, s.pool, `
		SELECT user_id, first_text, second_text, surrendered, chosen_path, created_at
		FROM altar_sessions WHERE user_id = $1
	`, userID)
	if err != nil {
		return Record{}, false, fmt.Errorf("get session %s: %w", userID, err)
	}
	return r, ok, nil
}

// Upsert locks the row for the duration of fn. A missing row is materialized
// inside the transaction first so concurrent creators serialize on it; if fn
// fails the transaction rolls back and the row never becomes visible.
func (s *PostgresStore) Upsert(ctx context.Context, userID string, fn Mutator) (Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO altar_sessions (user_id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, s.now().UTC())
	if err != nil {
		return Record{}, fmt.Errorf("ensure session row: %w", err)
	}

	r, _, err := scanRecord(ctx, tx, `
		SELECT user_id, first_text, second_text, surrendered, chosen_path, created_at
		FROM altar_sessions WHERE user_id = $1
		FOR UPDATE
	`, userID)
	if err != nil {
		return Record{}, fmt.Errorf("lock session %s: %w", userID, err)
	}

	if err := fn(&r); err != nil {
		return Record{}, err
	}
	r.UserID = userID

	_, err = tx.Exec(ctx, `
		UPDATE altar_sessions
		SET first_text = $2, second_text = $3, surrendered = $4, chosen_path = $5, updated_at = now()
		WHERE user_id = $1
	`, userID, r.First, r.Second, r.Surrendered, string(r.ChosenPath))
	if err != nil {
		return Record{}, fmt.Errorf("update session %s: %w", userID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("commit: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) Reset(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM altar_sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete session %s: %w", userID, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
