package quota

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/ignite/bulksend/internal/domain"
)

const createQuotaTable = `
CREATE TABLE IF NOT EXISTS daily_quota (
	day DATE PRIMARY KEY,
	count_sent INT NOT NULL DEFAULT 0
)`

// PostgresStore keeps the quota state in a date-keyed table, one row
// per calendar day.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgresStore connects to Postgres with dsn, verifies the
// connection and ensures the quota table exists.
func OpenPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createQuotaTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring quota table: %w", err)
	}
	return NewPostgresStore(db), nil
}

// Load reads today's row. No row yet is a fresh start.
func (s *PostgresStore) Load(ctx context.Context) (domain.DailyQuotaState, error) {
	state := domain.DailyQuotaState{Date: domain.QuotaDate(time.Now())}

	err := s.db.QueryRowContext(ctx,
		`SELECT count_sent FROM daily_quota WHERE day = $1`, state.Date,
	).Scan(&state.CountSentToday)
	if err == sql.ErrNoRows {
		return domain.DailyQuotaState{}, nil
	}
	if err != nil {
		return domain.DailyQuotaState{}, fmt.Errorf("reading quota state: %w", err)
	}
	return state, nil
}

// Save upserts the state's day row.
func (s *PostgresStore) Save(ctx context.Context, state domain.DailyQuotaState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_quota (day, count_sent) VALUES ($1, $2)
		ON CONFLICT (day) DO UPDATE SET count_sent = EXCLUDED.count_sent
	`, state.Date, state.CountSentToday)
	if err != nil {
		return fmt.Errorf("writing quota state: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *PostgresStore) Close() error { return s.db.Close() }
