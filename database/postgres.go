package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

var DB *sql.DB

// Connect establishes the database connection and ensures the snapshot table
// exists. The database is optional infrastructure: callers treat a connect
// failure as "run memory-only" rather than fatal.
func Connect(dbURL string) error {
	var err error
	DB, err = sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(10)
	DB.SetMaxIdleConns(5)
	DB.SetConnMaxLifetime(30 * time.Minute)
	DB.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err = ensureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"max_open_conns": 10,
		"max_idle_conns": 5,
	}).Info("Connected to database successfully")

	return nil
}

func Close() {
	if DB != nil {
		DB.Close()
		logrus.Info("Database connection closed")
	}
}

func ensureSchema(ctx context.Context) error {
	_, err := DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ipo_batch_snapshots (
			category   TEXT PRIMARY KEY,
			payload    JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

// PostgresSnapshotStore persists one batch snapshot per category. It backs
// the batch cache so dashboard data survives restarts.
type PostgresSnapshotStore struct {
	db *sql.DB
}

// NewPostgresSnapshotStore creates a snapshot store over an open connection.
func NewPostgresSnapshotStore(db *sql.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

// SaveSnapshot upserts the snapshot for a category.
func (store *PostgresSnapshotStore) SaveSnapshot(ctx context.Context, category string, payload []byte, timestamp time.Time) error {
	_, err := store.db.ExecContext(ctx, `
		INSERT INTO ipo_batch_snapshots (category, payload, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (category) DO UPDATE SET
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at
	`, category, payload, timestamp)
	if err != nil {
		return fmt.Errorf("failed to save snapshot for %s: %w", category, err)
	}
	return nil
}

// LoadSnapshot reads the snapshot for a category. A missing row is not an
// error; found is false.
func (store *PostgresSnapshotStore) LoadSnapshot(ctx context.Context, category string) ([]byte, time.Time, bool, error) {
	var payload []byte
	var createdAt time.Time

	err := store.db.QueryRowContext(ctx, `
		SELECT payload, created_at FROM ipo_batch_snapshots WHERE category = $1
	`, category).Scan(&payload, &createdAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("failed to load snapshot for %s: %w", category, err)
	}

	return payload, createdAt, true, nil
}

// DeleteSnapshot removes the snapshot for a category. Deleting a missing row
// is a no-op.
func (store *PostgresSnapshotStore) DeleteSnapshot(ctx context.Context, category string) error {
	_, err := store.db.ExecContext(ctx, `
		DELETE FROM ipo_batch_snapshots WHERE category = $1
	`, category)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot for %s: %w", category, err)
	}
	return nil
}

// PruneSnapshotsOlderThan deletes snapshots past the given age and returns the
// number removed. Used by the cleanup job.
func (store *PostgresSnapshotStore) PruneSnapshotsOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	result, err := store.db.ExecContext(ctx, `
		DELETE FROM ipo_batch_snapshots WHERE created_at < $1
	`, time.Now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return result.RowsAffected()
}
