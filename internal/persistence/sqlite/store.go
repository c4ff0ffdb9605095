// Package sqlite implements persistence.Store on an embedded SQLite database
// using the pure-Go modernc.org/sqlite driver. The schema is created by the
// versioned files under migrations/ on Open.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/monitor-scheduler/internal/persistence"
	"github.com/example/monitor-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store bundles the SQLite repositories behind persistence.Store.
type Store struct {
	*UserRepository
	*RoomRepository
	*ScheduleRepository
	*EntryRepository

	pool *ConnectionPool
}

var _ persistence.Store = (*Store)(nil)

// Open connects to the database, applies pending migrations and returns the store.
func Open(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Store, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}

	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(pool.DB()),
		logger,
	)
	if err := manager.Run(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	return &Store{
		UserRepository:     NewUserRepository(pool),
		RoomRepository:     NewRoomRepository(pool),
		ScheduleRepository: NewScheduleRepository(pool),
		EntryRepository:    NewEntryRepository(pool),
		pool:               pool,
	}, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

func stampCreated(created, updated *time.Time) {
	if created.IsZero() {
		*created = time.Now().UTC()
	}
	if updated.IsZero() {
		*updated = *created
	}
}

func stampUpdated(updated *time.Time) {
	if updated.IsZero() {
		*updated = time.Now().UTC()
	}
}
