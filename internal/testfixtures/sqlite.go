package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/monitor-scheduler/internal/persistence"
	"github.com/example/monitor-scheduler/internal/persistence/memory"
	"github.com/example/monitor-scheduler/internal/persistence/sqlite"
	"github.com/example/monitor-scheduler/internal/persistence/sqlite/migration"
)

// StoreHarness wraps a persistence.Store for integration-style tests.
type StoreHarness struct {
	persistence.Store
	Name string

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *StoreHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a harness on a temporary database file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *StoreHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "monitor.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlite.Open(context.Background(), migration.TempFileTestSQLiteConfig(path), logger)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	harness := &StoreHarness{
		Store: store,
		Name:  "sqlite",
		cleanup: func() {
			_ = store.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}

// NewMemoryHarness constructs a harness on the in-process store.
func NewMemoryHarness(tb testing.TB) *StoreHarness {
	tb.Helper()
	store := memory.New()
	return &StoreHarness{Store: store, Name: "memory", cleanup: func() { _ = store.Close() }}
}

// StoreConstructors lists every store implementation so contract tests can
// run against each of them.
func StoreConstructors() map[string]func(testing.TB) *StoreHarness {
	return map[string]func(testing.TB) *StoreHarness{
		"memory": NewMemoryHarness,
		"sqlite": NewSQLiteHarness,
	}
}

// Seed stores users and rooms so schedules and entries can reference them.
func (h *StoreHarness) Seed(tb testing.TB, users []UserFixture, rooms []RoomFixture) {
	tb.Helper()
	ctx := context.Background()
	for _, u := range users {
		if err := h.CreateUser(ctx, u.Persistence()); err != nil {
			tb.Fatalf("seed user %s: %v", u.ID, err)
		}
	}
	for _, r := range rooms {
		if err := h.CreateRoom(ctx, r.Persistence()); err != nil {
			tb.Fatalf("seed room %s: %v", r.ID, err)
		}
	}
}
