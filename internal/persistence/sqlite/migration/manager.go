package migration

import (
	"context"
	"fmt"
	"log/slog"
)

// Source lists the migrations that should exist.
type Source interface {
	Scan() ([]Migration, error)
}

// Executor applies migrations to a database.
type Executor interface {
	InitializeVersionTable(ctx context.Context) error
	Apply(ctx context.Context, m Migration) error
	Applied(ctx context.Context) ([]AppliedMigration, error)
}

// Manager brings a database up to the latest migration.
type Manager struct {
	source   Source
	executor Executor
	logger   *slog.Logger
}

// NewManager wires a source and executor together.
func NewManager(source Source, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{source: source, executor: executor, logger: logger.With(slog.String("component", "migration"))}
}

// Run applies every pending migration in version order and stops at the
// first failure.
func (m *Manager) Run(ctx context.Context) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}

	if len(status.Pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date", slog.Int("version", status.CurrentVersion))
		return nil
	}

	for _, mig := range status.Pending {
		if err := m.executor.Apply(ctx, mig); err != nil {
			m.logger.ErrorContext(ctx, "migration failed",
				slog.Int("version", mig.Version),
				slog.String("file", mig.FilePath),
				slog.Any("error", err),
			)
			return err
		}
		m.logger.InfoContext(ctx, "migration applied",
			slog.Int("version", mig.Version),
			slog.String("description", mig.Description),
		)
	}
	return nil
}

// Status compares the files against schema_migrations.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}

	available, err := m.source.Scan()
	if err != nil {
		return Status{}, err
	}
	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, err
	}
	if err := validateSequence(available, applied); err != nil {
		return Status{}, err
	}

	appliedByVersion := make(map[int]AppliedMigration, len(applied))
	status := Status{Applied: applied}
	for _, rec := range applied {
		appliedByVersion[rec.Version] = rec
		if rec.Version > status.CurrentVersion {
			status.CurrentVersion = rec.Version
		}
	}
	for _, mig := range available {
		rec, ok := appliedByVersion[mig.Version]
		if !ok {
			status.Pending = append(status.Pending, mig)
			continue
		}
		if rec.Checksum != "" && rec.Checksum != mig.Checksum {
			return Status{}, newMigrationError(mig.Version, mig.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return status, nil
}

// validateSequence rejects gaps in the file versions and applied versions
// whose file has disappeared.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	known := make(map[int]bool, len(available))
	for i, mig := range available {
		known[mig.Version] = true
		if i > 0 && mig.Version != available[i-1].Version+1 {
			return fmt.Errorf("%w: missing migration version %03d", ErrVersionConflict, available[i-1].Version+1)
		}
	}
	for _, rec := range applied {
		if !known[rec.Version] {
			return fmt.Errorf("%w: applied migration %03d has no file", ErrVersionConflict, rec.Version)
		}
	}
	return nil
}
