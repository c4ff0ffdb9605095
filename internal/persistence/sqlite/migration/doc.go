// Package migration applies versioned SQL files to a SQLite database.
//
// Files are read from an fs.FS, normally an embed.FS compiled into the
// binary, and must be named {version}_{description}.sql. Applied versions are
// tracked in the schema_migrations table so each file runs exactly once, in
// ascending version order, inside its own transaction.
//
// Example usage:
//
//	manager := NewManager(NewScanner(files, "migrations"), NewSQLiteExecutor(db), logger)
//	if err := manager.Run(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
