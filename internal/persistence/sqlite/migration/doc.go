// Package migration applies versioned SQL schema changes to a SQLite
// database.
//
// Migration files follow the naming convention {version}_{description}.sql
// (e.g. "001_initial_schema.sql") and are read from an fs.FS, normally an
// embedded directory. Applied versions are tracked in a schema_migrations
// table together with a BLAKE2b checksum of the file, so a migration edited
// after it ran is reported instead of silently skipped.
//
// Example usage:
//
//	manager := migration.NewMigrationManager(migration.NewFileScanner(files), migration.NewSQLiteExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
