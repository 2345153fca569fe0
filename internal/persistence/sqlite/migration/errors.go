package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrMigrationFailed is wrapped when a schema file fails to apply.
	ErrMigrationFailed = errors.New("migration execution failed")
	// ErrInvalidMigrationFile is wrapped when a file name or body cannot be parsed.
	ErrInvalidMigrationFile = errors.New("invalid migration file format")
	// ErrVersionConflict is wrapped when the database holds a version the
	// embedded files do not know.
	ErrVersionConflict = errors.New("migration version conflict")
	// ErrDuplicateVersion is wrapped when two files share a version prefix.
	ErrDuplicateVersion = errors.New("duplicate migration version")
	// ErrChecksumMismatch is wrapped when an applied file changed afterwards.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")
)

// MigrationError ties a failure to the schema file that caused it.
type MigrationError struct {
	Version   string
	FilePath  string
	Operation string
	Err       error
}

func (e *MigrationError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("migration error (%s): %s: %v", e.FilePath, e.Operation, e.Err)
	}
	return fmt.Sprintf("migration %s (%s): %s: %v", e.Version, e.FilePath, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// NewMigrationError builds a MigrationError.
func NewMigrationError(version, filePath, operation string, err error) *MigrationError {
	return &MigrationError{Version: version, FilePath: filePath, Operation: operation, Err: err}
}

// DatabaseError reports a failed statement against the schema_migrations
// bookkeeping table or a schema file.
type DatabaseError struct {
	Version   string
	Operation string
	Err       error
}

func (e *DatabaseError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("database error during %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("database error in migration %s during %s: %v", e.Version, e.Operation, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// NewDatabaseError builds a DatabaseError.
func NewDatabaseError(version, operation string, err error) *DatabaseError {
	return &DatabaseError{Version: version, Operation: operation, Err: err}
}
