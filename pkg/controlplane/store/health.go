package store

import (
	"context"
	"fmt"
)

// Healthcheck pings the database.
func (s *GORMStore) Healthcheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// Path returns the SQLite database file, or "" for other backends.
func (s *GORMStore) Path() string {
	if s.config.Type != DatabaseTypeSQLite {
		return ""
	}
	return s.config.SQLite.Path
}

var _ Store = (*GORMStore)(nil)
