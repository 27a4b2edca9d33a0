// Package testdb opens a throwaway migrated sqlite database for tests.
package testdb

import (
	"path/filepath"
	"testing"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/config"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// New returns a migrated database in t.TempDir(), closed on cleanup
func New(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := config.OpenSQLite(filepath.Join(t.TempDir(), "test.db"), gormlogger.Silent)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
