// Package testdb opens throwaway SQLite databases for package tests.
package testdb

import (
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	seq       atomic.Int64
	unsafeDSN = regexp.MustCompile(`[^A-Za-z0-9_]+`)
)

// Open returns an in-memory database private to t with models migrated.
// The pool is pinned to one connection, so code under test must run its
// transactional work on the tx it was handed.
func Open(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("%s_%d", unsafeDSN.ReplaceAllString(t.Name(), "_"), seq.Add(1))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}
