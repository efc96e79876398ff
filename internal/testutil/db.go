// Package testutil wires an in-memory sqlite store for tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"dog-catalog/internal/core/database"
	"dog-catalog/internal/domain"
)

// Clock returns a clock that advances one second per call, so created_at
// ordering and updated_at changes are deterministic.
func Clock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

// SQLiteOpts is a single-connection in-memory database; one connection keeps
// the memory database alive for the whole test.
func SQLiteOpts() database.Opts {
	return database.Opts{
		Driver:                 "sqlite",
		DSN:                    "file::memory:",
		MaxOpenConns:           1,
		MaxIdleConns:           1,
		ServerSelectionTimeout: 5 * time.Second,
		SocketTimeout:          5 * time.Second,
		HealthInterval:         time.Hour,
		LogLevel:               "silent",
		NowFunc:                Clock(),
	}
}

// NewManager returns a migrated manager that is closed with the test.
func NewManager(t testing.TB) *database.Manager {
	t.Helper()
	m := database.NewManager(SQLiteOpts(), nil)
	m.OnConnect = func(ctx context.Context, db *gorm.DB) error {
		return db.WithContext(ctx).AutoMigrate(domain.Models()...)
	}
	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire sqlite: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// DownManager returns a manager whose store can never be reached.
func DownManager(t testing.TB) *database.Manager {
	t.Helper()
	o := SQLiteOpts()
	o.Driver = "postgres"
	o.DSN = "postgres://nobody:x@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"
	o.ServerSelectionTimeout = 500 * time.Millisecond
	m := database.NewManager(o, nil)
	t.Cleanup(func() { _ = m.Close() })
	return m
}
