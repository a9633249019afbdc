// Package dbtest provides isolated in-memory databases for tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storefront/internal/db"
)

// New returns a migrated and seeded in-memory SQLite database private to t.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := db.Open("sqlite", dsn)
	require.NoError(t, err, "open test database")

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb), "migrate test database")
	require.NoError(t, db.Seed(gdb), "seed test database")
	return gdb
}
