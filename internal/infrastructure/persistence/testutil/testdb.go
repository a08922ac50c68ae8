// Package testutil provides sqlite-backed fixtures for repository and
// application tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cipherboy/candlepin/internal/domain/owner"
	"github.com/cipherboy/candlepin/internal/domain/product"
	"github.com/cipherboy/candlepin/internal/infrastructure/persistence/mappers"
	"github.com/cipherboy/candlepin/internal/infrastructure/persistence/models"
)

// NewTestDB opens a migrated in-memory database. A single connection keeps
// every caller on the same in-memory file and serializes writers the way a
// file-backed SQLite database would.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(models.All()...))
	return gdb
}

// SeedOwner inserts an owner row.
func SeedOwner(t testing.TB, gdb *gorm.DB, key string) *owner.Owner {
	t.Helper()
	o, err := owner.NewOwner(key, "")
	require.NoError(t, err)
	require.NoError(t, gdb.WithContext(context.Background()).Create(mappers.OwnerToModel(o)).Error)
	return o
}

// SeedProduct inserts a product row. multiplier may be nil.
func SeedProduct(t testing.TB, gdb *gorm.DB, id string, multiplier *int64) *product.Product {
	t.Helper()
	p, err := product.NewProduct(id, id, multiplier, nil)
	require.NoError(t, err)
	require.NoError(t, gdb.WithContext(context.Background()).Create(mappers.ProductToModel(p)).Error)
	return p
}

// Multiplier returns a pointer for SeedProduct.
func Multiplier(v int64) *int64 { return &v }

// Window returns a validity window around now.
func Window(now time.Time) (time.Time, time.Time) {
	return now.Add(-time.Hour).UTC(), now.AddDate(1, 0, 0).UTC()
}
