package db_test

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/db"
	"storefront/internal/db/dbtest"
	"storefront/internal/models"
)

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := db.Open("oracle", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestSeed_IsIdempotent(t *testing.T) {
	gdb := dbtest.New(t)

	require.NoError(t, db.Seed(gdb))

	var currencies []models.Currency
	require.NoError(t, gdb.Find(&currencies).Error)
	require.Len(t, currencies, 1)
	assert.Equal(t, models.DefaultCurrencyID, currencies[0].ID)
	assert.Equal(t, "USD", currencies[0].Code)
}

func TestDSN(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("DB_DSN", "dev.db")
	viper.Set("DB_HOST", "db")
	viper.Set("DB_USER", "shop")
	viper.Set("DB_PASSWORD", "secret")
	viper.Set("DB_NAME", "catalog")
	viper.Set("DB_PORT", "5433")

	assert.Equal(t, "dev.db", db.DSN("sqlite"))
	assert.Equal(t, "host=db user=shop password=secret dbname=catalog port=5433 sslmode=disable", db.DSN("postgres"))
}
