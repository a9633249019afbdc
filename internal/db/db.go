// Package db provides database connection and management functionality
package db

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storefront/internal/models"
)

// Setup opens the configured database, runs migrations and seeds reference
// data. Any failure is fatal.
func Setup() *gorm.DB {
	driver := viper.GetString("DB_DRIVER")

	gdb, err := Open(driver, DSN(driver))
	if err != nil {
		logrus.WithError(err).WithField("driver", driver).Fatal("Failed to connect to database")
	}

	if err := Migrate(gdb); err != nil {
		logrus.WithError(err).Fatal("Failed to migrate database")
	}

	if err := Seed(gdb); err != nil {
		logrus.WithError(err).Fatal("Failed to seed database")
	}

	logrus.WithField("driver", driver).Info("Database initialized successfully")
	return gdb
}

// DSN builds the connection string for driver from configuration.
func DSN(driver string) string {
	if driver == "sqlite" {
		return viper.GetString("DB_DSN")
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		viper.GetString("DB_HOST"),
		viper.GetString("DB_USER"),
		viper.GetString("DB_PASSWORD"),
		viper.GetString("DB_NAME"),
		viper.GetString("DB_PORT"),
	)
}

// Open connects to a postgres or sqlite database. Driver errors such as
// unique violations are translated to gorm's portable errors.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", driver)
	}
	return gdb, nil
}

// Migrate creates or updates the schema for all models.
func Migrate(gdb *gorm.DB) error {
	return errors.Wrap(gdb.AutoMigrate(models.All()...), "auto-migrate")
}

// Seed makes sure the default currency exists.
func Seed(gdb *gorm.DB) error {
	var count int64
	if err := gdb.Model(&models.Currency{}).Count(&count).Error; err != nil {
		return errors.Wrap(err, "count currencies")
	}
	if count > 0 {
		return nil
	}

	currency := models.Currency{ID: models.DefaultCurrencyID, Code: "USD", Name: "US Dollar"}
	if err := gdb.Create(&currency).Error; err != nil {
		return errors.Wrap(err, "create default currency")
	}
	logrus.WithField("code", currency.Code).Info("Created default currency")
	return nil
}
