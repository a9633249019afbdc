package config

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Load initializes configuration from environment variables and .env file.
func Load() error {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		logrus.WithError(err).Warn("Failed to read .env file, using environment variables")
	}

	logrus.Info("Configuration loaded successfully")
	return nil
}

// SetDefaults registers the default value of every known setting.
func SetDefaults() {
	viper.SetDefault("HTTP_PORT", 3000)
	viper.SetDefault("GRPC_PORT", 3001)
	viper.SetDefault("STATIC_DIR", "public")
	viper.SetDefault("BODY_LIMIT", "2M")

	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "storefront")
	viper.SetDefault("DB_DSN", "storefront.db")

	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_PRODUCT_EVENTS_TOPIC", "PRODUCT_EVENTS")
	viper.SetDefault("LOW_STOCK_SCHEDULE", "@hourly")

	viper.SetDefault("TIMEZONE", "Local")
	viper.SetDefault("DEFAULT_PAGE_SIZE", 16)

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FILE", "")
}
