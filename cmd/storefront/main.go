package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"storefront/internal/api"
	"storefront/internal/catalog"
	"storefront/internal/db"
	"storefront/internal/events"
	"storefront/internal/kafka"
	"storefront/internal/rpc"
	"storefront/internal/stock"
	"storefront/pkg/config"
	"storefront/pkg/logger"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	if err := config.Load(); err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logger.Configure(viper.GetString("LOG_LEVEL"), viper.GetString("LOG_FILE"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn := db.Setup()

	brokers := kafka.Brokers(viper.GetString("KAFKA_BROKERS"))
	topic := viper.GetString("KAFKA_PRODUCT_EVENTS_TOPIC")
	publisher := setupPublisher(brokers, topic)

	loc, err := time.LoadLocation(viper.GetString("TIMEZONE"))
	if err != nil {
		logrus.WithError(err).Warn("Unknown time zone, using local time")
		loc = time.Local
	}
	svc := catalog.NewService(dbConn, publisher,
		catalog.WithLocation(loc),
		catalog.WithPageSize(viper.GetInt("DEFAULT_PAGE_SIZE")),
	)

	// Start HTTP server
	server := api.New(svc, api.Options{
		StaticDir: viper.GetString("STATIC_DIR"),
		BodyLimit: viper.GetString("BODY_LIMIT"),
	})
	go func() {
		if err := server.Start(viper.GetInt("HTTP_PORT")); err != nil {
			logrus.WithError(err).Fatal("Catalog HTTP server failed")
		}
	}()

	// Start gRPC server
	grpcServer := rpc.NewServer(svc)
	go func() {
		if err := rpc.Serve(grpcServer, viper.GetInt("GRPC_PORT")); err != nil {
			logrus.WithError(err).Fatal("Catalog gRPC server failed")
		}
	}()

	// Start low stock monitor
	monitor := stock.NewMonitor(dbConn, publisher)
	if err := monitor.Start(viper.GetString("LOW_STOCK_SCHEDULE")); err != nil {
		logrus.WithError(err).Fatal("Failed to start low stock monitor")
	}

	if len(brokers) > 0 {
		startConsumer(ctx, brokers, topic)
	}

	logrus.Info("Application started")
	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown failed")
	}
	grpcServer.GracefulStop()
	<-monitor.Stop().Done()
	if closer, ok := publisher.(*kafka.Publisher); ok {
		if err := closer.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close Kafka producer")
		}
	}
}

// setupPublisher returns a Kafka publisher, or a no-op one when no broker
// is configured.
func setupPublisher(brokers []string, topic string) events.Publisher {
	if len(brokers) == 0 {
		logrus.Info("KAFKA_BROKERS not set, catalog events are not published")
		return events.Nop{}
	}
	producer, err := kafka.SetupProducer(brokers)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create Kafka producer")
	}
	return kafka.NewPublisher(producer, topic)
}

func startConsumer(ctx context.Context, brokers []string, topic string) {
	consumer, err := kafka.SetupConsumer(brokers)
	if err != nil {
		logrus.WithError(err).Error("Low stock alerts disabled")
		return
	}
	go func() {
		defer consumer.Close()
		if err := kafka.Consume(ctx, consumer, topic, stock.HandleEvent); err != nil {
			logrus.WithError(err).Error("Catalog event consumer stopped")
		}
	}()
}
