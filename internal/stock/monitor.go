// Package stock watches product quantities against their low-stock margin.
// A cron job scans the catalog and publishes low-stock events, and a Kafka
// handler reacts to catalog events that report a product running low.
package stock

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"storefront/internal/events"
	"storefront/internal/models"
)

// Monitor periodically reports products whose total quantity is at or
// below their low-stock margin.
type Monitor struct {
	db        *gorm.DB
	publisher events.Publisher
	now       func() time.Time
	cron      *cron.Cron
	jobID     cron.EntryID
}

func NewMonitor(db *gorm.DB, publisher events.Publisher) *Monitor {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Monitor{
		db:        db,
		publisher: publisher,
		now:       time.Now,
		cron:      cron.New(),
	}
}

// Start schedules the scan with a standard cron spec or descriptor such as
// "@hourly" and starts the scheduler.
func (m *Monitor) Start(schedule string) error {
	id, err := m.cron.AddFunc(schedule, func() {
		if _, err := m.Scan(context.Background()); err != nil {
			logrus.WithError(err).Error("Low stock scan failed")
		}
	})
	if err != nil {
		return errors.Wrapf(err, "invalid low stock schedule %q", schedule)
	}
	m.jobID = id

	m.cron.Start()
	logrus.WithFields(logrus.Fields{
		"schedule": schedule,
		"next_run": m.cron.Entry(id).Schedule.Next(m.now()),
	}).Info("Low stock monitor started")
	return nil
}

// Stop halts the scheduler. The returned context is done once a running
// scan finishes.
func (m *Monitor) Stop() context.Context {
	return m.cron.Stop()
}

// Scan publishes a low-stock event for every product at or below its
// margin and returns how many were found.
func (m *Monitor) Scan(ctx context.Context) (int, error) {
	var products []models.Product
	err := m.db.WithContext(ctx).
		Where("total_quantity <= low_on_stock_margin").
		Order("total_quantity, name").
		Find(&products).Error
	if err != nil {
		return 0, errors.Wrap(err, "find low stock products")
	}

	logrus.WithField("count", len(products)).Info("Found products low on stock")
	at := m.now()
	for i := range products {
		e := events.ForProduct(events.ProductLowStock, &products[i], at)
		if err := m.publisher.Publish(ctx, e); err != nil {
			logrus.WithError(err).WithField("product_id", e.ProductID).Error("Failed to publish low stock event")
		}
	}
	return len(products), nil
}
