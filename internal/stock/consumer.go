package stock

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"storefront/internal/events"
)

// HandleEvent reacts to one catalog event from the broker. Creations,
// updates and low-stock reports whose quantity is at or below the margin
// raise a warning; every other event is ignored.
func HandleEvent(data []byte) {
	var e events.Event
	if err := json.Unmarshal(data, &e); err != nil {
		logrus.WithError(err).Error("Error unmarshaling catalog event")
		return
	}

	switch e.Type {
	case events.ProductCreated, events.ProductUpdated, events.ProductLowStock:
	default:
		return
	}
	if !e.LowOnStock() {
		return
	}

	logrus.WithFields(logrus.Fields{
		"product_id":          e.ProductID,
		"slug":                e.Slug,
		"total_quantity":      e.TotalQuantity,
		"low_on_stock_margin": e.LowOnStockMargin,
		"event":               e.Type,
	}).Warn("Product low on stock")
}
