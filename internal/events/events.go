// Package events defines the catalog domain events published to other services.
package events

import (
	"context"
	"time"

	"storefront/internal/models"
)

const (
	ProductCreated  = "product.created"
	ProductUpdated  = "product.updated"
	ProductDeleted  = "product.deleted"
	ProductViewed   = "product.viewed"
	ProductLowStock = "product.low_stock"
)

// Event is the wire form of a catalog event.
type Event struct {
	Type             string    `json:"type"`
	ProductID        string    `json:"productId"`
	Slug             string    `json:"slug"`
	Name             string    `json:"name"`
	TotalQuantity    int       `json:"totalQuantity"`
	LowOnStockMargin int       `json:"lowOnStockMargin"`
	Visitor          string    `json:"visitor,omitempty"`
	OccurredAt       time.Time `json:"occurredAt"`
}

// LowOnStock reports whether the event carries a quantity at or below the
// product's low-stock margin.
func (e Event) LowOnStock() bool {
	return e.TotalQuantity <= e.LowOnStockMargin
}

// ForProduct builds an event of the given type from a product snapshot.
func ForProduct(eventType string, p *models.Product, at time.Time) Event {
	return Event{
		Type:             eventType,
		ProductID:        p.ID,
		Slug:             p.Slug,
		Name:             p.Name,
		TotalQuantity:    p.TotalQuantity,
		LowOnStockMargin: p.LowOnStockMargin,
		OccurredAt:       at,
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
