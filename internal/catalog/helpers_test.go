package catalog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"storefront/internal/db/dbtest"
	"storefront/internal/events"
	"storefront/internal/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	svc       *Service
	publisher *recordingPublisher
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:        dbtest.New(t),
		publisher: &recordingPublisher{},
		now:       time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.db, f.publisher,
		WithClock(func() time.Time { return f.now }),
		WithLocation(time.UTC),
	)
	return f
}

func variant(sku string, quantity int, price, color string) VariantInput {
	v := VariantInput{
		SKU:      sku,
		Size:     datatypes.JSON(`"M"`),
		Price:    decimal.RequireFromString(price),
		Quantity: quantity,
	}
	if color != "" {
		v.Color = &color
	}
	return v
}

func productInput(name string, variants ...VariantInput) ProductInput {
	if len(variants) == 0 {
		variants = []VariantInput{variant(Slugify(name)+"-sku", 1, "10", "")}
	}
	return ProductInput{
		Name:             name,
		Description:      name + " description",
		CurrencyID:       models.DefaultCurrencyID,
		LowOnStockMargin: 2,
		Variants:         variants,
		Images:           []ImageInput{{URL: fmt.Sprintf("https://cdn.example.com/%s.jpg", Slugify(name)), IsDefault: true}},
	}
}

// createAt creates a product and pins its creation time so ordering is deterministic.
func (f *fixture) createAt(t *testing.T, in ProductInput, at time.Time) *models.Product {
	t.Helper()
	p, err := f.svc.CreateProduct(context.Background(), in)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", p.ID).UpdateColumn("created_at", at).Error)
	return p
}

func (f *fixture) category(t *testing.T, name string) *models.Category {
	t.Helper()
	c, err := f.svc.CreateCategory(context.Background(), name)
	require.NoError(t, err)
	return c
}

func (f *fixture) tag(t *testing.T, name string) *models.Tag {
	t.Helper()
	tag, err := f.svc.CreateTag(context.Background(), name)
	require.NoError(t, err)
	return tag
}
