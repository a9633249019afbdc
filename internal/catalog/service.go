// Package catalog implements the product catalog workflows: product CRUD,
// filtered listing, category and tag management and monthly view tracking.
package catalog

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"storefront/internal/events"
)

var (
	ErrProductNotFound  = errors.New("product does not exist")
	ErrProductExists    = errors.New("product already exists")
	ErrSKUTaken         = errors.New("sku belongs to another product")
	ErrImageTaken       = errors.New("image url belongs to another product")
	ErrInvalidReference = errors.New("referenced currency, category or tag does not exist")
	ErrNameTaken        = errors.New("name already exists")
)

const DefaultPageSize = 16

// Service runs the catalog workflows against an injected database handle.
type Service struct {
	db        *gorm.DB
	publisher events.Publisher
	now       func() time.Time
	location  *time.Location
	pageSize  int
}

type Option func(*Service)

// WithClock overrides the time source used for view tracking and events.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the time zone calendar months are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithPageSize sets the listing page size used when the request has no usable limit.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func NewService(db *gorm.DB, publisher events.Publisher, opts ...Option) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	s := &Service{
		db:        db,
		publisher: publisher,
		now:       time.Now,
		location:  time.Local,
		pageSize:  DefaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying handle for readiness checks.
func (s *Service) DB() *gorm.DB {
	return s.db
}

// publishTimeout bounds how long a workflow waits for an event to be sent.
const publishTimeout = 3 * time.Second

// publish never fails the calling workflow; delivery errors are logged.
func (s *Service) publish(ctx context.Context, e events.Event) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, e); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"type":       e.Type,
			"product_id": e.ProductID,
		}).Error("Failed to publish catalog event")
	}
}
