package catalog

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/jinzhu/now"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"storefront/internal/events"
	"storefront/internal/models"
)

// ViewOutcome tells what recording a view did.
type ViewOutcome int

const (
	// ViewFirst created the month's view row for the product.
	ViewFirst ViewOutcome = iota
	// ViewNew added a visitor to an existing row.
	ViewNew
	// ViewRepeat found the visitor already counted this month.
	ViewRepeat
)

func (o ViewOutcome) Message() string {
	switch o {
	case ViewFirst:
		return "First product view this month"
	case ViewNew:
		return "New product view this month"
	default:
		return "Product already viewed by client this month"
	}
}

// RecordView counts visitor at most once per product per calendar month.
// The month window is (startOfMonth, endOfMonth]: the very first instant of
// the month does not match an existing row.
func (s *Service) RecordView(ctx context.Context, slug, visitor string) (ViewOutcome, error) {
	product, err := s.findBySlug(ctx, slug, false)
	if err != nil {
		return ViewRepeat, err
	}

	visitor = clipVisitor(visitor)
	at := s.now().In(s.location)
	outcome, err := s.recordView(ctx, product.ID, visitor, at, false)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// A concurrent request created the row or the visitor first.
		outcome, err = s.recordView(ctx, product.ID, visitor, at, true)
	}
	if err != nil {
		return ViewRepeat, err
	}

	logrus.WithFields(logrus.Fields{
		"product_id": product.ID,
		"outcome":    outcome.Message(),
	}).Debug("Product view recorded")

	if outcome != ViewRepeat {
		e := events.ForProduct(events.ProductViewed, product, at)
		e.Visitor = visitor
		s.publish(ctx, e)
	}
	return outcome, nil
}

// MaxVisitorLen bounds the stored visitor so it always fits a btree index entry.
const MaxVisitorLen = 2048

// clipVisitor cuts visitor to MaxVisitorLen bytes without splitting a rune.
func clipVisitor(visitor string) string {
	if len(visitor) <= MaxVisitorLen {
		return visitor
	}
	cut := MaxVisitorLen
	for cut > 0 && !utf8.RuneStart(visitor[cut]) {
		cut--
	}
	return visitor[:cut]
}

func (s *Service) recordView(ctx context.Context, productID, visitor string, at time.Time, byPeriod bool) (ViewOutcome, error) {
	var outcome ViewOutcome
	period := at.Format("2006-01")

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Preload("Visitors").Where("product_id = ?", productID)
		if byPeriod {
			q = q.Where("period = ?", period)
		} else {
			month := now.With(at)
			q = q.Where("created_at > ? AND created_at <= ?", month.BeginningOfMonth().UTC(), month.EndOfMonth().UTC())
		}

		var view models.ProductView
		err := q.Order("created_at").Take(&view).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			view = models.ProductView{
				ProductID: productID,
				Period:    period,
				CreatedAt: at.UTC(),
				UpdatedAt: at.UTC(),
				Visitors:  []models.Visitor{{Visitor: visitor, CreatedAt: at.UTC()}},
			}
			if err := tx.Create(&view).Error; err != nil {
				return err
			}
			outcome = ViewFirst
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "find product view")
		}

		for _, v := range view.Visitors {
			if v.Visitor == visitor {
				outcome = ViewRepeat
				return nil
			}
		}

		if err := tx.Create(&models.Visitor{ProductViewID: view.ID, Visitor: visitor, CreatedAt: at.UTC()}).Error; err != nil {
			return err
		}
		outcome = ViewNew
		return nil
	})
	return outcome, err
}

type ProductRef struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type ViewCount struct {
	Visitors int64 `json:"visitors"`
}

// ViewSummary is one product's view row for one month with its visitor count.
type ViewSummary struct {
	ID        string     `json:"id"`
	ProductID string     `json:"productId"`
	Period    string     `json:"period"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Product   ProductRef `json:"product"`
	Count     ViewCount  `json:"_count"`
}

// ListProductViews returns every view row, newest first.
func (s *Service) ListProductViews(ctx context.Context) ([]ViewSummary, error) {
	var views []models.ProductView
	err := s.db.WithContext(ctx).
		Preload("Product", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "name", "slug") }).
		Order("created_at DESC").
		Find(&views).Error
	if err != nil {
		return nil, errors.Wrap(err, "list product views")
	}

	var counts []struct {
		ProductViewID string
		Visitors      int64
	}
	err = s.db.WithContext(ctx).Model(&models.Visitor{}).
		Select("product_view_id, COUNT(*) AS visitors").
		Group("product_view_id").
		Scan(&counts).Error
	if err != nil {
		return nil, errors.Wrap(err, "count visitors")
	}
	byView := make(map[string]int64, len(counts))
	for _, c := range counts {
		byView[c.ProductViewID] = c.Visitors
	}

	summaries := make([]ViewSummary, 0, len(views))
	for _, v := range views {
		summary := ViewSummary{
			ID:        v.ID,
			ProductID: v.ProductID,
			Period:    v.Period,
			CreatedAt: v.CreatedAt,
			UpdatedAt: v.UpdatedAt,
			Count:     ViewCount{Visitors: byView[v.ID]},
		}
		if v.Product != nil {
			summary.Product = ProductRef{Name: v.Product.Name, Slug: v.Product.Slug}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
