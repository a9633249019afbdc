package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// DefaultCurrencyID is used when a product payload carries no currency.
const DefaultCurrencyID uint = 1

type Currency struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"size:3;uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Product struct {
	ID               string           `gorm:"size:36;primaryKey" json:"id"`
	Name             string           `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Slug             string           `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Description      string           `gorm:"type:text" json:"description"`
	CurrencyID       uint             `gorm:"not null;default:1" json:"currencyId"`
	Currency         *Currency        `json:"currency,omitempty"`
	LowOnStockMargin int              `gorm:"not null;default:0" json:"lowOnStockMargin"`
	TotalQuantity    int              `gorm:"not null;default:0" json:"totalQuantity"`
	ProductVariants  []ProductVariant `gorm:"constraint:OnDelete:CASCADE" json:"productVariants"`
	ProductImages    []ProductImage   `gorm:"constraint:OnDelete:CASCADE" json:"productImages"`
	Categories       []Category       `gorm:"many2many:product_categories" json:"categories"`
	Tags             []Tag            `gorm:"many2many:product_tags" json:"tags"`
	ProductViews     []ProductView    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt        time.Time        `gorm:"index" json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ProductVariant is a purchasable SKU of a product. Size keeps whatever JSON
// scalar the client sent, a string ("XL") or a number (42).
type ProductVariant struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	ProductID string           `gorm:"size:36;index;not null" json:"productId"`
	SKU       string           `gorm:"column:sku;size:100;uniqueIndex;not null" json:"sku"`
	Size      datatypes.JSON   `json:"size"`
	Color     *string          `gorm:"size:64;index" json:"color"`
	Price     decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"price"`
	OldPrice  *decimal.Decimal `gorm:"type:decimal(12,2)" json:"oldPrice"`
	Quantity  int              `gorm:"not null;default:0" json:"quantity"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type ProductImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID string    `gorm:"size:36;index;not null" json:"productId"`
	URL       string    `gorm:"column:url;size:1024;uniqueIndex;not null" json:"url"`
	IsDefault bool      `gorm:"not null;default:false" json:"isDefault"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Slug      string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Slug      string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProductView holds the distinct visitors of one product for one calendar
// month. Period is the month in "2006-01" form.
type ProductView struct {
	ID        string    `gorm:"size:36;primaryKey" json:"id"`
	ProductID string    `gorm:"size:36;not null;uniqueIndex:idx_product_view_period" json:"productId"`
	Product   *Product  `json:"product,omitempty"`
	Period    string    `gorm:"size:7;not null;uniqueIndex:idx_product_view_period" json:"period"`
	Visitors  []Visitor `gorm:"constraint:OnDelete:CASCADE" json:"visitors,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (v *ProductView) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

type Visitor struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ProductViewID string    `gorm:"size:36;not null;uniqueIndex:idx_view_visitor" json:"productViewId"`
	Visitor       string    `gorm:"type:text;not null;uniqueIndex:idx_view_visitor" json:"visitor"`
	CreatedAt     time.Time `json:"createdAt"`
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&Currency{},
		&Category{},
		&Tag{},
		&Product{},
		&ProductVariant{},
		&ProductImage{},
		&ProductView{},
		&Visitor{},
	}
}
