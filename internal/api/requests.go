package api

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"storefront/internal/catalog"
)

// Numeric fields are kept raw so that a wrong type is reported against the
// field instead of failing the whole body. A JSON number or a numeric string
// is accepted.

type ProductRequest struct {
	Name             string            `json:"name" validate:"required,notblank,unique_product_name"`
	Description      string            `json:"description" validate:"required,notblank"`
	CurrencyID       json.RawMessage   `json:"currencyId" validate:"numeric_value"`
	LowOnStockMargin json.RawMessage   `json:"lowOnStockMargin" validate:"numeric_value"`
	Categories       []json.RawMessage `json:"categories" validate:"dive,numeric_value"`
	Tags             []json.RawMessage `json:"tags" validate:"dive,numeric_value"`
	ProductVariants  []VariantRequest  `json:"productVariants" validate:"required,min=1,unique=SKU,dive"`
	ProductImages    []ImageRequest    `json:"productImages" validate:"required,min=1,unique=URL,dive"`
}

type VariantRequest struct {
	SKU      string          `json:"sku" validate:"required,notblank,unique_sku"`
	Size     json.RawMessage `json:"size" validate:"string_or_number"`
	Color    json.RawMessage `json:"color" validate:"omitempty,string_or_null"`
	Price    json.RawMessage `json:"price" validate:"numeric_value"`
	OldPrice json.RawMessage `json:"oldPrice" validate:"omitempty,numeric_or_null"`
	Quantity json.RawMessage `json:"quantity" validate:"numeric_value"`
}

type ImageRequest struct {
	URL       string          `json:"url" validate:"required,notblank"`
	IsDefault json.RawMessage `json:"isDefault" validate:"boolean_value"`
}

// NameRequest is the body for creating a category or a tag.
type NameRequest struct {
	Name string `json:"name" validate:"required,notblank"`
}

func (r *ProductRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	for i := range r.ProductVariants {
		r.ProductVariants[i].SKU = strings.TrimSpace(r.ProductVariants[i].SKU)
	}
	for i := range r.ProductImages {
		r.ProductImages[i].URL = strings.TrimSpace(r.ProductImages[i].URL)
	}
}

func (r *NameRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

// Input converts a validated request into the catalog workflow input.
func (r *ProductRequest) Input() (catalog.ProductInput, error) {
	in := catalog.ProductInput{
		Name:        r.Name,
		Description: r.Description,
	}

	currency, err := intValue(r.CurrencyID)
	if err != nil {
		return in, errors.Wrap(err, "currencyId")
	}
	if currency > 0 {
		in.CurrencyID = uint(currency)
	}
	if in.LowOnStockMargin, err = intValue(r.LowOnStockMargin); err != nil {
		return in, errors.Wrap(err, "lowOnStockMargin")
	}
	if in.Categories, err = idValues(r.Categories); err != nil {
		return in, errors.Wrap(err, "categories")
	}
	if in.Tags, err = idValues(r.Tags); err != nil {
		return in, errors.Wrap(err, "tags")
	}

	for _, v := range r.ProductVariants {
		variant := catalog.VariantInput{
			SKU:  v.SKU,
			Size: datatypes.JSON(v.Size),
		}
		if len(v.Color) > 0 && string(v.Color) != "null" {
			var color string
			if err := json.Unmarshal(v.Color, &color); err != nil {
				return in, errors.Wrapf(err, "color of %s", v.SKU)
			}
			color = strings.TrimSpace(color)
			variant.Color = &color
		}
		if variant.Price, err = numericValue(v.Price); err != nil {
			return in, errors.Wrapf(err, "price of %s", v.SKU)
		}
		if len(v.OldPrice) > 0 && string(v.OldPrice) != "null" {
			old, err := numericValue(v.OldPrice)
			if err != nil {
				return in, errors.Wrapf(err, "oldPrice of %s", v.SKU)
			}
			variant.OldPrice = &old
		}
		if variant.Quantity, err = intValue(v.Quantity); err != nil {
			return in, errors.Wrapf(err, "quantity of %s", v.SKU)
		}
		in.Variants = append(in.Variants, variant)
	}

	for _, img := range r.ProductImages {
		isDefault, err := boolValue(img.IsDefault)
		if err != nil {
			return in, errors.Wrapf(err, "isDefault of %s", img.URL)
		}
		in.Images = append(in.Images, catalog.ImageInput{URL: img.URL, IsDefault: isDefault})
	}
	return in, nil
}

// numericValue parses a JSON number or a JSON string holding a number.
func numericValue(raw json.RawMessage) (decimal.Decimal, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return decimal.Zero, errors.Errorf("%s is not numeric", raw)
		}
		s = n.String()
	}
	return decimal.NewFromString(s)
}

var (
	minInt = decimal.NewFromInt(math.MinInt32)
	maxInt = decimal.NewFromInt(math.MaxInt32)
)

// intValue truncates a numeric value toward zero. Values outside the int32
// range are rejected.
func intValue(raw json.RawMessage) (int, error) {
	d, err := numericValue(raw)
	if err != nil {
		return 0, err
	}
	d = d.Truncate(0)
	if d.LessThan(minInt) || d.GreaterThan(maxInt) {
		return 0, errors.Errorf("%s is out of range", raw)
	}
	return int(d.IntPart()), nil
}

func idValues(raws []json.RawMessage) ([]uint, error) {
	ids := make([]uint, 0, len(raws))
	for _, raw := range raws {
		n, err := intValue(raw)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			n = 0
		}
		ids = append(ids, uint(n))
	}
	return ids, nil
}

// boolValue accepts true, false and their "true"/"false"/"1"/"0" string forms.
func boolValue(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, errors.Errorf("%s is not a boolean", raw)
	}
	switch s {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, errors.Errorf("%q is not a boolean", s)
}
