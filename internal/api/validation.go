package api

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Lookup answers the uniqueness questions asked while validating a new product.
type Lookup interface {
	ProductNameExists(ctx context.Context, name string) (bool, error)
	SKUExists(ctx context.Context, sku string) (bool, error)
}

var fieldMessages = map[string]string{
	"name":             "Name required",
	"description":      "Description required",
	"currencyId":       "Currency required",
	"lowOnStockMargin": "Low on stock margin required",
	"productVariants":  "Product variants required",
	"sku":              "SKU required",
	"size":             "Size must be a string or a number",
	"color":            "Color required",
	"price":            "Invalid price value",
	"oldPrice":         "Invalid old price value",
	"quantity":         "Quantity required",
	"productImages":    "Product images required",
	"url":              "Product image url required",
}

// ruleMessages override fieldMessages for one rule of one field.
var ruleMessages = map[string]string{
	"productVariants.unique": "Product with this SKU already exists",
	"productImages.unique":   "Product image already exists",
}

var tagMessages = map[string]string{
	"unique_product_name": "Product already exists",
	"unique_sku":          "Product with this SKU already exists",
}

type uniquenessKey struct{}

// withUniqueness enables the database-backed uniqueness rules for ctx.
// Without it those rules pass, so one request type serves create and update.
func withUniqueness(ctx context.Context) context.Context {
	return context.WithValue(ctx, uniquenessKey{}, true)
}

func checksUniqueness(ctx context.Context) bool {
	on, _ := ctx.Value(uniquenessKey{}).(bool)
	return on
}

// Validator runs go-playground rules and turns failures into field errors.
type Validator struct {
	validate *validator.Validate
	lookup   Lookup
}

func NewValidator(lookup Lookup) *Validator {
	v := &Validator{validate: validator.New(), lookup: lookup}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	must(v.validate.RegisterValidation("notblank", validators.NotBlank))
	must(v.validate.RegisterValidation("numeric_value", isNumeric))
	must(v.validate.RegisterValidation("numeric_or_null", func(fl validator.FieldLevel) bool {
		return isNull(fl) || isNumeric(fl)
	}))
	must(v.validate.RegisterValidation("string_or_null", func(fl validator.FieldLevel) bool {
		return isNull(fl) || jsonKind(fl.Field().Bytes()) == '"'
	}))
	must(v.validate.RegisterValidation("string_or_number", func(fl validator.FieldLevel) bool {
		raw := fl.Field().Bytes()
		switch jsonKind(raw) {
		case '"':
			return true
		case '0':
			var n json.Number
			return json.Unmarshal(raw, &n) == nil
		}
		return false
	}))
	must(v.validate.RegisterValidation("boolean_value", func(fl validator.FieldLevel) bool {
		_, err := boolValue(fl.Field().Bytes())
		return err == nil
	}))
	must(v.validate.RegisterValidationCtx("unique_product_name", v.uniqueProductName))
	must(v.validate.RegisterValidationCtx("unique_sku", v.uniqueSKU))

	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i interface{}) error {
	return v.ValidateCtx(context.Background(), i)
}

// ValidateCtx checks i and returns an *Error listing every rejected field.
func (v *Validator) ValidateCtx(ctx context.Context, i interface{}) error {
	err := v.validate.StructCtx(ctx, i)
	if err == nil {
		return nil
	}

	var failures validator.ValidationErrors
	if !errors.As(err, &failures) {
		return errors.Wrap(err, "validate request")
	}

	fields := make([]FieldError, 0, len(failures))
	for _, fe := range failures {
		fields = append(fields, FieldError{Field: fieldPath(fe), Message: message(fe)})
	}
	return &Error{Status: http.StatusBadRequest, Message: "Validation failed", Fields: fields}
}

// fieldPath drops the struct name from the namespace, leaving a path such
// as productVariants[0].sku.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	if m, ok := tagMessages[fe.Tag()]; ok {
		return m
	}
	field := fe.Field()
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	if m, ok := ruleMessages[field+"."+fe.Tag()]; ok {
		return m
	}
	if m, ok := fieldMessages[field]; ok {
		return m
	}
	return "Invalid value"
}

func (v *Validator) uniqueProductName(ctx context.Context, fl validator.FieldLevel) bool {
	if !checksUniqueness(ctx) {
		return true
	}
	taken, err := v.lookup.ProductNameExists(ctx, fl.Field().String())
	if err != nil {
		// The unique index still rejects a duplicate on insert.
		logrus.WithError(err).Error("Failed to check product name")
		return true
	}
	return !taken
}

func (v *Validator) uniqueSKU(ctx context.Context, fl validator.FieldLevel) bool {
	if !checksUniqueness(ctx) {
		return true
	}
	taken, err := v.lookup.SKUExists(ctx, fl.Field().String())
	if err != nil {
		logrus.WithError(err).Error("Failed to check variant sku")
		return true
	}
	return !taken
}

func isNumeric(fl validator.FieldLevel) bool {
	_, err := numericValue(fl.Field().Bytes())
	return err == nil
}

func isNull(fl validator.FieldLevel) bool {
	return strings.TrimSpace(string(fl.Field().Bytes())) == "null"
}

// jsonKind returns '"' for a string, '0' for a number and the first byte otherwise.
func jsonKind(raw []byte) byte {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return 0
	}
	switch c := s[0]; {
	case c == '"':
		return '"'
	case c == '-' || (c >= '0' && c <= '9'):
		return '0'
	default:
		return c
	}
}

type normalizer interface {
	normalize()
}

const bodyKey = "body"

// validBody binds the JSON body into a new T, validates it and stores it
// for the handler. unique turns on the database-backed uniqueness rules.
func validBody[T any](v *Validator, unique bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := new(T)
			if err := (&echo.DefaultBinder{}).BindBody(c, req); err != nil {
				logrus.WithError(err).WithField("path", c.Path()).Debug("Invalid request body")
				return errInvalidBody
			}
			if n, ok := any(req).(normalizer); ok {
				n.normalize()
			}

			ctx := c.Request().Context()
			if unique {
				ctx = withUniqueness(ctx)
			}
			if err := v.ValidateCtx(ctx, req); err != nil {
				return err
			}

			c.Set(bodyKey, req)
			return next(c)
		}
	}
}

func body[T any](c echo.Context) *T {
	return c.Get(bodyKey).(*T)
}
