package catalog

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/events"
	"storefront/internal/models"
)

type VariantInput struct {
	SKU      string
	Size     datatypes.JSON
	Color    *string
	Price    decimal.Decimal
	OldPrice *decimal.Decimal
	Quantity int
}

type ImageInput struct {
	URL       string
	IsDefault bool
}

// ProductInput is the full product aggregate as submitted on create and update.
type ProductInput struct {
	Name             string
	Description      string
	CurrencyID       uint
	LowOnStockMargin int
	Categories       []uint
	Tags             []uint
	Variants         []VariantInput
	Images           []ImageInput
}

// CreateProduct stores the product with its variants and images, links its
// categories and tags and sets its total quantity, all in one transaction.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	product := models.Product{
		Name:             in.Name,
		Slug:             Slugify(in.Name),
		Description:      in.Description,
		CurrencyID:       currencyOrDefault(in.CurrencyID),
		LowOnStockMargin: in.LowOnStockMargin,
	}
	for _, v := range in.Variants {
		product.ProductVariants = append(product.ProductVariants, models.ProductVariant{
			SKU:      v.SKU,
			Size:     v.Size,
			Color:    v.Color,
			Price:    v.Price,
			OldPrice: v.OldPrice,
			Quantity: v.Quantity,
		})
	}
	for _, img := range in.Images {
		product.ProductImages = append(product.ProductImages, models.ProductImage{
			URL:       img.URL,
			IsDefault: img.IsDefault,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := currencyExists(tx, product.CurrencyID); err != nil {
			return err
		}
		categories, tags, err := findTaxonomy(tx, in.Categories, in.Tags)
		if err != nil {
			return err
		}

		if err := createConflict(tx, &product); err != nil {
			return err
		}

		if err := tx.Create(&product).Error; err != nil {
			// a concurrent create slipped past createConflict
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.Wrap(ErrProductExists, err.Error())
			}
			return errors.Wrap(err, "create product")
		}

		if len(categories) > 0 {
			if err := tx.Model(&product).Association("Categories").Append(categories); err != nil {
				return errors.Wrap(err, "link categories")
			}
		}
		if len(tags) > 0 {
			if err := tx.Model(&product).Association("Tags").Append(tags); err != nil {
				return errors.Wrap(err, "link tags")
			}
		}

		return refreshTotalQuantity(tx, &product)
	})
	if err != nil {
		return nil, err
	}

	created, err := s.findBySlug(ctx, product.Slug, true)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"product_id":     created.ID,
		"slug":           created.Slug,
		"total_quantity": created.TotalQuantity,
	}).Info("Product created")
	s.publish(ctx, events.ForProduct(events.ProductCreated, created, s.now()))
	return created, nil
}

// GetProduct loads a product with variants, images, categories and tags.
func (s *Service) GetProduct(ctx context.Context, slug string) (*models.Product, error) {
	return s.findBySlug(ctx, slug, true)
}

// UpdateProduct renames the product, upserts variants by SKU and images by
// URL, replaces its category and tag sets and recomputes its total quantity.
// A new name whose slug is owned by another product is rejected untouched.
func (s *Service) UpdateProduct(ctx context.Context, slug string, in ProductInput) (*models.Product, error) {
	existing, err := s.findBySlug(ctx, slug, false)
	if err != nil {
		return nil, err
	}

	newSlug := Slugify(in.Name)
	var taken int64
	err = s.db.WithContext(ctx).Model(&models.Product{}).
		Where("slug = ? AND slug <> ?", newSlug, slug).
		Count(&taken).Error
	if err != nil {
		return nil, errors.Wrap(err, "check slug")
	}
	if taken > 0 {
		return nil, ErrProductExists
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		currencyID := currencyOrDefault(in.CurrencyID)
		if err := currencyExists(tx, currencyID); err != nil {
			return err
		}
		categories, tags, err := findTaxonomy(tx, in.Categories, in.Tags)
		if err != nil {
			return err
		}

		err = tx.Model(existing).Updates(map[string]interface{}{
			"name":                in.Name,
			"slug":                newSlug,
			"description":         in.Description,
			"currency_id":         currencyID,
			"low_on_stock_margin": in.LowOnStockMargin,
		}).Error
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.Wrap(ErrProductExists, err.Error())
			}
			return errors.Wrap(err, "update product")
		}

		for _, v := range in.Variants {
			if err := upsertVariant(tx, existing.ID, v); err != nil {
				return err
			}
		}
		for _, img := range in.Images {
			if err := upsertImage(tx, existing.ID, img); err != nil {
				return err
			}
		}

		if err := tx.Model(existing).Association("Categories").Replace(categories); err != nil {
			return errors.Wrap(err, "replace categories")
		}
		if err := tx.Model(existing).Association("Tags").Replace(tags); err != nil {
			return errors.Wrap(err, "replace tags")
		}

		return refreshTotalQuantity(tx, existing)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.findBySlug(ctx, newSlug, true)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"product_id": updated.ID,
		"old_slug":   slug,
		"slug":       updated.Slug,
	}).Info("Product updated")
	s.publish(ctx, events.ForProduct(events.ProductUpdated, updated, s.now()))
	return updated, nil
}

// DeleteProduct hard-deletes a product together with its variants, images,
// category and tag links, view rows and visitors.
func (s *Service) DeleteProduct(ctx context.Context, slug string) error {
	product, err := s.findBySlug(ctx, slug, false)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		views := tx.Model(&models.ProductView{}).Select("id").Where("product_id = ?", product.ID)
		if err := tx.Where("product_view_id IN (?)", views).Delete(&models.Visitor{}).Error; err != nil {
			return errors.Wrap(err, "delete visitors")
		}
		if err := tx.Select(clause.Associations).Delete(product).Error; err != nil {
			return errors.Wrap(err, "delete product")
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{"product_id": product.ID, "slug": slug}).Info("Product deleted")
	s.publish(ctx, events.ForProduct(events.ProductDeleted, product, s.now()))
	return nil
}

// ProductNameExists reports whether a product already uses name.
func (s *Service) ProductNameExists(ctx context.Context, name string) (bool, error) {
	return exists(s.db.WithContext(ctx).Model(&models.Product{}).Where("name = ?", name))
}

// SKUExists reports whether any variant already uses sku.
func (s *Service) SKUExists(ctx context.Context, sku string) (bool, error) {
	return exists(s.db.WithContext(ctx).Model(&models.ProductVariant{}).Where("sku = ?", sku))
}

func (s *Service) findBySlug(ctx context.Context, slug string, withRelations bool) (*models.Product, error) {
	q := s.db.WithContext(ctx)
	if withRelations {
		q = q.Preload("ProductVariants", orderByID).
			Preload("ProductImages", orderByID).
			Preload("Categories", orderByID).
			Preload("Tags", orderByID)
	}

	var product models.Product
	if err := q.Where("slug = ?", slug).Take(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, errors.Wrap(err, "find product")
	}
	return &product, nil
}

func upsertVariant(tx *gorm.DB, productID string, in VariantInput) error {
	var variant models.ProductVariant
	err := tx.Where("sku = ?", in.SKU).Take(&variant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		variant = models.ProductVariant{
			ProductID: productID,
			SKU:       in.SKU,
			Size:      in.Size,
			Color:     in.Color,
			Price:     in.Price,
			OldPrice:  in.OldPrice,
			Quantity:  in.Quantity,
		}
		return errors.Wrapf(tx.Create(&variant).Error, "create variant %s", in.SKU)
	}
	if err != nil {
		return errors.Wrapf(err, "find variant %s", in.SKU)
	}
	if variant.ProductID != productID {
		return errors.Wrap(ErrSKUTaken, in.SKU)
	}

	var oldPrice interface{}
	if in.OldPrice != nil {
		oldPrice = *in.OldPrice
	}
	err = tx.Model(&variant).Updates(map[string]interface{}{
		"size":      in.Size,
		"color":     in.Color,
		"price":     in.Price,
		"old_price": oldPrice,
		"quantity":  in.Quantity,
	}).Error
	return errors.Wrapf(err, "update variant %s", in.SKU)
}

func upsertImage(tx *gorm.DB, productID string, in ImageInput) error {
	var image models.ProductImage
	err := tx.Where("url = ?", in.URL).Take(&image).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		image = models.ProductImage{ProductID: productID, URL: in.URL, IsDefault: in.IsDefault}
		return errors.Wrapf(tx.Create(&image).Error, "create image %s", in.URL)
	}
	if err != nil {
		return errors.Wrapf(err, "find image %s", in.URL)
	}
	if image.ProductID != productID {
		return errors.Wrap(ErrImageTaken, in.URL)
	}
	return errors.Wrapf(tx.Model(&image).Update("is_default", in.IsDefault).Error, "update image %s", in.URL)
}

// TotalQuantity sums the quantity of every variant currently linked to the product.
func TotalQuantity(tx *gorm.DB, productID string) (int, error) {
	var quantities []int
	err := tx.Model(&models.ProductVariant{}).Where("product_id = ?", productID).Pluck("quantity", &quantities).Error
	if err != nil {
		return 0, errors.Wrap(err, "read variant quantities")
	}

	total := 0
	for _, q := range quantities {
		total += q
	}
	return total, nil
}

func refreshTotalQuantity(tx *gorm.DB, product *models.Product) error {
	total, err := TotalQuantity(tx, product.ID)
	if err != nil {
		return err
	}
	return errors.Wrap(tx.Model(product).Update("total_quantity", total).Error, "store total quantity")
}

// createConflict reports which unique value of a new product is already in
// use: the name or slug, a variant SKU or an image URL. Repeats inside the
// product itself count as conflicts too.
func createConflict(tx *gorm.DB, product *models.Product) error {
	taken, err := exists(tx.Model(&models.Product{}).Where("name = ? OR slug = ?", product.Name, product.Slug))
	if err != nil {
		return errors.Wrap(err, "check product name")
	}
	if taken {
		return errors.Wrap(ErrProductExists, product.Slug)
	}

	skus := make(map[string]struct{}, len(product.ProductVariants))
	for _, v := range product.ProductVariants {
		if _, ok := skus[v.SKU]; ok {
			return errors.Wrapf(ErrSKUTaken, "%s repeated", v.SKU)
		}
		skus[v.SKU] = struct{}{}
		taken, err := exists(tx.Model(&models.ProductVariant{}).Where("sku = ?", v.SKU))
		if err != nil {
			return errors.Wrapf(err, "check sku %s", v.SKU)
		}
		if taken {
			return errors.Wrap(ErrSKUTaken, v.SKU)
		}
	}

	urls := make(map[string]struct{}, len(product.ProductImages))
	for _, img := range product.ProductImages {
		if _, ok := urls[img.URL]; ok {
			return errors.Wrapf(ErrImageTaken, "%s repeated", img.URL)
		}
		urls[img.URL] = struct{}{}
		taken, err := exists(tx.Model(&models.ProductImage{}).Where("url = ?", img.URL))
		if err != nil {
			return errors.Wrapf(err, "check image %s", img.URL)
		}
		if taken {
			return errors.Wrap(ErrImageTaken, img.URL)
		}
	}
	return nil
}

func currencyOrDefault(id uint) uint {
	if id == 0 {
		return models.DefaultCurrencyID
	}
	return id
}

func currencyExists(tx *gorm.DB, id uint) error {
	ok, err := exists(tx.Model(&models.Currency{}).Where("id = ?", id))
	if err != nil {
		return errors.Wrap(err, "check currency")
	}
	if !ok {
		return errors.Wrapf(ErrInvalidReference, "currency %d", id)
	}
	return nil
}

// findTaxonomy loads the categories and tags by id; every id must exist.
func findTaxonomy(tx *gorm.DB, categoryIDs, tagIDs []uint) ([]models.Category, []models.Tag, error) {
	categories := []models.Category{}
	if len(categoryIDs) > 0 {
		if err := tx.Where("id IN ?", categoryIDs).Find(&categories).Error; err != nil {
			return nil, nil, errors.Wrap(err, "find categories")
		}
		if len(categories) != len(unique(categoryIDs)) {
			return nil, nil, errors.Wrap(ErrInvalidReference, "category")
		}
	}

	tags := []models.Tag{}
	if len(tagIDs) > 0 {
		if err := tx.Where("id IN ?", tagIDs).Find(&tags).Error; err != nil {
			return nil, nil, errors.Wrap(err, "find tags")
		}
		if len(tags) != len(unique(tagIDs)) {
			return nil, nil, errors.Wrap(ErrInvalidReference, "tag")
		}
	}

	return categories, tags, nil
}

func unique(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func exists(q *gorm.DB) (bool, error) {
	var count int64
	if err := q.Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
