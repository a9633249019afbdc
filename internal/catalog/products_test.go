package catalog

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/events"
	"storefront/internal/models"
)

func sumQuantities(variants []models.ProductVariant) int {
	total := 0
	for _, v := range variants {
		total += v.Quantity
	}
	return total
}

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	women := f.category(t, "Women")
	summer := f.tag(t, "Summer")

	in := productInput("Summer Dress", variant("dress-s", 3, "49.90", "red"), variant("dress-m", 4, "49.90", "red"))
	in.CurrencyID = 0
	in.Categories = []uint{women.ID}
	in.Tags = []uint{summer.ID}

	product, err := f.svc.CreateProduct(ctx, in)
	require.NoError(t, err)

	assert.NotEmpty(t, product.ID)
	assert.Equal(t, "summer-dress", product.Slug)
	assert.Equal(t, models.DefaultCurrencyID, product.CurrencyID)
	assert.Equal(t, 7, product.TotalQuantity)
	assert.Equal(t, sumQuantities(product.ProductVariants), product.TotalQuantity)
	require.Len(t, product.ProductVariants, 2)
	assert.Equal(t, "49.9", product.ProductVariants[0].Price.String())
	assert.JSONEq(t, `"M"`, string(product.ProductVariants[0].Size))
	require.Len(t, product.ProductImages, 1)
	require.Len(t, product.Categories, 1)
	assert.Equal(t, "women", product.Categories[0].Slug)
	require.Len(t, product.Tags, 1)
	assert.Equal(t, "summer", product.Tags[0].Slug)

	assert.Equal(t, []string{events.ProductCreated}, f.publisher.types())
}

func TestCreateProduct_UnknownCategoryWritesNothing(t *testing.T) {
	f := newFixture(t)
	in := productInput("Linen Shirt")
	in.Categories = []uint{999}

	_, err := f.svc.CreateProduct(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidReference))

	var count int64
	require.NoError(t, f.db.Model(&models.Product{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, f.db.Model(&models.ProductVariant{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.publisher.types())
}

func TestCreateProduct_UnknownCurrency(t *testing.T) {
	f := newFixture(t)
	in := productInput("Linen Shirt")
	in.CurrencyID = 42

	_, err := f.svc.CreateProduct(context.Background(), in)
	assert.True(t, errors.Is(err, ErrInvalidReference))
}

func TestCreateProduct_DuplicateName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateProduct(ctx, productInput("Wool Hat", variant("hat-1", 1, "20", "")))
	require.NoError(t, err)

	_, err = f.svc.CreateProduct(ctx, productInput("Wool Hat", variant("hat-2", 1, "20", "")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProductExists))
}

func TestCreateProduct_Conflicts(t *testing.T) {
	tests := []struct {
		name  string
		input func() ProductInput
		want  error
	}{
		{
			name: "sku of another product",
			input: func() ProductInput {
				return productInput("Cotton Tee", variant("hat-1", 1, "10", ""))
			},
			want: ErrSKUTaken,
		},
		{
			name: "sku repeated in the product",
			input: func() ProductInput {
				return productInput("Cotton Tee", variant("tee-1", 1, "10", ""), variant("tee-1", 2, "10", ""))
			},
			want: ErrSKUTaken,
		},
		{
			name: "image url of another product",
			input: func() ProductInput {
				in := productInput("Cotton Tee", variant("tee-1", 1, "10", ""))
				in.Images = []ImageInput{{URL: "https://cdn.example.com/wool-hat.jpg"}}
				return in
			},
			want: ErrImageTaken,
		},
		{
			name: "image url repeated in the product",
			input: func() ProductInput {
				in := productInput("Cotton Tee", variant("tee-1", 1, "10", ""))
				in.Images = append(in.Images, in.Images[0])
				return in
			},
			want: ErrImageTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			_, err := f.svc.CreateProduct(ctx, productInput("Wool Hat", variant("hat-1", 1, "20", "")))
			require.NoError(t, err)

			_, err = f.svc.CreateProduct(ctx, tt.input())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err.Error())
			assert.False(t, errors.Is(err, ErrProductExists))

			var count int64
			require.NoError(t, f.db.Model(&models.Product{}).Count(&count).Error)
			assert.EqualValues(t, 1, count)
		})
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetProduct(context.Background(), "missing")
	assert.Equal(t, ErrProductNotFound, err)
}

func TestUpdateProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	men := f.category(t, "Men")
	women := f.category(t, "Women")
	sale := f.tag(t, "Sale")

	in := productInput("Rain Jacket", variant("jacket-s", 2, "80", "black"), variant("jacket-m", 3, "80", "black"))
	in.Categories = []uint{men.ID}
	in.Tags = []uint{sale.ID}
	_, err := f.svc.CreateProduct(ctx, in)
	require.NoError(t, err)

	update := productInput("Storm Jacket", variant("jacket-s", 10, "75", "navy"), variant("jacket-l", 1, "75", ""))
	update.Images = []ImageInput{
		{URL: "https://cdn.example.com/rain-jacket.jpg", IsDefault: false},
		{URL: "https://cdn.example.com/storm-jacket.jpg", IsDefault: true},
	}
	update.Categories = []uint{women.ID}
	update.Tags = nil

	product, err := f.svc.UpdateProduct(ctx, "rain-jacket", update)
	require.NoError(t, err)

	assert.Equal(t, "Storm Jacket", product.Name)
	assert.Equal(t, "storm-jacket", product.Slug)
	require.Len(t, product.ProductVariants, 3, "jacket-m is kept, jacket-l is added")
	assert.Equal(t, 14, product.TotalQuantity)
	assert.Equal(t, sumQuantities(product.ProductVariants), product.TotalQuantity)

	bySKU := map[string]models.ProductVariant{}
	for _, v := range product.ProductVariants {
		bySKU[v.SKU] = v
	}
	assert.Equal(t, 10, bySKU["jacket-s"].Quantity)
	require.NotNil(t, bySKU["jacket-s"].Color)
	assert.Equal(t, "navy", *bySKU["jacket-s"].Color)
	assert.Nil(t, bySKU["jacket-l"].Color)

	require.Len(t, product.ProductImages, 2)
	assert.False(t, product.ProductImages[0].IsDefault)
	assert.True(t, product.ProductImages[1].IsDefault)

	require.Len(t, product.Categories, 1)
	assert.Equal(t, women.ID, product.Categories[0].ID)
	assert.Empty(t, product.Tags)

	_, err = f.svc.GetProduct(ctx, "rain-jacket")
	assert.Equal(t, ErrProductNotFound, err)

	assert.Equal(t, []string{events.ProductCreated, events.ProductUpdated}, f.publisher.types())
}

func TestUpdateProduct_SlugConflictLeavesProductUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateProduct(ctx, productInput("Canvas Bag", variant("bag-1", 2, "30", "")))
	require.NoError(t, err)
	_, err = f.svc.CreateProduct(ctx, productInput("Leather Bag", variant("bag-2", 5, "120", "")))
	require.NoError(t, err)

	_, err = f.svc.UpdateProduct(ctx, "canvas-bag", productInput("Leather Bag", variant("bag-1", 50, "30", "")))
	assert.Equal(t, ErrProductExists, err)

	product, err := f.svc.GetProduct(ctx, "canvas-bag")
	require.NoError(t, err)
	assert.Equal(t, "Canvas Bag", product.Name)
	assert.Equal(t, 2, product.TotalQuantity)
	assert.Equal(t, 2, product.ProductVariants[0].Quantity)
}

func TestUpdateProduct_SameNameKeepsSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateProduct(ctx, productInput("Canvas Bag", variant("bag-1", 2, "30", "")))
	require.NoError(t, err)

	product, err := f.svc.UpdateProduct(ctx, "canvas-bag", productInput("Canvas Bag", variant("bag-1", 9, "30", "")))
	require.NoError(t, err)
	assert.Equal(t, "canvas-bag", product.Slug)
	assert.Equal(t, 9, product.TotalQuantity)
}

func TestUpdateProduct_SKUOfAnotherProductRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateProduct(ctx, productInput("Canvas Bag", variant("bag-1", 2, "30", "")))
	require.NoError(t, err)
	_, err = f.svc.CreateProduct(ctx, productInput("Leather Bag", variant("bag-2", 5, "120", "")))
	require.NoError(t, err)

	_, err = f.svc.UpdateProduct(ctx, "canvas-bag", productInput("Canvas Tote", variant("bag-2", 1, "30", "")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSKUTaken))

	product, err := f.svc.GetProduct(ctx, "canvas-bag")
	require.NoError(t, err)
	assert.Equal(t, "Canvas Bag", product.Name)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateProduct(context.Background(), "missing", productInput("Anything"))
	assert.Equal(t, ErrProductNotFound, err)
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale := f.tag(t, "Sale")
	in := productInput("Wool Hat", variant("hat-1", 1, "20", ""))
	in.Tags = []uint{sale.ID}
	product, err := f.svc.CreateProduct(ctx, in)
	require.NoError(t, err)
	_, err = f.svc.RecordView(ctx, "wool-hat", "Mozilla/5.0")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteProduct(ctx, "wool-hat"))

	for _, model := range []interface{}{&models.Product{}, &models.ProductVariant{}, &models.ProductImage{}, &models.ProductView{}, &models.Visitor{}} {
		var count int64
		require.NoError(t, f.db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T rows remain", model)
	}
	var links int64
	require.NoError(t, f.db.Table("product_tags").Where("product_id = ?", product.ID).Count(&links).Error)
	assert.Zero(t, links)

	var tags int64
	require.NoError(t, f.db.Model(&models.Tag{}).Count(&tags).Error)
	assert.EqualValues(t, 1, tags, "tags themselves survive")

	assert.Equal(t, ErrProductNotFound, f.svc.DeleteProduct(ctx, "wool-hat"))
}

func TestExistenceChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateProduct(ctx, productInput("Wool Hat", variant("hat-1", 1, "20", "")))
	require.NoError(t, err)

	ok, err := f.svc.ProductNameExists(ctx, "Wool Hat")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.ProductNameExists(ctx, "Silk Hat")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.SKUExists(ctx, "hat-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
