package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	kids, err := f.svc.CreateCategory(ctx, "Kids & Baby")
	require.NoError(t, err)
	assert.Equal(t, "kids-baby", kids.Slug)
	f.category(t, "Accessories")

	_, err = f.svc.CreateCategory(ctx, "Kids & Baby")
	assert.Equal(t, ErrNameTaken, err)

	categories, err := f.svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Accessories", categories[0].Name)

	ok, err := f.svc.CategoryNameExists(ctx, "Accessories")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tag, err := f.svc.CreateTag(ctx, "New In")
	require.NoError(t, err)
	assert.Equal(t, "new-in", tag.Slug)

	_, err = f.svc.CreateTag(ctx, "new in")
	assert.Equal(t, ErrNameTaken, err, "names that slugify the same collide")

	tags, err := f.svc.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1)

	ok, err := f.svc.TagNameExists(ctx, "Sale")
	require.NoError(t, err)
	assert.False(t, ok)
}
