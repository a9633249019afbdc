package catalog

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"storefront/internal/models"
)

func (s *Service) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	category := models.Category{Name: name, Slug: Slugify(name)}
	if err := s.createNamed(ctx, &models.Category{}, &category, category.Slug); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.db.WithContext(ctx).Order("name").Find(&categories).Error
	return categories, errors.Wrap(err, "list categories")
}

func (s *Service) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	tag := models.Tag{Name: name, Slug: Slugify(name)}
	if err := s.createNamed(ctx, &models.Tag{}, &tag, tag.Slug); err != nil {
		return nil, err
	}
	return &tag, nil
}

func (s *Service) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	err := s.db.WithContext(ctx).Order("name").Find(&tags).Error
	return tags, errors.Wrap(err, "list tags")
}

// CategoryNameExists reports whether a category already uses name.
func (s *Service) CategoryNameExists(ctx context.Context, name string) (bool, error) {
	return exists(s.db.WithContext(ctx).Model(&models.Category{}).Where("name = ?", name))
}

// TagNameExists reports whether a tag already uses name.
func (s *Service) TagNameExists(ctx context.Context, name string) (bool, error) {
	return exists(s.db.WithContext(ctx).Model(&models.Tag{}).Where("name = ?", name))
}

// createNamed inserts a category or tag unless its slug is already used.
func (s *Service) createNamed(ctx context.Context, model, record interface{}, slug string) error {
	taken, err := exists(s.db.WithContext(ctx).Model(model).Where("slug = ?", slug))
	if err != nil {
		return errors.Wrap(err, "check slug")
	}
	if taken {
		return ErrNameTaken
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Wrap(ErrNameTaken, err.Error())
		}
		return errors.Wrap(err, "create")
	}
	return nil
}
