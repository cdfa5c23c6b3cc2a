package cms

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"induction-portal/models"
)

var categoryKeyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateCategoryKey checks the id of a new category.
func ValidateCategoryKey(key string) error {
	if !categoryKeyPattern.MatchString(key) {
		return ErrInvalidCategory
	}
	if models.IsReservedKey(key) || key == "admin" {
		return ErrReservedKey
	}
	return nil
}

// CreateCategory appends a new, empty category to the menu.
func (s *Service) CreateCategory(ctx context.Context, key, name, author string) error {
	key, name = strings.TrimSpace(key), strings.TrimSpace(name)
	if key == "" || name == "" {
		return ErrInvalidCategory
	}
	if err := ValidateCategoryKey(key); err != nil {
		return err
	}
	return s.mutate(ctx, fmt.Sprintf("Category created: %s (%s)", key, author), func(doc *models.Document) error {
		if doc.CategoriesList.Has(key) {
			return ErrCategoryExists
		}
		doc.CategoriesList.Set(key, name)
		doc.Categories[key] = models.NewCategoryContent()
		return nil
	})
}

// DeleteCategory removes the category from the menu together with its
// content. Version history and user data are kept.
func (s *Service) DeleteCategory(ctx context.Context, key, author string) error {
	return s.repo.Mutate(ctx, func(doc *models.Document) error {
		if !doc.CategoriesList.Has(key) {
			return ErrCategoryNotFound
		}
		now := s.clock()
		SaveVersionSnapshot(doc, key, author, now)
		doc.CategoriesList.Delete(key)
		delete(doc.Categories, key)
		doc.AppendLog(now, "WARNING", fmt.Sprintf("Category deleted: %s (%s)", key, author))
		return nil
	})
}

// RenameCategory changes the display name, keeping the menu position.
func (s *Service) RenameCategory(ctx context.Context, key, name, author string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidCategory
	}
	return s.mutate(ctx, fmt.Sprintf("Category renamed: %s -> %s (%s)", key, name, author), func(doc *models.Document) error {
		if !doc.CategoriesList.Has(key) {
			return ErrCategoryNotFound
		}
		doc.CategoriesList.Set(key, name)
		return nil
	})
}

// MoveCategory shifts the category one slot up (delta -1) or down (delta +1).
func (s *Service) MoveCategory(ctx context.Context, key string, delta int) error {
	return s.mutate(ctx, "", func(doc *models.Document) error {
		if !doc.CategoriesList.Has(key) {
			return ErrCategoryNotFound
		}
		if !doc.CategoriesList.Move(key, delta) {
			return ErrCannotMove
		}
		return nil
	})
}

// SetDescription replaces the guide intro text.
func (s *Service) SetDescription(ctx context.Context, key, description, author string) error {
	return s.editCategory(ctx, key, author, "Description updated", func(c *models.CategoryContent) error {
		c.Description = description
		return nil
	})
}

// SetEstimatedTime overrides the reading time in minutes; nil restores the
// default of two minutes per step.
func (s *Service) SetEstimatedTime(ctx context.Context, key string, minutes *int, author string) error {
	if minutes != nil && *minutes < 0 {
		return ErrInvalidEstimate
	}
	return s.editCategory(ctx, key, author, "Estimated time updated", func(c *models.CategoryContent) error {
		if minutes == nil {
			c.EstimatedTime = nil
			return nil
		}
		v := *minutes
		c.EstimatedTime = &v
		return nil
	})
}
