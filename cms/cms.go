// Package cms implements the admin content workflows. Every change runs in
// a single repository mutation and category content changes are preceded by
// a version snapshot taken in the same critical section.
package cms

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"induction-portal/db"
	"induction-portal/models"
)

// Service performs admin edits against the content repository.
type Service struct {
	repo     db.Repository
	mediaDir string
	clock    func() time.Time
	log      *logrus.Entry
}

// NewService returns a Service storing uploads under mediaDir.
func NewService(repo db.Repository, mediaDir string) *Service {
	return &Service{
		repo:     repo,
		mediaDir: mediaDir,
		clock:    time.Now,
		log:      logrus.WithField("component", "cms"),
	}
}

// MediaDir returns the upload directory.
func (s *Service) MediaDir() string { return s.mediaDir }

// editCategory snapshots the category, applies fn and stamps last_updated.
func (s *Service) editCategory(ctx context.Context, key, author, action string, fn func(c *models.CategoryContent) error) error {
	return s.repo.Mutate(ctx, func(doc *models.Document) error {
		if !doc.CategoriesList.Has(key) {
			return ErrCategoryNotFound
		}
		now := s.clock()
		SaveVersionSnapshot(doc, key, author, now)
		c := doc.EnsureCategory(key)
		if err := fn(c); err != nil {
			return err
		}
		stamp := models.Stamp(now)
		c.LastUpdated = &stamp
		doc.AppendLog(now, "INFO", fmt.Sprintf("%s: %s (%s)", action, key, author))
		return nil
	})
}

// mutate applies fn and records action in the system log.
func (s *Service) mutate(ctx context.Context, action string, fn func(doc *models.Document) error) error {
	return s.repo.Mutate(ctx, func(doc *models.Document) error {
		if err := fn(doc); err != nil {
			return err
		}
		if action != "" {
			doc.AppendLog(s.clock(), "INFO", action)
		}
		return nil
	})
}

func swap[T any](items []T, i, delta int) error {
	j := i + delta
	if i < 0 || i >= len(items) || j < 0 || j >= len(items) {
		return ErrCannotMove
	}
	items[i], items[j] = items[j], items[i]
	return nil
}
