package cms

import (
	"context"
	"fmt"
	"strings"

	"induction-portal/models"
)

// UpdateHome saves the welcome text and, when logo is non-empty, the logo file name.
func (s *Service) UpdateHome(ctx context.Context, text, logo, author string) error {
	return s.mutate(ctx, fmt.Sprintf("Home page updated (%s)", author), func(doc *models.Document) error {
		doc.Home.Text = text
		if logo != "" {
			doc.Home.Logo = logo
		}
		return nil
	})
}

// AddFAQ appends a question and answer pair.
func (s *Service) AddFAQ(ctx context.Context, q, a string) error {
	q, a = strings.TrimSpace(q), strings.TrimSpace(a)
	if q == "" || a == "" {
		return ErrInvalidFAQ
	}
	return s.mutate(ctx, "", func(doc *models.Document) error {
		doc.FAQ = append(doc.FAQ, models.FAQEntry{Q: q, A: a})
		return nil
	})
}

// UpdateFAQ replaces the entry at index.
func (s *Service) UpdateFAQ(ctx context.Context, index int, q, a string) error {
	q, a = strings.TrimSpace(q), strings.TrimSpace(a)
	if q == "" || a == "" {
		return ErrInvalidFAQ
	}
	return s.mutate(ctx, "", func(doc *models.Document) error {
		if index < 0 || index >= len(doc.FAQ) {
			return ErrFAQNotFound
		}
		doc.FAQ[index] = models.FAQEntry{Q: q, A: a}
		return nil
	})
}

// MoveFAQ shifts an entry one slot up (delta -1) or down (delta +1).
func (s *Service) MoveFAQ(ctx context.Context, index, delta int) error {
	return s.mutate(ctx, "", func(doc *models.Document) error {
		if index < 0 || index >= len(doc.FAQ) {
			return ErrFAQNotFound
		}
		return swap(doc.FAQ, index, delta)
	})
}

// DeleteFAQ removes the entry at index.
func (s *Service) DeleteFAQ(ctx context.Context, index int) error {
	return s.mutate(ctx, "", func(doc *models.Document) error {
		if index < 0 || index >= len(doc.FAQ) {
			return ErrFAQNotFound
		}
		doc.FAQ = append(doc.FAQ[:index], doc.FAQ[index+1:]...)
		return nil
	})
}
