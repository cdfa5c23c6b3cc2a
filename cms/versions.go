package cms

import (
	"context"
	"fmt"
	"time"

	"induction-portal/models"
)

// MaxVersions is how many snapshots a category keeps.
const MaxVersions = 10

// SaveVersionSnapshot appends a deep copy of the category's current content
// to its history and trims the history to MaxVersions. The version number is
// one more than the newest retained version, so numbers never repeat.
func SaveVersionSnapshot(doc *models.Document, key, author string, now time.Time) models.Version {
	if doc.VersionHistory == nil {
		doc.VersionHistory = map[string][]models.Version{}
	}
	history := doc.VersionHistory[key]
	next := 1
	if n := len(history); n > 0 {
		next = history[n-1].Version + 1
	}
	snapshot := doc.Category(key).Clone()
	if author == "" {
		author = "admin"
	}
	v := models.Version{
		Version:         next,
		Timestamp:       models.Stamp(now),
		Author:          author,
		ContentSnapshot: snapshot,
		StepCount:       len(snapshot.Steps),
	}
	history = append(history, v)
	if len(history) > MaxVersions {
		history = append([]models.Version(nil), history[len(history)-MaxVersions:]...)
	}
	doc.VersionHistory[key] = history
	return v
}

// SaveVersionSnapshot records a snapshot of key outside of an edit.
func (s *Service) SaveVersionSnapshot(ctx context.Context, key, author string) (models.Version, error) {
	var v models.Version
	err := s.repo.Mutate(ctx, func(doc *models.Document) error {
		if !doc.CategoriesList.Has(key) {
			return ErrCategoryNotFound
		}
		v = SaveVersionSnapshot(doc, key, author, s.clock())
		return nil
	})
	return v, err
}

// VersionHistory returns the category's snapshots newest first.
func (s *Service) VersionHistory(ctx context.Context, key string) ([]models.Version, error) {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return newestFirst(doc.VersionHistory[key]), nil
}

func newestFirst(history []models.Version) []models.Version {
	out := make([]models.Version, len(history))
	for i, v := range history {
		out[len(history)-1-i] = v
	}
	return out
}

// RestoreVersion replaces the category content with the snapshot carrying
// the given version number. The current content is snapshotted first.
func (s *Service) RestoreVersion(ctx context.Context, key string, version int, author string) error {
	return s.repo.Mutate(ctx, func(doc *models.Document) error {
		if !doc.CategoriesList.Has(key) {
			return ErrCategoryNotFound
		}
		var target *models.Version
		for i := range doc.VersionHistory[key] {
			if doc.VersionHistory[key][i].Version == version {
				target = &doc.VersionHistory[key][i]
				break
			}
		}
		if target == nil {
			return ErrVersionNotFound
		}
		restored := target.ContentSnapshot.Clone()

		now := s.clock()
		SaveVersionSnapshot(doc, key, author, now)
		stamp := models.Stamp(now)
		restored.LastUpdated = &stamp
		if doc.Categories == nil {
			doc.Categories = map[string]*models.CategoryContent{}
		}
		doc.Categories[key] = restored
		doc.AppendLog(now, "INFO", fmt.Sprintf("Restored %s to v%d (%s)", key, version, author))
		return nil
	})
}

// LastUpdated returns the last_updated stamp of key, or "" when never edited.
func (s *Service) LastUpdated(ctx context.Context, key string) (string, error) {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		return "", err
	}
	if c := doc.Category(key); c != nil && c.LastUpdated != nil {
		return *c.LastUpdated, nil
	}
	return "", nil
}
