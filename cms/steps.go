package cms

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"induction-portal/models"
)

// AddStep appends a custom step. Empty steps are accepted; callers warn.
func (s *Service) AddStep(ctx context.Context, key string, step models.Step, author string) error {
	return s.editCategory(ctx, key, author, "Step added", func(c *models.CategoryContent) error {
		c.Steps = append(c.Steps, step)
		return nil
	})
}

// AddMediaSteps appends one step per uploaded media file.
func (s *Service) AddMediaSteps(ctx context.Context, key string, filenames []string, author string) error {
	if len(filenames) == 0 {
		return ErrInvalidStep
	}
	return s.editCategory(ctx, key, author, "Media steps added", func(c *models.CategoryContent) error {
		for _, name := range filenames {
			kind := "Image"
			if IsVideoFile(name) {
				kind = "Video"
			}
			c.Steps = append(c.Steps, models.Step{
				Image: name,
				Text:  fmt.Sprintf("**Instructions:** Watch the %s above...", kind),
			})
		}
		return nil
	})
}

// AddVideoLinkStep appends a step embedding a video URL.
func (s *Service) AddVideoLinkStep(ctx context.Context, key, url, author string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return ErrInvalidStep
	}
	return s.editCategory(ctx, key, author, "Video step added", func(c *models.CategoryContent) error {
		c.Steps = append(c.Steps, models.Step{
			Title:    "Video Tutorial",
			VideoURL: url,
			Text:     "**Instructions:** Watch the video...",
		})
		return nil
	})
}

// UpdateStep edits the text fields of a step.
func (s *Service) UpdateStep(ctx context.Context, key string, index int, title, text, videoURL, author string) error {
	return s.editCategory(ctx, key, author, "Step updated", func(c *models.CategoryContent) error {
		if index < 0 || index >= len(c.Steps) {
			return ErrStepNotFound
		}
		c.Steps[index].Title = title
		c.Steps[index].Text = text
		c.Steps[index].VideoURL = videoURL
		return nil
	})
}

// ReplaceStepMedia points a step at a new media file. The old file stays on disk.
func (s *Service) ReplaceStepMedia(ctx context.Context, key string, index int, filename, author string) error {
	return s.editCategory(ctx, key, author, "Step media replaced", func(c *models.CategoryContent) error {
		if index < 0 || index >= len(c.Steps) {
			return ErrStepNotFound
		}
		c.Steps[index].Image = filename
		return nil
	})
}

// MoveStep shifts a step one slot up (delta -1) or down (delta +1).
func (s *Service) MoveStep(ctx context.Context, key string, index, delta int, author string) error {
	return s.editCategory(ctx, key, author, "Step moved", func(c *models.CategoryContent) error {
		if index < 0 || index >= len(c.Steps) {
			return ErrStepNotFound
		}
		return swap(c.Steps, index, delta)
	})
}

// DeleteStep removes a step. Its media file stays on disk.
func (s *Service) DeleteStep(ctx context.Context, key string, index int, author string) error {
	return s.editCategory(ctx, key, author, "Step deleted", func(c *models.CategoryContent) error {
		if index < 0 || index >= len(c.Steps) {
			return ErrStepNotFound
		}
		c.Steps = append(c.Steps[:index], c.Steps[index+1:]...)
		return nil
	})
}

// IsVideoFile reports whether name looks like an uploaded video.
func IsVideoFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4", ".mov", ".avi", ".webm":
		return true
	}
	return false
}
