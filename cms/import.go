package cms

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"induction-portal/models"
)

// ImportResult describes one imported guide.
type ImportResult struct {
	Key     string `json:"key"`
	Created bool   `json:"created"`
	Steps   int    `json:"steps"`
	Quiz    int    `json:"quiz"`
}

// ParseCategoryYAML decodes and validates a guide file.
func ParseCategoryYAML(data []byte) (models.CategoryYAML, error) {
	var c models.CategoryYAML
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("%w: %w", ErrInvalidYAML, err)
	}
	c.Key, c.Name = strings.TrimSpace(c.Key), strings.TrimSpace(c.Name)
	if c.Key == "" || c.Name == "" {
		return c, ErrInvalidCategory
	}
	if err := ValidateCategoryKey(c.Key); err != nil {
		return c, err
	}
	for i, q := range c.Quiz {
		if err := ValidateQuestion(q); err != nil {
			return c, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	if c.EstimatedTime != nil && *c.EstimatedTime < 0 {
		return c, ErrInvalidEstimate
	}
	return c, nil
}

// ImportCategoryYAML creates the guide described by data, or replaces the
// content of an existing guide with the same key after snapshotting it.
func (s *Service) ImportCategoryYAML(ctx context.Context, data []byte, author string) (ImportResult, error) {
	c, err := ParseCategoryYAML(data)
	if err != nil {
		return ImportResult{}, err
	}
	res := ImportResult{Key: c.Key, Steps: len(c.Steps), Quiz: len(c.Quiz)}

	err = s.repo.Mutate(ctx, func(doc *models.Document) error {
		now := s.clock()
		res.Created = !doc.CategoriesList.Has(c.Key)
		if !res.Created {
			SaveVersionSnapshot(doc, c.Key, author, now)
		}
		doc.CategoriesList.Set(c.Key, c.Name)
		content := c.Content()
		stamp := models.Stamp(now)
		content.LastUpdated = &stamp
		doc.Categories[c.Key] = content
		doc.AppendLog(now, "INFO", fmt.Sprintf("Guide imported: %s (%d steps, %s)", c.Key, len(c.Steps), author))
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return res, nil
}

// ImportDir imports every *.yaml and *.yml file in dir in name order. It
// stops at the first invalid file.
func (s *Service) ImportDir(ctx context.Context, dir, author string) ([]ImportResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read import directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	var results []ImportResult
	for _, name := range files {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return results, fmt.Errorf("failed to read %s: %w", path, err)
		}
		res, err := s.ImportCategoryYAML(ctx, data, author)
		if err != nil {
			s.log.WithError(err).WithField("file", path).Error("guide import failed")
			return results, fmt.Errorf("%s: %w", name, err)
		}
		results = append(results, res)
	}
	return results, nil
}
