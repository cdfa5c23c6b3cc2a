package db

import (
	"encoding/json"
	"fmt"

	"induction-portal/models"
)

// Migrate decodes a stored document and brings it up to the current shape.
// Missing top-level keys are backfilled from defaults, and every declared
// category without content gets an empty body. It reports whether anything
// was added, in which case the caller persists the result once.
func Migrate(data []byte, defaults func() *models.Document) (*models.Document, bool, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw == nil {
		return nil, false, fmt.Errorf("%w: document is not an object", ErrMalformed)
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	changed := false
	var def *models.Document
	for _, key := range models.TopLevelKeys {
		if _, ok := raw[key]; ok {
			continue
		}
		if def == nil {
			def = defaults()
		}
		backfill(&doc, def, key)
		changed = true
	}

	for _, key := range doc.CategoriesList.Keys() {
		if _, ok := doc.Categories[key]; ok {
			continue
		}
		doc.EnsureCategory(key)
		changed = true
	}

	if hasLegacyLogs(raw[models.KeySystemLogs]) {
		changed = true
	}

	doc.Normalize()
	return &doc, changed, nil
}

func backfill(doc, def *models.Document, key string) {
	switch key {
	case models.KeyHome:
		doc.Home = def.Home
	case models.KeyCategoriesList:
		doc.CategoriesList = models.NewCategoryList(def.CategoriesList.Entries()...)
		for k, c := range def.Categories {
			if doc.Categories == nil {
				doc.Categories = map[string]*models.CategoryContent{}
			}
			if _, ok := doc.Categories[k]; !ok {
				doc.Categories[k] = c.Clone()
			}
			delete(doc.Extra, k)
		}
		// Keys that were only unknown extras become categories now.
		for _, k := range doc.CategoriesList.Keys() {
			raw, ok := doc.Extra[k]
			if !ok {
				continue
			}
			var c models.CategoryContent
			if err := json.Unmarshal(raw, &c); err == nil {
				if doc.Categories == nil {
					doc.Categories = map[string]*models.CategoryContent{}
				}
				doc.Categories[k] = &c
				delete(doc.Extra, k)
			}
		}
	case models.KeyFAQ:
		doc.FAQ = append([]models.FAQEntry{}, def.FAQ...)
	case models.KeyAdmins:
		doc.Admins = map[string]string{}
	case models.KeySystemLogs:
		doc.SystemLogs = []models.LogEntry{}
	case models.KeyVersionHistory:
		doc.VersionHistory = map[string][]models.Version{}
	case models.KeyUserProfiles:
		doc.UserProfiles = map[string]models.UserProfile{}
	case models.KeyUserProgress:
		doc.UserProgress = map[string]map[string][]string{}
	case models.KeyQuizResults:
		doc.QuizResults = map[string]map[string]models.QuizResult{}
	case models.KeyBookmarks:
		doc.Bookmarks = map[string][]string{}
	case models.KeyStepFeedback:
		doc.StepFeedback = map[string]models.FeedbackCounts{}
	case models.KeyAnalytics:
		doc.Analytics = models.NewAnalytics()
	}
}

func hasLegacyLogs(raw json.RawMessage) bool {
	if raw == nil {
		return false
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return false
	}
	for _, e := range entries {
		if len(e) > 0 && e[0] == '"' {
			return true
		}
	}
	return false
}
