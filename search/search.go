// Package search ranks categories and steps against a free-text query.
package search

import (
	"fmt"
	"sort"
	"strings"

	"induction-portal/models"
	"induction-portal/utils"
)

// Result types.
const (
	TypeCategory = "Category"
	TypeStep     = "Step"
)

// Scores by kind of hit.
const (
	ScoreExactName   = 100
	ScoreName        = 50
	ScoreDescription = 20
	ScoreStepTitle   = 10
	ScoreStepText    = 5
)

const previewLen = 100

// Result is one search hit. StepIndex is the 0-based step of a Step hit and
// nil for categories.
type Result struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Preview   string `json:"preview"`
	Location  string `json:"location"`
	Score     int    `json:"score"`
	StepIndex *int   `json:"step_index,omitempty"`
}

// Step returns the step index of a Step hit, 0 otherwise.
func (r Result) Step() int {
	if r.StepIndex == nil {
		return 0
	}
	return *r.StepIndex
}

// Search matches query case-insensitively against category names and
// descriptions and step titles and text. Queries shorter than two
// characters after trimming yield no results.
func Search(doc *models.Document, query string) []Result {
	q := strings.ToLower(strings.TrimSpace(query))
	if len([]rune(q)) < 2 {
		return nil
	}

	var results []Result
	for _, e := range doc.CategoriesList.Entries() {
		content := doc.Category(e.Key)
		if content == nil {
			content = models.NewCategoryContent()
		}
		name := strings.ToLower(e.Name)

		if strings.Contains(name, q) || strings.Contains(strings.ToLower(content.Description), q) {
			score := ScoreDescription
			switch {
			case strings.ToLower(utils.StripLabelPrefix(e.Name)) == q:
				score = ScoreExactName
			case strings.Contains(name, q):
				score = ScoreName
			}
			results = append(results, Result{
				Type:     TypeCategory,
				Title:    e.Name,
				Preview:  preview(content.Description, "No description"),
				Location: e.Key,
				Score:    score,
			})
		}

		for i, step := range content.Steps {
			inTitle := step.Title != "" && strings.Contains(strings.ToLower(step.Title), q)
			inText := step.Text != "" && strings.Contains(strings.ToLower(step.Text), q)
			if !inTitle && !inText {
				continue
			}
			title := step.Title
			if title == "" {
				title = fmt.Sprintf("Step %d", i+1)
			}
			score := ScoreStepText
			if inTitle {
				score = ScoreStepTitle
			}
			results = append(results, Result{
				Type:      TypeStep,
				Title:     e.Name + " > " + title,
				Preview:   strings.ReplaceAll(preview(step.Text, "Media Content"), "\n", " "),
				Location:  e.Key,
				Score:     score,
				StepIndex: &i,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

func preview(s, empty string) string {
	if s == "" {
		return empty
	}
	return utils.Truncate(s, previewLen) + "..."
}
