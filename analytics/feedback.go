package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"

	"induction-portal/models"
)

// StepFeedback is the vote tally of one step.
type StepFeedback struct {
	Key          string
	CategoryKey  string
	CategoryName string
	StepIndex    int
	StepTitle    string
	Helpful      int
	NotHelpful   int
	// Ratio is the helpful share in percent, rounded.
	Ratio int
}

// FeedbackReport summarizes anonymous step feedback.
type FeedbackReport struct {
	TotalHelpful     int
	TotalNotHelpful  int
	TotalVotes       int
	SatisfactionRate float64
	Steps            []StepFeedback
}

// FeedbackSummary totals all votes and lists steps with at least one vote,
// most "not helpful" votes first.
func (a *Aggregator) FeedbackSummary(ctx context.Context) (FeedbackReport, error) {
	doc, err := a.repo.Load(ctx)
	if err != nil {
		return FeedbackReport{}, err
	}

	var r FeedbackReport
	keys := make([]string, 0, len(doc.StepFeedback))
	for k, fb := range doc.StepFeedback {
		r.TotalHelpful += fb.Helpful
		r.TotalNotHelpful += fb.NotHelpful
		keys = append(keys, k)
	}
	r.TotalVotes = r.TotalHelpful + r.TotalNotHelpful
	if r.TotalVotes > 0 {
		r.SatisfactionRate = round1(100 * float64(r.TotalHelpful) / float64(r.TotalVotes))
	}

	sort.Strings(keys)
	for _, k := range keys {
		fb := doc.StepFeedback[k]
		total := fb.Helpful + fb.NotHelpful
		catKey, idx, ok := models.ParseStepKey(k)
		if !ok || total == 0 {
			continue
		}
		row := StepFeedback{
			Key:          k,
			CategoryKey:  catKey,
			CategoryName: catKey,
			StepIndex:    idx,
			StepTitle:    fmt.Sprintf("Step %d", idx+1),
			Helpful:      fb.Helpful,
			NotHelpful:   fb.NotHelpful,
			Ratio:        int(math.RoundToEven(100 * float64(fb.Helpful) / float64(total))),
		}
		if name, ok := doc.CategoriesList.Name(catKey); ok {
			row.CategoryName = name
		}
		if c := doc.Category(catKey); c != nil && idx < len(c.Steps) && c.Steps[idx].Title != "" {
			row.StepTitle = c.Steps[idx].Title
		}
		r.Steps = append(r.Steps, row)
	}
	sort.SliceStable(r.Steps, func(i, j int) bool { return r.Steps[i].NotHelpful > r.Steps[j].NotHelpful })
	return r, nil
}

// ClearFeedback drops all step feedback.
func (a *Aggregator) ClearFeedback(ctx context.Context) error {
	return a.repo.Mutate(ctx, func(doc *models.Document) error {
		doc.StepFeedback = map[string]models.FeedbackCounts{}
		doc.AppendLog(a.clock(), "WARNING", "Step feedback cleared")
		return nil
	})
}
