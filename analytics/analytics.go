// Package analytics records guide views and completions and derives the
// admin dashboards from them.
package analytics

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"induction-portal/db"
	"induction-portal/metrics"
	"induction-portal/models"
	"induction-portal/session"
)

const dayLayout = "2006-01-02"

// ErrCategoryNotFound is returned when tracking a key that is not listed.
var ErrCategoryNotFound = errors.New("category not found")

// Aggregator ingests usage events into the document.
type Aggregator struct {
	repo  db.Repository
	clock func() time.Time
	log   *logrus.Entry
}

func NewAggregator(repo db.Repository) *Aggregator {
	return &Aggregator{
		repo:  repo,
		clock: time.Now,
		log:   logrus.WithField("component", "analytics"),
	}
}

// TrackPageView counts a view of key at most once per session.
func (a *Aggregator) TrackPageView(ctx context.Context, s *session.Session, key string) error {
	if s.HasViewed(key) {
		return nil
	}
	now := a.clock()
	err := a.repo.Mutate(ctx, func(doc *models.Document) error {
		if !doc.CategoriesList.Has(key) {
			return ErrCategoryNotFound
		}
		an := &doc.Analytics
		pv := an.PageViews[key]
		pv.Views++
		pv.LastViewed = models.Stamp(now)
		an.PageViews[key] = pv

		day := now.Format(dayLayout)
		if an.DailyViews[day] == nil {
			an.DailyViews[day] = map[string]int{}
		}
		an.DailyViews[day][key]++
		return nil
	})
	if err != nil {
		return err
	}
	s.MarkViewed(key)
	metrics.PageViewsTracked.WithLabelValues(key).Inc()
	return nil
}

// TrackCompletion counts a completed guide at most once per session.
func (a *Aggregator) TrackCompletion(ctx context.Context, s *session.Session, key string) error {
	if s.HasCompleted(key) {
		return nil
	}
	err := a.repo.Mutate(ctx, func(doc *models.Document) error {
		if !doc.CategoriesList.Has(key) {
			return ErrCategoryNotFound
		}
		doc.Analytics.Completions[key]++
		return nil
	})
	if err != nil {
		return err
	}
	s.MarkCompleted(key)
	metrics.CompletionsTracked.WithLabelValues(key).Inc()
	a.log.WithField("category", key).Info("guide completed")
	return nil
}

// CategorySummary is one row of the analytics summary.
type CategorySummary struct {
	Key            string  `json:"key"`
	Name           string  `json:"name"`
	Views          int     `json:"views"`
	Completions    int     `json:"completions"`
	CompletionRate float64 `json:"completion_rate"`
	TotalSteps     int     `json:"total_steps"`
	LastViewed     string  `json:"last_viewed,omitempty"`
}

// Summary reports every listed category, most viewed first. The completion
// rate is completions per view and may exceed 100.
func (a *Aggregator) Summary(ctx context.Context) ([]CategorySummary, error) {
	doc, err := a.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(doc), nil
}

func summarize(doc *models.Document) []CategorySummary {
	var rows []CategorySummary
	for _, e := range doc.CategoriesList.Entries() {
		pv := doc.Analytics.PageViews[e.Key]
		row := CategorySummary{
			Key:         e.Key,
			Name:        e.Name,
			Views:       pv.Views,
			Completions: doc.Analytics.Completions[e.Key],
			LastViewed:  pv.LastViewed,
		}
		if row.Views > 0 {
			row.CompletionRate = round1(100 * float64(row.Completions) / float64(row.Views))
		}
		if c := doc.Category(e.Key); c != nil {
			row.TotalSteps = len(c.Steps)
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Views > rows[j].Views })
	return rows
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Reset clears all view and completion counters.
func (a *Aggregator) Reset(ctx context.Context) error {
	return a.repo.Mutate(ctx, func(doc *models.Document) error {
		doc.Analytics = models.NewAnalytics()
		doc.AppendLog(a.clock(), "WARNING", "Analytics data reset")
		return nil
	})
}

// DayViews is the total number of views on one day.
type DayViews struct {
	Date  string `json:"date"`
	Views int    `json:"views"`
}

// DailyViews returns the totals of the last days, oldest first, today included.
func (a *Aggregator) DailyViews(ctx context.Context, days int) ([]DayViews, error) {
	doc, err := a.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return dailyViews(doc, a.clock(), days), nil
}

func dailyViews(doc *models.Document, now time.Time, days int) []DayViews {
	out := make([]DayViews, 0, max(days, 0))
	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format(dayLayout)
		total := 0
		for _, n := range doc.Analytics.DailyViews[day] {
			total += n
		}
		out = append(out, DayViews{Date: day, Views: total})
	}
	return out
}

// Dashboard is the analytics overview for admins.
type Dashboard struct {
	TotalViews        int
	TotalCompletions  int
	AvgCompletionRate float64
	ActiveGuides      int
	Top               []CategorySummary
	LastWeek          []DayViews
}

// Dashboard aggregates the summary into overview totals.
func (a *Aggregator) Dashboard(ctx context.Context) (Dashboard, error) {
	doc, err := a.repo.Load(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	rows := summarize(doc)
	d := Dashboard{LastWeek: dailyViews(doc, a.clock(), 7)}
	rateSum := 0.0
	for _, r := range rows {
		d.TotalViews += r.Views
		d.TotalCompletions += r.Completions
		rateSum += r.CompletionRate
		if r.Views > 0 {
			d.ActiveGuides++
		}
	}
	if len(rows) > 0 {
		d.AvgCompletionRate = round1(rateSum / float64(len(rows)))
	}
	d.Top = rows[:min(5, len(rows))]
	return d, nil
}
