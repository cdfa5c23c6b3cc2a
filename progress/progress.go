// Package progress tracks per-user step completion, quiz results, bookmarks
// and anonymous step feedback inside the content document.
package progress

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"induction-portal/db"
	"induction-portal/identity"
	"induction-portal/models"
	"induction-portal/session"
	"induction-portal/utils"
)

// Feedback kinds accepted by SaveStepFeedback.
const (
	Helpful    = "helpful"
	NotHelpful = "not_helpful"
)

var (
	// ErrInvalidFeedback is returned for an unknown feedback kind.
	ErrInvalidFeedback = errors.New("feedback must be helpful or not_helpful")

	ErrCategoryNotFound = errors.New("category not found")
	ErrStepNotFound     = errors.New("step not found")
)

// Tracker records progress for the user behind a session.
type Tracker struct {
	repo  db.Repository
	ids   *identity.Resolver
	clock func() time.Time
	log   *logrus.Entry
}

func NewTracker(repo db.Repository, ids *identity.Resolver) *Tracker {
	return &Tracker{
		repo:  repo,
		ids:   ids,
		clock: time.Now,
		log:   logrus.WithField("component", "progress"),
	}
}

// SaveUserProgress overwrites the completed step ids of the user for key.
func (t *Tracker) SaveUserProgress(ctx context.Context, s *session.Session, key string, stepIDs []string) error {
	uid := t.ids.UserID(s)
	return t.repo.Mutate(ctx, func(doc *models.Document) error {
		setProgress(doc, uid, key, stepIDs)
		return nil
	})
}

// checkStep rejects writes for categories that are not listed and step
// indexes outside the category.
func checkStep(doc *models.Document, key string, index int) error {
	if !doc.CategoriesList.Has(key) {
		return ErrCategoryNotFound
	}
	c := doc.Category(key)
	if c == nil || index < 0 || index >= len(c.Steps) {
		return ErrStepNotFound
	}
	return nil
}

func setProgress(doc *models.Document, uid, key string, stepIDs []string) {
	if doc.UserProgress[uid] == nil {
		doc.UserProgress[uid] = map[string][]string{}
	}
	doc.UserProgress[uid][key] = append([]string{}, stepIDs...)
}

// LoadUserProgress returns the completed step ids of the user for key.
// Failures yield an empty list.
func (t *Tracker) LoadUserProgress(ctx context.Context, s *session.Session, key string) []string {
	uid := t.ids.UserID(s)
	doc, err := t.repo.Load(ctx)
	if err != nil {
		t.log.WithError(err).Warn("failed to load user progress")
		return []string{}
	}
	return append([]string{}, doc.UserProgress[uid][key]...)
}

// ToggleStep flips completion of the step at the 0-based index and reports
// whether the guide is complete afterwards.
func (t *Tracker) ToggleStep(ctx context.Context, s *session.Session, key string, index int) (bool, error) {
	uid := t.ids.UserID(s)
	id := models.StepID(index)
	complete := false
	err := t.repo.Mutate(ctx, func(doc *models.Document) error {
		if err := checkStep(doc, key, index); err != nil {
			return err
		}
		done := doc.UserProgress[uid][key]
		if utils.ContainsString(done, id) {
			done = utils.RemoveString(done, id)
		} else {
			done = append(append([]string{}, done...), id)
		}
		setProgress(doc, uid, key, done)

		total := len(doc.Category(key).Steps)
		complete = total > 0 && len(done) >= total
		return nil
	})
	return complete, err
}

// SaveBookmark adds or removes the bookmark of a step. Both directions are
// idempotent. Only existing steps can be added; removal also accepts
// bookmarks left behind by deleted content.
func (t *Tracker) SaveBookmark(ctx context.Context, s *session.Session, key string, stepIndex int, add bool) error {
	uid := t.ids.UserID(s)
	id := models.StepKey(key, stepIndex)
	return t.repo.Mutate(ctx, func(doc *models.Document) error {
		marks := doc.Bookmarks[uid]
		has := utils.ContainsString(marks, id)
		if add && !has {
			if err := checkStep(doc, key, stepIndex); err != nil {
				return err
			}
		}
		switch {
		case add && !has:
			doc.Bookmarks[uid] = append(marks, id)
		case !add && has:
			doc.Bookmarks[uid] = utils.RemoveString(marks, id)
		case marks == nil:
			doc.Bookmarks[uid] = []string{}
		}
		return nil
	})
}

// LoadBookmarks returns the user's bookmark ids. Failures yield an empty list.
func (t *Tracker) LoadBookmarks(ctx context.Context, s *session.Session) []string {
	uid := t.ids.UserID(s)
	doc, err := t.repo.Load(ctx)
	if err != nil {
		t.log.WithError(err).Warn("failed to load bookmarks")
		return []string{}
	}
	return append([]string{}, doc.Bookmarks[uid]...)
}

// BookmarkLink is a resolved bookmark for the sidebar.
type BookmarkLink struct {
	ID           string `json:"id"`
	Key          string `json:"key"`
	StepIndex    int    `json:"step_index"`
	CategoryName string `json:"category_name"`
	StepTitle    string `json:"step_title"`
}

// Bookmarks resolves the user's bookmarks against the current content.
// Bookmarks of removed categories keep their key as the category name.
func (t *Tracker) Bookmarks(ctx context.Context, s *session.Session) []BookmarkLink {
	uid := t.ids.UserID(s)
	doc, err := t.repo.Load(ctx)
	if err != nil {
		t.log.WithError(err).Warn("failed to load bookmarks")
		return nil
	}
	var links []BookmarkLink
	for _, id := range doc.Bookmarks[uid] {
		key, idx, ok := models.ParseStepKey(id)
		if !ok {
			continue
		}
		link := BookmarkLink{ID: id, Key: key, StepIndex: idx, CategoryName: key}
		if name, ok := doc.CategoriesList.Name(key); ok {
			link.CategoryName = name
		}
		if c := doc.Category(key); c != nil && idx < len(c.Steps) && c.Steps[idx].Title != "" {
			link.StepTitle = c.Steps[idx].Title
		} else {
			link.StepTitle = stepLabel(idx)
		}
		links = append(links, link)
	}
	return links
}

// SaveQuizResult overwrites the user's result for key.
func (t *Tracker) SaveQuizResult(ctx context.Context, s *session.Session, key string, score, total int, passed bool) error {
	uid := t.ids.UserID(s)
	return t.repo.Mutate(ctx, func(doc *models.Document) error {
		if doc.QuizResults[uid] == nil {
			doc.QuizResults[uid] = map[string]models.QuizResult{}
		}
		doc.QuizResults[uid][key] = models.QuizResult{
			Score:       score,
			Total:       total,
			Passed:      passed,
			CompletedAt: models.Stamp(t.clock()),
		}
		return nil
	})
}

// QuizResult returns the user's latest result for key, if any.
func (t *Tracker) QuizResult(ctx context.Context, s *session.Session, key string) (models.QuizResult, bool) {
	uid := t.ids.UserID(s)
	doc, err := t.repo.Load(ctx)
	if err != nil {
		t.log.WithError(err).Warn("failed to load quiz result")
		return models.QuizResult{}, false
	}
	r, ok := doc.QuizResults[uid][key]
	return r, ok
}

// Grade is the outcome of a quiz attempt.
type Grade struct {
	Score  int
	Total  int
	Passed bool
}

// GradeQuiz scores answers (selected answer index per question, -1 for
// none). A quiz passes at 70% or more.
func GradeQuiz(questions []models.QuizQuestion, answers []int) Grade {
	g := Grade{Total: len(questions)}
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.Correct {
			g.Score++
		}
	}
	g.Passed = g.Total > 0 && g.Score*10 >= g.Total*7
	return g
}

// SaveStepFeedback counts an anonymous vote for a step. Votes are not
// deduplicated per user.
func (t *Tracker) SaveStepFeedback(ctx context.Context, key string, stepIndex int, kind string) error {
	if kind != Helpful && kind != NotHelpful {
		return ErrInvalidFeedback
	}
	id := models.StepKey(key, stepIndex)
	return t.repo.Mutate(ctx, func(doc *models.Document) error {
		if err := checkStep(doc, key, stepIndex); err != nil {
			return err
		}
		fb := doc.StepFeedback[id]
		if kind == Helpful {
			fb.Helpful++
		} else {
			fb.NotHelpful++
		}
		doc.StepFeedback[id] = fb
		return nil
	})
}

// SaveUserProfile stores the profile of the current user.
func (t *Tracker) SaveUserProfile(ctx context.Context, s *session.Session, name, email, department string) error {
	uid := t.ids.UserID(s)
	return t.repo.Mutate(ctx, func(doc *models.Document) error {
		identity.UpsertProfile(doc, uid, name, email, department, t.clock())
		return nil
	})
}

// Profile returns the profile of the current user, if one was saved.
func (t *Tracker) Profile(ctx context.Context, s *session.Session) (models.UserProfile, bool) {
	uid := t.ids.UserID(s)
	doc, err := t.repo.Load(ctx)
	if err != nil {
		return models.UserProfile{}, false
	}
	p, ok := doc.UserProfiles[uid]
	return p, ok
}

// CategoryStatus is one category row of a user's completion status.
type CategoryStatus struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	Completed     int    `json:"completed"`
	Total         int    `json:"total"`
	ProgressPct   int    `json:"progress_pct"`
	GuideComplete bool   `json:"guide_complete"`
	HasQuiz       bool   `json:"has_quiz"`
	QuizScore     int    `json:"quiz_score"`
	QuizTotal     int    `json:"quiz_total"`
	QuizPassed    bool   `json:"quiz_passed"`
}

// UserStatus is the completion status of one user across all categories.
type UserStatus struct {
	UserID          string             `json:"user_id"`
	Profile         models.UserProfile `json:"profile"`
	Categories      []CategoryStatus   `json:"categories"`
	CompletionPct   int                `json:"completion_pct"`
	GuidesCompleted int                `json:"guides_completed"`
	TotalGuides     int                `json:"total_guides"`
	QuizzesPassed   int                `json:"quizzes_passed"`
}

// UserCompletionStatus computes per-category progress for userID.
func (t *Tracker) UserCompletionStatus(ctx context.Context, userID string) (UserStatus, error) {
	doc, err := t.repo.Load(ctx)
	if err != nil {
		return UserStatus{}, err
	}
	return completionStatus(doc, userID), nil
}

func completionStatus(doc *models.Document, userID string) UserStatus {
	st := UserStatus{UserID: userID, Profile: doc.UserProfiles[userID]}
	sumPct := 0
	for _, e := range doc.CategoriesList.Entries() {
		cs := CategoryStatus{Key: e.Key, Name: e.Name}
		if c := doc.Category(e.Key); c != nil {
			cs.Total = len(c.Steps)
		}
		cs.Completed = len(doc.UserProgress[userID][e.Key])
		if cs.Total > 0 {
			cs.ProgressPct = Percent(cs.Completed, cs.Total)
		}
		cs.GuideComplete = cs.Total > 0 && cs.Completed >= cs.Total
		if r, ok := doc.QuizResults[userID][e.Key]; ok {
			cs.HasQuiz = true
			cs.QuizScore, cs.QuizTotal, cs.QuizPassed = r.Score, r.Total, r.Passed
		}

		sumPct += cs.ProgressPct
		if cs.GuideComplete {
			st.GuidesCompleted++
		}
		if cs.QuizPassed {
			st.QuizzesPassed++
		}
		st.Categories = append(st.Categories, cs)
	}
	st.TotalGuides = len(st.Categories)
	if st.TotalGuides > 0 {
		st.CompletionPct = int(math.RoundToEven(float64(sumPct) / float64(st.TotalGuides)))
	}
	return st
}

// Percent is round(100*part/whole) with half-to-even rounding. A zero
// whole yields 0.
func Percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.RoundToEven(100 * float64(part) / float64(whole)))
}

// UserRow is one line of the admin user progress table.
type UserRow struct {
	UserID          string `json:"user_id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Department      string `json:"department"`
	RegisteredAt    string `json:"registered_at"`
	CompletionPct   int    `json:"completion_pct"`
	GuidesCompleted int    `json:"guides_completed"`
	TotalGuides     int    `json:"total_guides"`
	QuizzesPassed   int    `json:"quizzes_passed"`
}

// AllUsersProgress summarizes every known profile, best progress first.
func (t *Tracker) AllUsersProgress(ctx context.Context) ([]UserRow, error) {
	doc, err := t.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(doc.UserProfiles))
	for id := range doc.UserProfiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]UserRow, 0, len(ids))
	for _, id := range ids {
		st := completionStatus(doc, id)
		p := doc.UserProfiles[id]
		rows = append(rows, UserRow{
			UserID:          id,
			Name:            p.Name,
			Email:           p.Email,
			Department:      p.Department,
			RegisteredAt:    p.RegisteredAt,
			CompletionPct:   st.CompletionPct,
			GuidesCompleted: st.GuidesCompleted,
			TotalGuides:     st.TotalGuides,
			QuizzesPassed:   st.QuizzesPassed,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CompletionPct > rows[j].CompletionPct
	})
	return rows, nil
}

func stepLabel(idx int) string {
	return fmt.Sprintf("Step %d", idx+1)
}
