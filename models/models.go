package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"induction-portal/utils"
)

// TimestampLayout is the layout of every timestamp stored in the document.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout keys the daily view buckets.
const DateLayout = "2006-01-02"

// MaxSystemLogs bounds the system_logs list.
const MaxSystemLogs = 100

// Home holds the landing page content.
type Home struct {
	Logo string `json:"logo" yaml:"logo"`
	Text string `json:"text" yaml:"text"`
}

// Step is one unit of guide content.
type Step struct {
	Title    string `json:"title" yaml:"title" form:"title"`
	Text     string `json:"text" yaml:"text" form:"text"`
	Image    string `json:"image" yaml:"image"`
	VideoURL string `json:"video_url" yaml:"video_url" form:"video_url"`
	Icon     string `json:"icon" yaml:"icon"`
}

// IsEmpty reports whether the step carries nothing a reader could use.
// Icons alone do not count.
func (s Step) IsEmpty() bool {
	return utils.IsBlank(s.Title) &&
		utils.IsBlank(s.Text) &&
		s.Image == "" &&
		s.VideoURL == ""
}

// QuizQuestion is a multiple choice question attached to a guide.
type QuizQuestion struct {
	Q       string   `json:"q" yaml:"q"`
	Answers []string `json:"answers" yaml:"answers"`
	Correct int      `json:"correct" yaml:"correct"`
}

// CategoryContent is the body of a guide.
type CategoryContent struct {
	Description   string         `json:"description"`
	Steps         []Step         `json:"steps"`
	Quiz          []QuizQuestion `json:"quiz,omitempty"`
	LastUpdated   *string        `json:"last_updated,omitempty"`
	EstimatedTime *int           `json:"estimated_time,omitempty"`
}

// NewCategoryContent returns the content synthesized for a declared but empty category.
func NewCategoryContent() *CategoryContent {
	return &CategoryContent{Description: "", Steps: []Step{}}
}

// Clone returns a deep copy.
func (c *CategoryContent) Clone() *CategoryContent {
	if c == nil {
		return NewCategoryContent()
	}
	out := &CategoryContent{
		Description: c.Description,
		Steps:       append([]Step{}, c.Steps...),
	}
	if c.Quiz != nil {
		out.Quiz = make([]QuizQuestion, len(c.Quiz))
		for i, q := range c.Quiz {
			out.Quiz[i] = QuizQuestion{Q: q.Q, Answers: append([]string{}, q.Answers...), Correct: q.Correct}
		}
	}
	if c.LastUpdated != nil {
		v := *c.LastUpdated
		out.LastUpdated = &v
	}
	if c.EstimatedTime != nil {
		v := *c.EstimatedTime
		out.EstimatedTime = &v
	}
	return out
}

// Minutes returns the estimated reading time, defaulting to two minutes per step.
func (c *CategoryContent) Minutes() int {
	if c.EstimatedTime != nil {
		return *c.EstimatedTime
	}
	return len(c.Steps) * 2
}

// FAQEntry is a question and answer pair on the help page.
type FAQEntry struct {
	Q string `json:"q" yaml:"q"`
	A string `json:"a" yaml:"a"`
}

// LogEntry is a system log line shown in the admin log viewer.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

var legacyLogLine = regexp.MustCompile(`(?s)^\[(.*?)\] \[(.*?)\] (.*)$`)

// UnmarshalJSON accepts both the structured form and the legacy
// "[timestamp] [LEVEL] message" string form.
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var line string
		if err := json.Unmarshal(data, &line); err != nil {
			return err
		}
		if m := legacyLogLine.FindStringSubmatch(line); m != nil {
			*e = LogEntry{Timestamp: m[1], Level: m[2], Message: m[3]}
		} else {
			*e = LogEntry{Level: "INFO", Message: line}
		}
		return nil
	}
	type plain LogEntry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = LogEntry(p)
	return nil
}

// String renders the entry the way the log viewer prints it.
func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] [%s] %s", e.Timestamp, e.Level, e.Message)
}

// Version is one entry of a category's version history.
type Version struct {
	Version         int              `json:"version"`
	Timestamp       string           `json:"timestamp"`
	Author          string           `json:"author"`
	ContentSnapshot *CategoryContent `json:"content_snapshot"`
	StepCount       int              `json:"step_count"`
}

// UserProfile is stored per user id, normally filled from SSO claims.
type UserProfile struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Department   string `json:"department"`
	RegisteredAt string `json:"registered_at"`
}

// QuizResult is the latest quiz attempt of a user for one category.
type QuizResult struct {
	Score       int    `json:"score"`
	Total       int    `json:"total"`
	Passed      bool   `json:"passed"`
	CompletedAt string `json:"completed_at"`
}

// FeedbackCounts holds anonymous helpful / not helpful votes for a step.
type FeedbackCounts struct {
	Helpful    int `json:"helpful"`
	NotHelpful int `json:"not_helpful"`
}

// PageView counts views of a category.
type PageView struct {
	Views      int    `json:"views"`
	LastViewed string `json:"last_viewed"`
}

// Analytics holds raw event counters.
type Analytics struct {
	PageViews   map[string]PageView       `json:"page_views"`
	Completions map[string]int            `json:"completions"`
	DailyViews  map[string]map[string]int `json:"daily_views"`
}

// NewAnalytics returns empty counters.
func NewAnalytics() Analytics {
	return Analytics{
		PageViews:   map[string]PageView{},
		Completions: map[string]int{},
		DailyViews:  map[string]map[string]int{},
	}
}

// StepKey is the identifier used for bookmarks and step feedback.
// The index is 0-based.
func StepKey(categoryKey string, stepIndex int) string {
	return fmt.Sprintf("%s_step_%d", categoryKey, stepIndex)
}

// ParseStepKey splits a bookmark or feedback key into category key and 0-based index.
func ParseStepKey(key string) (string, int, bool) {
	i := strings.LastIndex(key, "_step_")
	if i <= 0 {
		return "", 0, false
	}
	var idx int
	if _, err := fmt.Sscanf(key[i+len("_step_"):], "%d", &idx); err != nil || idx < 0 {
		return "", 0, false
	}
	return key[:i], idx, true
}

// StepID is the completion identifier of a step. The index is 0-based,
// the identifier is 1-based.
func StepID(stepIndex int) string {
	return fmt.Sprintf("step-%d", stepIndex+1)
}

// Stamp formats t with TimestampLayout.
func Stamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
