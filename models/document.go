package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Top-level keys of the persisted document.
const (
	KeyHome           = "home"
	KeyCategoriesList = "categories_list"
	KeyFAQ            = "faq"
	KeyAdmins         = "admins"
	KeySystemLogs     = "system_logs"
	KeyVersionHistory = "version_history"
	KeyUserProfiles   = "user_profiles"
	KeyUserProgress   = "user_progress"
	KeyQuizResults    = "quiz_results"
	KeyBookmarks      = "bookmarks"
	KeyStepFeedback   = "step_feedback"
	KeyAnalytics      = "analytics"
)

// TopLevelKeys lists every key the document must carry, in write order.
var TopLevelKeys = []string{
	KeyHome,
	KeyCategoriesList,
	KeyFAQ,
	KeyAdmins,
	KeySystemLogs,
	KeyVersionHistory,
	KeyUserProfiles,
	KeyUserProgress,
	KeyQuizResults,
	KeyBookmarks,
	KeyStepFeedback,
	KeyAnalytics,
}

// IsReservedKey reports whether key collides with a fixed top-level key.
func IsReservedKey(key string) bool {
	for _, k := range TopLevelKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Document is the single root document holding all portal content and state.
// Category content lives at the top level under each category key.
type Document struct {
	Home           Home
	CategoriesList CategoryList
	Categories     map[string]*CategoryContent
	FAQ            []FAQEntry
	Admins         map[string]string
	SystemLogs     []LogEntry
	VersionHistory map[string][]Version
	UserProfiles   map[string]UserProfile
	UserProgress   map[string]map[string][]string
	QuizResults    map[string]map[string]QuizResult
	Bookmarks      map[string][]string
	StepFeedback   map[string]FeedbackCounts
	Analytics      Analytics

	// Extra keeps unknown top-level keys so a save does not drop them.
	Extra map[string]json.RawMessage
}

// Normalize replaces nil collections with empty ones.
func (d *Document) Normalize() {
	if d.Categories == nil {
		d.Categories = map[string]*CategoryContent{}
	}
	for _, c := range d.Categories {
		if c != nil && c.Steps == nil {
			c.Steps = []Step{}
		}
	}
	if d.FAQ == nil {
		d.FAQ = []FAQEntry{}
	}
	if d.Admins == nil {
		d.Admins = map[string]string{}
	}
	if d.SystemLogs == nil {
		d.SystemLogs = []LogEntry{}
	}
	if d.VersionHistory == nil {
		d.VersionHistory = map[string][]Version{}
	}
	if d.UserProfiles == nil {
		d.UserProfiles = map[string]UserProfile{}
	}
	if d.UserProgress == nil {
		d.UserProgress = map[string]map[string][]string{}
	}
	if d.QuizResults == nil {
		d.QuizResults = map[string]map[string]QuizResult{}
	}
	if d.Bookmarks == nil {
		d.Bookmarks = map[string][]string{}
	}
	if d.StepFeedback == nil {
		d.StepFeedback = map[string]FeedbackCounts{}
	}
	if d.Analytics.PageViews == nil {
		d.Analytics.PageViews = map[string]PageView{}
	}
	if d.Analytics.Completions == nil {
		d.Analytics.Completions = map[string]int{}
	}
	if d.Analytics.DailyViews == nil {
		d.Analytics.DailyViews = map[string]map[string]int{}
	}
}

// Category returns the content of key, or nil when it has none.
func (d *Document) Category(key string) *CategoryContent {
	return d.Categories[key]
}

// EnsureCategory returns the content of key, creating an empty one if needed.
func (d *Document) EnsureCategory(key string) *CategoryContent {
	if d.Categories == nil {
		d.Categories = map[string]*CategoryContent{}
	}
	c := d.Categories[key]
	if c == nil {
		c = NewCategoryContent()
		d.Categories[key] = c
	}
	return c
}

// AppendLog records a system log entry, newest first, bounded by MaxSystemLogs.
func (d *Document) AppendLog(at time.Time, level, message string) {
	entry := LogEntry{Timestamp: Stamp(at), Level: level, Message: message}
	d.SystemLogs = append([]LogEntry{entry}, d.SystemLogs...)
	if len(d.SystemLogs) > MaxSystemLogs {
		d.SystemLogs = d.SystemLogs[:MaxSystemLogs]
	}
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	data, err := json.Marshal(d)
	if err != nil {
		panic(fmt.Sprintf("models: cloning document: %v", err))
	}
	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("models: cloning document: %v", err))
	}
	return &out
}

// MarshalJSON writes fixed keys first, then category content in menu order,
// then any preserved unknown keys.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, v interface{}) error {
		val, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		k, _ := json.Marshal(key)
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}

	fixed := []struct {
		key string
		val interface{}
	}{
		{KeyHome, d.Home},
		{KeyCategoriesList, d.CategoriesList},
		{KeyFAQ, d.FAQ},
		{KeyAdmins, d.Admins},
		{KeySystemLogs, d.SystemLogs},
		{KeyVersionHistory, d.VersionHistory},
		{KeyUserProfiles, d.UserProfiles},
		{KeyUserProgress, d.UserProgress},
		{KeyQuizResults, d.QuizResults},
		{KeyBookmarks, d.Bookmarks},
		{KeyStepFeedback, d.StepFeedback},
		{KeyAnalytics, d.Analytics},
	}
	for _, f := range fixed {
		if err := write(f.key, f.val); err != nil {
			return nil, err
		}
	}

	written := make(map[string]bool, len(d.Categories))
	for _, key := range d.CategoriesList.Keys() {
		c, ok := d.Categories[key]
		if !ok || IsReservedKey(key) {
			continue
		}
		if err := write(key, c); err != nil {
			return nil, err
		}
		written[key] = true
	}
	var orphans []string
	for key := range d.Categories {
		if !written[key] && !IsReservedKey(key) {
			orphans = append(orphans, key)
		}
	}
	sort.Strings(orphans)
	for _, key := range orphans {
		if err := write(key, d.Categories[key]); err != nil {
			return nil, err
		}
	}

	var extras []string
	for key := range d.Extra {
		if !written[key] && d.Categories[key] == nil && !IsReservedKey(key) {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	for _, key := range extras {
		if err := write(key, d.Extra[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the document. Keys declared in categories_list are
// decoded as category content; other unknown keys are kept in Extra.
// Missing keys are left at their zero value; see Normalize.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Document{}

	fields := map[string]interface{}{
		KeyHome:           &d.Home,
		KeyCategoriesList: &d.CategoriesList,
		KeyFAQ:            &d.FAQ,
		KeyAdmins:         &d.Admins,
		KeySystemLogs:     &d.SystemLogs,
		KeyVersionHistory: &d.VersionHistory,
		KeyUserProfiles:   &d.UserProfiles,
		KeyUserProgress:   &d.UserProgress,
		KeyQuizResults:    &d.QuizResults,
		KeyBookmarks:      &d.Bookmarks,
		KeyStepFeedback:   &d.StepFeedback,
		KeyAnalytics:      &d.Analytics,
	}
	for key, dst := range fields {
		val, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(val, dst); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	d.Categories = map[string]*CategoryContent{}
	for key, val := range raw {
		if _, fixed := fields[key]; fixed {
			continue
		}
		if !d.CategoriesList.Has(key) {
			if d.Extra == nil {
				d.Extra = map[string]json.RawMessage{}
			}
			d.Extra[key] = val
			continue
		}
		var c CategoryContent
		if err := json.Unmarshal(val, &c); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		d.Categories[key] = &c
	}
	return nil
}
