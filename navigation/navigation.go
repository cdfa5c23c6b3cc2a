// Package navigation keeps the page selected in the session in step with
// the page key carried in the URL.
package navigation

import (
	"net/url"
	"strconv"
	"strings"
	"sync"

	"induction-portal/models"
	"induction-portal/session"
)

// Page keys that are not categories.
const (
	KeyHome  = "home"
	KeyFAQ   = "faq"
	KeyAdmin = "admin"
)

// Labels of the fixed pages.
const (
	LabelHome  = "🏠 Home"
	LabelFAQ   = "❓ FAQ / Help"
	LabelAdmin = "⚙️ Admin Panel"
)

// URL query parameters.
const (
	ParamPage       = "page"
	ParamStep       = "step"
	ParamZoomTarget = "zoom_target"
	ParamUID        = "uid"
)

// transientParams are dropped whenever the user picks another page.
var transientParams = []string{ParamStep, ParamZoomTarget, ParamUID}

// Page is one entry of the navigation menu.
type Page struct {
	Key   string
	Label string
}

// LabelMap is the bidirectional mapping between page keys and menu labels.
type LabelMap struct {
	categories []models.CategoryEntry
	toLabel    map[string]string
	toKey      map[string]string
}

// NewLabelMap builds the mapping for the given categories. Fixed pages take
// precedence over categories with the same key or label.
func NewLabelMap(entries []models.CategoryEntry) *LabelMap {
	m := &LabelMap{
		categories: append([]models.CategoryEntry(nil), entries...),
		toLabel:    make(map[string]string, len(entries)+3),
		toKey:      make(map[string]string, len(entries)+3),
	}
	for _, e := range entries {
		m.toLabel[e.Key] = e.Name
	}
	m.toLabel[KeyHome] = LabelHome
	m.toLabel[KeyFAQ] = LabelFAQ
	m.toLabel[KeyAdmin] = LabelAdmin
	// Duplicate category names resolve to the later entry.
	for _, e := range entries {
		m.toKey[e.Name] = e.Key
	}
	m.toKey[LabelHome] = KeyHome
	m.toKey[LabelFAQ] = KeyFAQ
	m.toKey[LabelAdmin] = KeyAdmin
	return m
}

// Label returns the label of key; unknown keys map to Home.
func (m *LabelMap) Label(key string) string {
	if l, ok := m.toLabel[key]; ok {
		return l
	}
	return LabelHome
}

// Key returns the page key of label.
func (m *LabelMap) Key(label string) (string, bool) {
	k, ok := m.toKey[label]
	return k, ok
}

// IsCategory reports whether key is a category page.
func (m *LabelMap) IsCategory(key string) bool {
	for _, e := range m.categories {
		if e.Key == key {
			return true
		}
	}
	return false
}

// Pages lists the menu: Home, categories in order, FAQ, and Admin when the
// session is logged in.
func (m *LabelMap) Pages(isAdmin bool) []Page {
	pages := make([]Page, 0, len(m.categories)+3)
	pages = append(pages, Page{Key: KeyHome, Label: LabelHome})
	for _, e := range m.categories {
		pages = append(pages, Page{Key: e.Key, Label: e.Name})
	}
	pages = append(pages, Page{Key: KeyFAQ, Label: LabelFAQ})
	if isAdmin {
		pages = append(pages, Page{Key: KeyAdmin, Label: LabelAdmin})
	}
	return pages
}

// Synchronizer caches the label map and rebuilds it when the category list
// changes.
type Synchronizer struct {
	mu  sync.Mutex
	sig string
	m   *LabelMap
}

func NewSynchronizer() *Synchronizer {
	return &Synchronizer{}
}

// Map returns the label map for doc.
func (s *Synchronizer) Map(doc *models.Document) *LabelMap {
	entries := doc.CategoriesList.Entries()
	sig := signature(entries)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil || s.sig != sig {
		s.m = NewLabelMap(entries)
		s.sig = sig
	}
	return s.m
}

func signature(entries []models.CategoryEntry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Key)
		b.WriteByte(0)
		b.WriteString(e.Name)
		b.WriteByte(0)
	}
	return b.String()
}

// Reconcile aligns the session label with the page key from the URL and
// returns the label to render. The URL wins on disagreement.
func Reconcile(m *LabelMap, sess *session.Session, pageKey string) string {
	if pageKey == "" {
		pageKey = KeyHome
	}
	label := m.Label(pageKey)
	if sess.NavLabel == "" {
		sess.NavLabel = label
		return label
	}
	if k, ok := m.Key(sess.NavLabel); !ok || k != pageKey {
		sess.NavLabel = label
	}
	return sess.NavLabel
}

// Navigate records a menu selection. It returns the query for the new page:
// the page key set and the step, zoom and uid parameters dropped. The
// session search query is cleared.
func Navigate(m *LabelMap, sess *session.Session, label string, q url.Values) url.Values {
	key, ok := m.Key(label)
	if !ok {
		key, label = KeyHome, LabelHome
	}
	out := url.Values{}
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	out.Set(ParamPage, key)
	for _, p := range transientParams {
		out.Del(p)
	}
	sess.NavLabel = label
	sess.SearchQuery = ""
	return out
}

// DeepLink is the relative URL of a step; stepIndex is 0-based.
func DeepLink(key string, stepIndex int) string {
	v := url.Values{}
	v.Set(ParamPage, key)
	v.Set(ParamStep, strconv.Itoa(stepIndex+1))
	return "?" + v.Encode()
}

// PageLink is the relative URL of a page.
func PageLink(key string) string {
	v := url.Values{}
	v.Set(ParamPage, key)
	return "?" + v.Encode()
}

// StepFromQuery returns the 0-based step addressed by the 1-based step
// parameter, if it is within a guide of total steps.
func StepFromQuery(q url.Values, total int) (int, bool) {
	n, err := strconv.Atoi(q.Get(ParamStep))
	if err != nil || n < 1 || n > total {
		return 0, false
	}
	return n - 1, true
}

// Route is the kind of page to render.
type Route int

const (
	RouteSearch Route = iota
	RouteAdmin
	RouteAccessDenied
	RouteHome
	RouteFAQ
	RouteCategory
	RouteNotFound
)

func (r Route) String() string {
	switch r {
	case RouteSearch:
		return "search"
	case RouteAdmin:
		return "admin"
	case RouteAccessDenied:
		return "access_denied"
	case RouteHome:
		return "home"
	case RouteFAQ:
		return "faq"
	case RouteCategory:
		return "category"
	}
	return "not_found"
}

// Resolve picks what to render for the selected label. Search results take
// priority, then the admin panel, home, FAQ and categories.
func Resolve(m *LabelMap, label string, hasSearchResults, isAdmin bool) (Route, string) {
	if hasSearchResults {
		return RouteSearch, ""
	}
	switch label {
	case LabelAdmin:
		if isAdmin {
			return RouteAdmin, KeyAdmin
		}
		return RouteAccessDenied, KeyAdmin
	case LabelHome:
		return RouteHome, KeyHome
	case LabelFAQ:
		return RouteFAQ, KeyFAQ
	}
	if key, ok := m.Key(label); ok && m.IsCategory(key) {
		return RouteCategory, key
	}
	return RouteNotFound, ""
}
