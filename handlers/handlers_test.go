package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"induction-portal/analytics"
	"induction-portal/auth"
	"induction-portal/cms"
	"induction-portal/db"
	"induction-portal/identity"
	"induction-portal/middleware"
	"induction-portal/models"
	"induction-portal/navigation"
	"induction-portal/progress"
	"induction-portal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	t       *testing.T
	router  *gin.Engine
	deps    *Deps
	backend *db.MemoryBackend
	store   *db.Store
	cookie  *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	backend := db.NewMemoryBackend(nil)
	store := db.NewStore(backend, db.WithTTL(0))
	ids := identity.NewResolver()
	d := &Deps{
		Repo:      store,
		CMS:       cms.NewService(store, t.TempDir()),
		Auth:      auth.NewAuthenticator(store, "admin", "secret"),
		Tracker:   progress.NewTracker(store, ids),
		Analytics: analytics.NewAggregator(store),
		IDs:       ids,
		Nav:       navigation.NewSynchronizer(),
	}

	r := gin.New()
	r.HTMLRender = NewRenderer("../templates")
	r.Use(middleware.RequestID(), middleware.Sessions(session.NewMemoryStore(), middleware.SessionOptions{
		CookieName: "portal_session",
		TTL:        time.Hour,
	}))
	RegisterRoutes(r, d, "")

	return &testEnv{t: t, router: r, deps: d, backend: backend, store: store}
}

// do sends a request within the env's browser session.
func (e *testEnv) do(method, target, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "portal_session" {
			e.cookie = ck
		}
	}
	return w
}

func (e *testEnv) get(target string) *httptest.ResponseRecorder {
	return e.do(http.MethodGet, target, "", nil)
}

func (e *testEnv) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, target, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

func (e *testEnv) sendJSON(method, target, body string) *httptest.ResponseRecorder {
	return e.do(method, target, "application/json", strings.NewReader(body))
}

func (e *testEnv) doc() *models.Document {
	doc, err := e.store.Load(context.Background())
	require.NoError(e.t, err)
	return doc
}

func (e *testEnv) addSteps(key string, titles ...string) {
	for _, title := range titles {
		require.NoError(e.t, e.deps.CMS.AddStep(context.Background(), key, models.Step{Title: title, Text: title + " text"}, "admin"))
	}
}

func TestPortal_HomeAndNavigate(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Welcome!")
	assert.Contains(t, w.Body.String(), "VPN Config")

	w = env.postForm("/navigate", url.Values{"label": {"🛡️ 2. VPN Config"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?page=vpn", w.Header().Get("Location"))

	w = env.get("/?page=vpn")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>🛡️ 2. VPN Config</h1>")
	env.get("/?page=vpn")
	assert.Equal(t, 1, env.doc().Analytics.PageViews["vpn"].Views, "views count once per session")

	w = env.get("/?page=nope")
	assert.Equal(t, http.StatusOK, w.Code, "unknown keys fall back to home")
	assert.Contains(t, w.Body.String(), "Welcome!")
}

func TestPortal_DeepLinkFocusesStep(t *testing.T) {
	env := newTestEnv(t)
	env.addSteps("vpn", "Install", "Connect")

	w := env.get("/" + navigation.DeepLink("vpn", 1))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="step-2" class="step focused"`)
	assert.Contains(t, w.Body.String(), `id="step-1" class="step"`)
}

func TestPortal_ToggleCompletesGuide(t *testing.T) {
	env := newTestEnv(t)
	env.addSteps("vpn", "Install")

	w := env.postForm("/guides/vpn/steps/0/toggle", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?page=vpn&step=1", w.Header().Get("Location"))
	assert.Equal(t, 1, env.doc().Analytics.Completions["vpn"])

	w = env.get("/?page=vpn")
	assert.Contains(t, w.Body.String(), "Congratulations")
	assert.Contains(t, w.Body.String(), "(100%)")

	// Untoggle and toggle again: still one completion for the session.
	env.postForm("/guides/vpn/steps/0/toggle", nil)
	env.postForm("/guides/vpn/steps/0/toggle", nil)
	assert.Equal(t, 1, env.doc().Analytics.Completions["vpn"])
}

func TestPortal_SaveFailureFlashesMessage(t *testing.T) {
	env := newTestEnv(t)
	env.addSteps("vpn", "Install")
	env.get("/")
	env.backend.FailWrites(assert.AnError)

	w := env.postForm("/guides/vpn/steps/0/toggle", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = env.get("/?page=vpn")
	assert.Contains(t, w.Body.String(), "Changes not saved. Please try again.")

	w = env.get("/?page=vpn")
	assert.NotContains(t, w.Body.String(), "Changes not saved", "flash is shown once")
}

func TestPortal_SearchTakesPriorityUntilNavigation(t *testing.T) {
	env := newTestEnv(t)
	env.addSteps("vpn", "Install FortiClient")

	env.postForm("/search", url.Values{"q": {"forticlient"}})
	w := env.get("/?page=faq")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Found 1 matches!")
	assert.Contains(t, w.Body.String(), `href="/?page=vpn&amp;step=1"`)

	env.postForm("/navigate", url.Values{"label": {navigation.LabelFAQ}})
	w = env.get("/?page=faq")
	assert.NotContains(t, w.Body.String(), "Found")
	assert.Contains(t, w.Body.String(), "Gateway Unreachable")
}

func TestPortal_AdminPanel(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/?page=admin")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Access Denied. Please login.")

	w = env.postForm("/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, http.StatusForbidden, env.get("/?page=admin").Code)

	env.postForm("/login", url.Values{"username": {"admin"}, "password": {"secret"}})
	w = env.get("/?page=admin")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "System logs")
	assert.Contains(t, w.Body.String(), "Admin login: admin")

	env.postForm("/logout", nil)
	assert.Equal(t, http.StatusForbidden, env.get("/?page=admin").Code)
}

func TestPortal_LanguageSwitch(t *testing.T) {
	env := newTestEnv(t)
	env.addSteps("vpn", "Install")

	env.postForm("/language", url.Values{"language": {"it"}})
	w := env.get("/?page=vpn")
	assert.Contains(t, w.Body.String(), `<html lang="it">`)

	env.postForm("/language", url.Values{"language": {"xx"}})
	w = env.get("/?page=vpn")
	assert.Contains(t, w.Body.String(), `<html lang="it">`, "unsupported languages are ignored")
}

func TestAPI_GetCategoryHidesAnswers(t *testing.T) {
	env := newTestEnv(t)
	env.addSteps("vpn", "Install")
	q, err := cms.NewQuestion("Which client?", []string{"FortiClient", "Cisco"}, 0)
	require.NoError(t, err)
	require.NoError(t, env.deps.CMS.AddQuestion(context.Background(), "vpn", q, "admin"))

	w := env.get("/api/v1/categories/vpn")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Name  string           `json:"name"`
		Quiz  []map[string]any `json:"quiz"`
		Steps []models.Step    `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "🛡️ 2. VPN Config", body.Name)
	require.Len(t, body.Quiz, 1)
	assert.NotContains(t, body.Quiz[0], "correct")
	assert.Len(t, body.Steps, 1)

	w = env.get("/api/v1/categories/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_SubmitQuiz(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, text := range []string{"One?", "Two?"} {
		q, err := cms.NewQuestion(text, []string{"a", "b"}, 1)
		require.NoError(t, err)
		require.NoError(t, env.deps.CMS.AddQuestion(ctx, "mfa", q, "admin"))
	}

	w := env.sendJSON(http.MethodPost, "/api/v1/categories/mfa/quiz", `{"answers":[1,1]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"score":2,"total":2,"passed":true}`, w.Body.String())

	w = env.sendJSON(http.MethodPost, "/api/v1/categories/vpn/quiz", `{"answers":[0]}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_ToggleAndBookmarks(t *testing.T) {
	env := newTestEnv(t)
	env.addSteps("outlook", "Sign in", "Sync")

	w := env.do(http.MethodPost, "/api/v1/categories/outlook/steps/1/toggle", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"completed_steps":["step-2"],"guide_complete":false}`, w.Body.String())

	w = env.sendJSON(http.MethodPost, "/api/v1/categories/outlook/steps/1/bookmark", `{"add":true}`)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = env.get("/api/v1/bookmarks")
	require.Equal(t, http.StatusOK, w.Code)
	var links []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &links))
	require.Len(t, links, 1)
	assert.Equal(t, "/?page=outlook&step=2", links[0]["url"])
	assert.Equal(t, "Sync", links[0]["step_title"])

	w = env.sendJSON(http.MethodPost, "/api/v1/categories/outlook/steps/x/toggle", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_UnknownStepsAreNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.addSteps("vpn", "Install", "Connect")

	w := env.do(http.MethodPost, "/api/v1/categories/vpn/steps/0/toggle", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodPost, "/api/v1/categories/vpn/steps/999/toggle", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"step not found"}`, w.Body.String())

	w = env.do(http.MethodPost, "/api/v1/categories/no-such-guide/steps/0/toggle", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.sendJSON(http.MethodPost, "/api/v1/categories/vpn/steps/2/bookmark", `{"add":true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.sendJSON(http.MethodPost, "/api/v1/categories/no-such-guide/steps/12345/feedback", `{"kind":"helpful"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(http.MethodPost, "/api/v1/categories/no-such-guide/view", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	doc := env.doc()
	assert.Zero(t, doc.Analytics.Completions["vpn"])
	assert.NotContains(t, doc.StepFeedback, "no-such-guide_step_12345")
	assert.NotContains(t, doc.Analytics.PageViews, "no-such-guide")
}

func TestAPI_FeedbackRejectsUnknownKind(t *testing.T) {
	env := newTestEnv(t)
	env.addSteps("vpn", "Install")
	w := env.sendJSON(http.MethodPost, "/api/v1/categories/vpn/steps/0/feedback", `{"kind":"meh"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.sendJSON(http.MethodPost, "/api/v1/categories/vpn/steps/0/feedback", `{"kind":"helpful"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, env.doc().StepFeedback[models.StepKey("vpn", 0)].Helpful)
}

func TestAPI_SaveFailureReportsChangesNotSaved(t *testing.T) {
	env := newTestEnv(t)
	env.get("/")
	env.backend.FailWrites(assert.AnError)

	w := env.sendJSON(http.MethodPut, "/api/v1/me/profile", `{"name":"Ana"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"changes not saved"}`, w.Body.String())
}

func TestAdminAPI_Categories(t *testing.T) {
	env := newTestEnv(t)

	w := env.sendJSON(http.MethodPost, "/admin/api/categories", `{"key":"badge","name":"🎫 Badge"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.sendJSON(http.MethodPost, "/admin/login", `{"username":"admin","password":"secret"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.sendJSON(http.MethodPost, "/admin/api/categories", `{"key":"badge","name":"🎫 Badge"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	w = env.sendJSON(http.MethodPost, "/admin/api/categories", `{"key":"badge","name":"Again"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = env.sendJSON(http.MethodPost, "/admin/api/categories", `{"key":"faq","name":"FAQ"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.sendJSON(http.MethodPost, "/admin/api/categories/badge/steps", `{"title":"Collect badge","text":"At reception"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	w = env.sendJSON(http.MethodPut, "/admin/api/categories/badge/steps/0", `{"title":"Collect your badge","text":"At reception"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.sendJSON(http.MethodDelete, "/admin/api/categories/badge/steps/4", ``)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.get("/admin/api/categories/badge/versions")
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.Version
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.NotEmpty(t, history)

	w = env.sendJSON(http.MethodPatch, "/admin/api/categories/badge", `{"description":"Office access","estimated_time":4}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	content := env.doc().Category("badge")
	require.NotNil(t, content)
	assert.Equal(t, "Office access", content.Description)
	assert.Equal(t, 4, content.Minutes())
	assert.Equal(t, "Collect your badge", content.Steps[0].Title)

	w = env.sendJSON(http.MethodDelete, "/admin/api/categories/badge", ``)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, env.doc().CategoriesList.Has("badge"))
}

func TestAdminAPI_ImportYAML(t *testing.T) {
	env := newTestEnv(t)
	env.sendJSON(http.MethodPost, "/admin/login", `{"username":"admin","password":"secret"}`)

	guide := "key: parking\nname: \"🚗 Parking\"\nsteps:\n  - title: Get a permit\n    text: Ask facilities\n"
	w := env.do(http.MethodPost, "/admin/api/import", "application/x-yaml", strings.NewReader(guide))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"key":"parking","created":true,"steps":1,"quiz":0}`, w.Body.String())
	assert.True(t, env.doc().CategoriesList.Has("parking"))

	w = env.do(http.MethodPost, "/admin/api/import", "application/x-yaml", strings.NewReader("key: [oops"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminAPI_ResetAnalytics(t *testing.T) {
	env := newTestEnv(t)
	env.get("/?page=vpn")
	require.Equal(t, 1, env.doc().Analytics.PageViews["vpn"].Views)
	env.sendJSON(http.MethodPost, "/admin/login", `{"username":"admin","password":"secret"}`)

	w := env.get("/admin/api/analytics")
	require.Equal(t, http.StatusOK, w.Code)
	var rows []analytics.CategorySummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.NotEmpty(t, rows)
	assert.Equal(t, "vpn", rows[0].Key)

	w = env.do(http.MethodDelete, "/admin/api/analytics", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, env.doc().Analytics.PageViews)
}
