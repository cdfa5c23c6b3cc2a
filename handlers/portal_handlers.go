package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"induction-portal/auth"
	"induction-portal/cms"
	"induction-portal/i18n"
	"induction-portal/identity"
	"induction-portal/middleware"
	"induction-portal/models"
	"induction-portal/navigation"
	"induction-portal/progress"
	"induction-portal/search"
	"induction-portal/session"
	"induction-portal/sso"
)

// quickStartCount is how many guides the home page links to.
const quickStartCount = 3

// pageData is what layout.html needs on every page.
func pageData(c *gin.Context, d *Deps, doc *models.Document, activeKey string) gin.H {
	s := currentSession(c)
	m := d.Nav.Map(doc)
	data := gin.H{
		"Lang":        i18n.Normalize(s.Language),
		"Languages":   i18n.Languages,
		"Codes":       i18n.Codes(),
		"Menu":        m.Pages(s.IsAdmin),
		"Active":      activeKey,
		"IsAdmin":     s.IsAdmin,
		"SSOEnabled":  d.SSO != nil,
		"SSOUser":     s.SSOUser,
		"SearchQuery": s.SearchQuery,
		"Flash":       s.PopFlash(),
		"Bookmarks":   d.Tracker.Bookmarks(c.Request.Context(), s),
		"Query":       c.Request.URL.RawQuery,
	}
	if p, ok := d.Tracker.Profile(c.Request.Context(), s); ok {
		data["Profile"] = p
	}
	return data
}

// Portal renders the page selected by the URL and the session.
// GET /
func Portal(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		s := currentSession(c)
		doc, err := d.Repo.Load(ctx)
		if err != nil {
			abortWithError(c, err)
			return
		}
		m := d.Nav.Map(doc)
		label := navigation.Reconcile(m, s, c.Query(navigation.ParamPage))

		results := search.Search(doc, s.SearchQuery)
		route, key := navigation.Resolve(m, label, len(results) > 0, s.IsAdmin)
		logrus.WithFields(logrus.Fields{"route": route.String(), "key": key}).Debug("portal page")

		switch route {
		case navigation.RouteSearch:
			c.HTML(http.StatusOK, "search", gin.H{
				"Title":   s.SearchQuery,
				"Page":    pageData(c, d, doc, ""),
				"Results": results,
			})
		case navigation.RouteAdmin:
			AdminDashboard(d)(c)
		case navigation.RouteAccessDenied:
			c.HTML(http.StatusForbidden, "login", gin.H{
				"Title": navigation.LabelAdmin,
				"Page":  pageData(c, d, doc, navigation.KeyAdmin),
			})
		case navigation.RouteHome:
			renderHome(c, d, doc)
		case navigation.RouteFAQ:
			c.HTML(http.StatusOK, "faq", gin.H{
				"Title": navigation.LabelFAQ,
				"Page":  pageData(c, d, doc, navigation.KeyFAQ),
				"FAQ":   doc.FAQ,
			})
		case navigation.RouteCategory:
			renderCategory(c, d, doc, key)
		default:
			c.HTML(http.StatusNotFound, "not_found", gin.H{
				"Title": label,
				"Page":  pageData(c, d, doc, ""),
			})
		}
	}
}

func renderHome(c *gin.Context, d *Deps, doc *models.Document) {
	entries := doc.CategoriesList.Entries()
	if len(entries) > quickStartCount {
		entries = entries[:quickStartCount]
	}
	c.HTML(http.StatusOK, "home", gin.H{
		"Title":      navigation.LabelHome,
		"Page":       pageData(c, d, doc, navigation.KeyHome),
		"Home":       doc.Home,
		"QuickStart": entries,
	})
}

type stepView struct {
	models.Step
	Index      int
	Done       bool
	Bookmarked bool
	Focused    bool
	IsVideo    bool
}

func renderCategory(c *gin.Context, d *Deps, doc *models.Document, key string) {
	ctx := c.Request.Context()
	s := currentSession(c)
	name, _ := doc.CategoriesList.Name(key)
	content := doc.Category(key)
	if content == nil {
		content = models.NewCategoryContent()
	}

	if err := d.Analytics.TrackPageView(ctx, s, key); err != nil {
		logrus.WithError(err).WithField("category", key).Warn("page view not recorded")
	}

	done := d.Tracker.LoadUserProgress(ctx, s, key)
	doneSet := make(map[string]bool, len(done))
	for _, id := range done {
		doneSet[id] = true
	}
	marked := make(map[string]bool)
	for _, b := range d.Tracker.LoadBookmarks(ctx, s) {
		marked[b] = true
	}
	focus, hasFocus := navigation.StepFromQuery(c.Request.URL.Query(), len(content.Steps))

	steps := make([]stepView, len(content.Steps))
	for i, st := range content.Steps {
		steps[i] = stepView{
			Step:       st,
			Index:      i,
			Done:       doneSet[models.StepID(i)],
			Bookmarked: marked[models.StepKey(key, i)],
			Focused:    hasFocus && focus == i,
			IsVideo:    st.Image != "" && cms.IsVideoFile(st.Image),
		}
	}

	completed := 0
	for _, st := range steps {
		if st.Done {
			completed++
		}
	}

	data := gin.H{
		"Title":       name,
		"Page":        pageData(c, d, doc, key),
		"Key":         key,
		"Name":        name,
		"Content":     content,
		"Steps":       steps,
		"Completed":   completed,
		"Total":       len(steps),
		"ProgressPct": progress.Percent(completed, len(steps)),
		"AllDone":     len(steps) > 0 && completed == len(steps),
		"Minutes":     content.Minutes(),
	}
	if r, ok := d.Tracker.QuizResult(ctx, s, key); ok {
		data["QuizResult"] = r
	}
	c.HTML(http.StatusOK, "category", data)
}

// redirectBack sends the browser to the portal with the given query.
func redirectBack(c *gin.Context, q url.Values) {
	target := "/"
	if enc := q.Encode(); enc != "" {
		target += "?" + enc
	}
	c.Redirect(http.StatusSeeOther, target)
}

// flashError stores a user-facing message for a failed action.
func flashError(c *gin.Context, s *session.Session, err error) {
	lang := i18n.Normalize(s.Language)
	switch status := errorStatus(err); {
	case errors.Is(err, sso.ErrStateMismatch):
		s.Flash = err.Error()
	case status >= http.StatusInternalServerError:
		logrus.WithError(err).WithField("request_id", c.GetString(middleware.RequestIDKey)).Error("portal action failed")
		s.Flash = i18n.T(lang, "changes_not_saved")
	default:
		s.Flash = err.Error()
	}
}

// Navigate records a menu selection.
// POST /navigate
func Navigate(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := d.Repo.Load(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		q := navigation.Navigate(d.Nav.Map(doc), currentSession(c), c.PostForm("label"), c.Request.URL.Query())
		redirectBack(c, q)
	}
}

// SetSearch stores the search query of the session.
// POST /search
func SetSearch() gin.HandlerFunc {
	return func(c *gin.Context) {
		currentSession(c).SearchQuery = c.PostForm("q")
		redirectBack(c, c.Request.URL.Query())
	}
}

// SetLanguage switches the UI language.
// POST /language
func SetLanguage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if lang := c.PostForm("language"); i18n.Supported(lang) {
			currentSession(c).Language = lang
		}
		redirectBack(c, c.Request.URL.Query())
	}
}

func stepRedirect(c *gin.Context, key string, idx int) {
	q := url.Values{}
	q.Set(navigation.ParamPage, key)
	q.Set(navigation.ParamStep, strconv.Itoa(idx+1))
	redirectBack(c, q)
}

// PortalToggleStep flips a step from the guide page.
// POST /guides/:key/steps/:index/toggle
func PortalToggleStep(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := c.Param("key")
		idx, ok := intParam(c, "index")
		if !ok {
			return
		}
		s := currentSession(c)
		complete, err := d.Tracker.ToggleStep(ctx, s, key, idx)
		if err == nil && complete {
			err = d.Analytics.TrackCompletion(ctx, s, key)
		}
		if err != nil {
			flashError(c, s, err)
		}
		stepRedirect(c, key, idx)
	}
}

// PortalBookmark adds or removes a bookmark from the guide page.
// POST /guides/:key/steps/:index/bookmark
func PortalBookmark(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		idx, ok := intParam(c, "index")
		if !ok {
			return
		}
		s := currentSession(c)
		add := c.PostForm("add") == "true"
		if err := d.Tracker.SaveBookmark(c.Request.Context(), s, key, idx, add); err != nil {
			flashError(c, s, err)
		}
		stepRedirect(c, key, idx)
	}
}

// PortalFeedback records a vote from the guide page.
// POST /guides/:key/steps/:index/feedback
func PortalFeedback(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		idx, ok := intParam(c, "index")
		if !ok {
			return
		}
		s := currentSession(c)
		kind := c.PostForm("kind")
		if err := d.Tracker.SaveStepFeedback(c.Request.Context(), key, idx, kind); err != nil {
			flashError(c, s, err)
		} else if kind == progress.Helpful {
			s.Flash = i18n.T(s.Language, "thanks_feedback")
		} else {
			s.Flash = i18n.T(s.Language, "will_improve")
		}
		stepRedirect(c, key, idx)
	}
}

// PortalQuiz grades a quiz submitted as form fields q0, q1, ...
// POST /guides/:key/quiz
func PortalQuiz(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := c.Param("key")
		s := currentSession(c)
		questions, err := d.CMS.Quiz(ctx, key)
		if err != nil {
			flashError(c, s, err)
			redirectBack(c, url.Values{navigation.ParamPage: {key}})
			return
		}
		answers := make([]int, len(questions))
		for i := range questions {
			n, err := strconv.Atoi(c.PostForm("q" + strconv.Itoa(i)))
			if err != nil {
				n = -1
			}
			answers[i] = n
		}
		g := progress.GradeQuiz(questions, answers)
		if err := d.Tracker.SaveQuizResult(ctx, s, key, g.Score, g.Total, g.Passed); err != nil {
			flashError(c, s, err)
		}
		redirectBack(c, url.Values{navigation.ParamPage: {key}})
	}
}

// PortalProfile stores the visitor's profile.
// POST /profile
func PortalProfile(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		err := d.Tracker.SaveUserProfile(c.Request.Context(), s, c.PostForm("name"), c.PostForm("email"), c.PostForm("department"))
		if err != nil {
			flashError(c, s, err)
		}
		redirectBack(c, c.Request.URL.Query())
	}
}

// PortalLogin is the admin login form of the portal.
// POST /login
func PortalLogin(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		err := d.Auth.Login(c.Request.Context(), s, c.PostForm("username"), c.PostForm("password"))
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			s.Flash = "Invalid credentials"
		case err != nil:
			flashError(c, s, err)
		}
		redirectBack(c, url.Values{navigation.ParamPage: {navigation.KeyAdmin}})
	}
}

// PortalLogout drops admin rights and returns to the home page.
// POST /logout
func PortalLogout(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		d.Auth.Logout(s)
		s.NavLabel = navigation.LabelHome
		redirectBack(c, url.Values{navigation.ParamPage: {navigation.KeyHome}})
	}
}

// SSOLogin starts the authorization code flow.
// GET /auth/login
func SSOLogin(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d.SSO == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "SSO is not configured"})
			return
		}
		s := currentSession(c)
		s.OAuthState = sso.NewState()
		c.Redirect(http.StatusFound, d.SSO.AuthCodeURL(s.OAuthState))
	}
}

// SSOCallback completes the flow and binds the identity to the session.
// GET /auth/callback
func SSOCallback(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d.SSO == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "SSO is not configured"})
			return
		}
		ctx := c.Request.Context()
		s := currentSession(c)
		state := s.OAuthState
		s.OAuthState = ""
		if state == "" || c.Query("state") != state {
			flashError(c, s, sso.ErrStateMismatch)
			redirectBack(c, nil)
			return
		}
		if msg := c.Query("error"); msg != "" {
			logrus.WithField("error", msg).Warn("identity provider rejected sign in")
			s.Flash = c.Query("error_description")
			redirectBack(c, nil)
			return
		}
		claims, err := d.SSO.Exchange(ctx, c.Query("code"))
		if err != nil {
			logrus.WithError(err).Warn("SSO sign in failed")
			s.Flash = err.Error()
			redirectBack(c, nil)
			return
		}
		if err := identity.BindSSOUser(ctx, d.Repo, s, claims); err != nil {
			flashError(c, s, err)
		}
		redirectBack(c, nil)
	}
}

// SSOLogout forgets the SSO identity of the session. Progress reverts to
// the anonymous id cached in the session.
// POST /auth/logout
func SSOLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		s.SSOUser = nil
		redirectBack(c, nil)
	}
}
