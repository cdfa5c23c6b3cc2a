package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"induction-portal/i18n"
	"induction-portal/models"
	"induction-portal/navigation"
	"induction-portal/progress"
	"induction-portal/search"
)

type categorySummary struct {
	Key              string  `json:"key"`
	Name             string  `json:"name"`
	StepCount        int     `json:"step_count"`
	EstimatedMinutes int     `json:"estimated_minutes"`
	LastUpdated      *string `json:"last_updated"`
}

// GetCategories lists guides in menu order.
// GET /api/v1/categories
func GetCategories(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := d.Repo.Load(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		out := make([]categorySummary, 0, doc.CategoriesList.Len())
		for _, e := range doc.CategoriesList.Entries() {
			content := doc.Category(e.Key)
			if content == nil {
				content = models.NewCategoryContent()
			}
			out = append(out, categorySummary{
				Key:              e.Key,
				Name:             e.Name,
				StepCount:        len(content.Steps),
				EstimatedMinutes: content.Minutes(),
				LastUpdated:      content.LastUpdated,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}

// GetCategory returns a guide with the caller's progress. The quiz is sent
// without the correct answers.
// GET /api/v1/categories/:key
func GetCategory(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := c.Param("key")
		doc, err := d.Repo.Load(ctx)
		if err != nil {
			abortWithError(c, err)
			return
		}
		name, ok := doc.CategoriesList.Name(key)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Page not found."})
			return
		}
		content := doc.Category(key)
		if content == nil {
			content = models.NewCategoryContent()
		}

		s := currentSession(c)
		quiz := make([]gin.H, 0, len(content.Quiz))
		for _, q := range content.Quiz {
			quiz = append(quiz, gin.H{"q": q.Q, "answers": q.Answers})
		}
		resp := gin.H{
			"key":               key,
			"name":              name,
			"description":       content.Description,
			"steps":             content.Steps,
			"quiz":              quiz,
			"last_updated":      content.LastUpdated,
			"estimated_minutes": content.Minutes(),
			"completed_steps":   d.Tracker.LoadUserProgress(ctx, s, key),
		}
		if r, ok := d.Tracker.QuizResult(ctx, s, key); ok {
			resp["quiz_result"] = r
		}
		c.JSON(http.StatusOK, resp)
	}
}

// SearchContent runs a search over all guides.
// GET /api/v1/search?q=
func SearchContent(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := d.Repo.Load(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		results := search.Search(doc, c.Query("q"))
		if results == nil {
			results = []search.Result{}
		}
		c.JSON(http.StatusOK, results)
	}
}

// TrackView records a guide view for the session.
// POST /api/v1/categories/:key/view
func TrackView(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.Analytics.TrackPageView(c.Request.Context(), currentSession(c), c.Param("key")); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ToggleStep flips completion of a step and records a completion when the
// guide becomes complete.
// POST /api/v1/categories/:key/steps/:index/toggle
func ToggleStep(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := c.Param("key")
		idx, ok := intParam(c, "index")
		if !ok {
			return
		}
		s := currentSession(c)
		complete, err := d.Tracker.ToggleStep(ctx, s, key, idx)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if complete {
			if err := d.Analytics.TrackCompletion(ctx, s, key); err != nil {
				abortWithError(c, err)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"completed_steps": d.Tracker.LoadUserProgress(ctx, s, key),
			"guide_complete":  complete,
		})
	}
}

type bookmarkRequest struct {
	Add bool `json:"add" form:"add"`
}

// SetBookmark adds or removes a step bookmark.
// POST /api/v1/categories/:key/steps/:index/bookmark
func SetBookmark(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		idx, ok := intParam(c, "index")
		if !ok {
			return
		}
		var req bookmarkRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := d.Tracker.SaveBookmark(c.Request.Context(), currentSession(c), c.Param("key"), idx, req.Add); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type bookmarkLink struct {
	progress.BookmarkLink
	URL string `json:"url"`
}

// GetBookmarks lists the caller's bookmarks with deep links.
// GET /api/v1/bookmarks
func GetBookmarks(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		links := d.Tracker.Bookmarks(c.Request.Context(), currentSession(c))
		out := make([]bookmarkLink, 0, len(links))
		for _, l := range links {
			out = append(out, bookmarkLink{BookmarkLink: l, URL: "/" + navigation.DeepLink(l.Key, l.StepIndex)})
		}
		c.JSON(http.StatusOK, out)
	}
}

type feedbackRequest struct {
	Kind string `json:"kind" form:"kind" binding:"required"`
}

// PostFeedback records an anonymous helpful / not helpful vote.
// POST /api/v1/categories/:key/steps/:index/feedback
func PostFeedback(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		idx, ok := intParam(c, "index")
		if !ok {
			return
		}
		var req feedbackRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := d.Tracker.SaveStepFeedback(c.Request.Context(), c.Param("key"), idx, req.Kind); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type quizRequest struct {
	Answers []int `json:"answers" binding:"required"`
}

// SubmitQuiz grades the answers and stores the result.
// POST /api/v1/categories/:key/quiz
func SubmitQuiz(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := c.Param("key")
		var req quizRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		questions, err := d.CMS.Quiz(ctx, key)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if len(questions) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "This guide has no quiz"})
			return
		}
		g := progress.GradeQuiz(questions, req.Answers)
		if err := d.Tracker.SaveQuizResult(ctx, currentSession(c), key, g.Score, g.Total, g.Passed); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"score": g.Score, "total": g.Total, "passed": g.Passed})
	}
}

// GetMe returns the caller's identity, profile and completion status.
// GET /api/v1/me
func GetMe(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		uid := d.IDs.UserID(s)
		status, err := d.Tracker.UserCompletionStatus(c.Request.Context(), uid)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user_id":  uid,
			"sso":      s.IsSSOAuthenticated(),
			"language": i18n.Normalize(s.Language),
			"status":   status,
		})
	}
}

type profileRequest struct {
	Name       string `json:"name" form:"name" binding:"required"`
	Email      string `json:"email" form:"email"`
	Department string `json:"department" form:"department"`
}

// PutProfile stores the caller's profile.
// PUT /api/v1/me/profile
func PutProfile(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req profileRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := d.Tracker.SaveUserProfile(c.Request.Context(), currentSession(c), req.Name, req.Email, req.Department); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type languageRequest struct {
	Language string `json:"language" form:"language" binding:"required"`
}

// PutLanguage sets the UI language of the session.
// PUT /api/v1/me/language
func PutLanguage() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req languageRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !i18n.Supported(req.Language) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported language"})
			return
		}
		currentSession(c).Language = req.Language
		c.Status(http.StatusNoContent)
	}
}
