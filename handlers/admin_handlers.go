package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"induction-portal/auth"
	"induction-portal/cms"
	"induction-portal/models"
)

// AdminDashboard renders the admin panel with analytics, feedback, user
// progress and recent system logs.
// GET /admin
func AdminDashboard(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		s := currentSession(c)

		dash, err := d.Analytics.Dashboard(ctx)
		if err != nil {
			logrus.WithError(err).Error("Error loading analytics dashboard")
		}
		feedback, err := d.Analytics.FeedbackSummary(ctx)
		if err != nil {
			logrus.WithError(err).Error("Error loading feedback summary")
		}
		users, err := d.Tracker.AllUsersProgress(ctx)
		if err != nil {
			logrus.WithError(err).Error("Error loading user progress")
		}
		logs, err := d.CMS.Logs(ctx)
		if err != nil {
			logrus.WithError(err).Error("Error loading system logs")
		}
		admins, err := d.CMS.Admins(ctx)
		if err != nil {
			logrus.WithError(err).Error("Error loading admins")
		}
		doc, err := d.Repo.Load(ctx)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if len(logs) > 20 {
			logs = logs[:20]
		}

		avgProgress := 0
		if len(users) > 0 {
			sum := 0
			for _, u := range users {
				sum += u.CompletionPct
			}
			avgProgress = sum / len(users)
		}

		c.HTML(http.StatusOK, "admin_dashboard", gin.H{
			"Title":       "Admin Panel",
			"Page":        pageData(c, d, doc, "admin"),
			"Analytics":   dash,
			"Feedback":    feedback,
			"Users":       users,
			"AvgProgress": avgProgress,
			"Logs":        logs,
			"Admins":      admins,
			"Categories":  doc.CategoriesList.Entries(),
			"AdminUser":   adminName(s),
		})
	}
}

type loginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// AdminLogin checks admin credentials and marks the session.
// POST /admin/login
func AdminLogin(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
			return
		}
		s := currentSession(c)
		if err := d.Auth.Login(c.Request.Context(), s, req.Username, req.Password); err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"admin": s.AdminUser})
	}
}

// AdminLogout clears the admin flag of the session.
// POST /admin/logout
func AdminLogout(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		d.Auth.Logout(currentSession(c))
		c.Status(http.StatusNoContent)
	}
}

type categoryRequest struct {
	Key  string `json:"key" form:"key"`
	Name string `json:"name" form:"name" binding:"required"`
}

// AdminCreateCategory adds an empty guide.
// POST /admin/api/categories
func AdminCreateCategory(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req categoryRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := d.CMS.CreateCategory(c.Request.Context(), req.Key, req.Name, adminName(currentSession(c))); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"key": req.Key, "name": req.Name})
	}
}

// AdminRenameCategory changes the display name of a guide.
// PUT /admin/api/categories/:key
func AdminRenameCategory(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req categoryRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := d.CMS.RenameCategory(c.Request.Context(), c.Param("key"), req.Name, adminName(currentSession(c))); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// AdminDeleteCategory removes a guide. Its version history is kept.
// DELETE /admin/api/categories/:key
func AdminDeleteCategory(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.CMS.DeleteCategory(c.Request.Context(), c.Param("key"), adminName(currentSession(c))); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type moveRequest struct {
	Delta int `json:"delta" form:"delta" binding:"required,oneof=-1 1"`
}

// AdminMoveCategory moves a guide up (-1) or down (1) in the menu.
// POST /admin/api/categories/:key/move
func AdminMoveCategory(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req moveRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := d.CMS.MoveCategory(c.Request.Context(), c.Param("key"), req.Delta); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type detailsRequest struct {
	Description   *string `json:"description"`
	EstimatedTime *int    `json:"estimated_time"`
	// ClearEstimate resets the estimate to the per-step default.
	ClearEstimate bool `json:"clear_estimate"`
}

// AdminUpdateDetails edits the description and estimated time of a guide.
// PATCH /admin/api/categories/:key
func AdminUpdateDetails(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := c.Param("key")
		author := adminName(currentSession(c))
		var req detailsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Description != nil {
			if err := d.CMS.SetDescription(ctx, key, *req.Description, author); err != nil {
				abortWithError(c, err)
				return
			}
		}
		if req.EstimatedTime != nil || req.ClearEstimate {
			if err := d.CMS.SetEstimatedTime(ctx, key, req.EstimatedTime, author); err != nil {
				abortWithError(c, err)
				return
			}
		}
		c.Status(http.StatusNoContent)
	}
}

// AdminAddStep appends a custom step.
// POST /admin/api/categories/:key/steps
func AdminAddStep(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var step models.Step
		if err := c.ShouldBindJSON(&step); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := d.CMS.AddStep(c.Request.Context(), c.Param("key"), step, adminName(currentSession(c))); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusCreated)
	}
}

// AdminUploadMediaSteps stores uploaded images or videos and adds one step
// per file.
// POST /admin/api/categories/:key/media
func AdminUploadMediaSteps(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form with files expected"})
			return
		}
		files := form.File["files"]
		if len(files) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no files uploaded"})
			return
		}
		var names []string
		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				abortWithError(c, err)
				return
			}
			name, err := d.CMS.SaveMedia(fh.Filename, f)
			f.Close()
			if err != nil {
				abortWithError(c, err)
				return
			}
			names = append(names, name)
		}
		if err := d.CMS.AddMediaSteps(c.Request.Context(), c.Param("key"), names, adminName(currentSession(c))); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"files": names})
	}
}

type videoLinkRequest struct {
	URL string `json:"url" form:"url" binding:"required"`
}

// AdminAddVideoLink adds a step playing an external video.
// POST /admin/api/categories/:key/video
func AdminAddVideoLink(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req videoLinkRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := d.CMS.AddVideoLinkStep(c.Request.Context(), c.Param("key"), req.URL, adminName(currentSession(c))); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusCreated)
	}
}

// AdminUpdateStep edits title, text and video link of a step.
// PUT /admin/api/categories/:key/steps/:index
func AdminUpdateStep(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		idx, ok := intParam(c, "index")
		if !ok {
			return
		}
		var step models.Step
		if err := c.ShouldBindJSON(&step); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		err := d.CMS.UpdateStep(c.Request.Context(), c.Param("key"), idx, step.Title, step.Text, step.VideoURL, adminName(currentSession(c)))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// AdminReplaceStepMedia swaps the image or video of a step.
// PUT /admin/api/categories/:key/steps/:index/media
func AdminReplaceStepMedia(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		idx, ok := intParam(c, "index")
		if !ok {
			return
		}
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file expected"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			abortWithError(c, err)
			return
		}
		name, err := saveUpload(d, fh.Filename, f)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if err := d.CMS.ReplaceStepMedia(c.Request.Context(), c.Param("key"), idx, name, adminName(currentSession(c))); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"file": name})
	}
}

func saveUpload(d *Deps, filename string, f io.ReadCloser) (string, error) {
	defer f.Close()
	return d.CMS.SaveMedia(filename, f)
}

// AdminMoveStep moves a step up (-1) or down (1).
// POST /admin/api/categories/:key/steps/:index/move
func AdminMoveStep(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		idx, ok := intParam(c, "index")
		if !ok {
			return
		}
		var req moveRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := d.CMS.MoveStep(c.Request.Context(), c.Param("key"), idx, req.Delta, adminName(currentSession(c))); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// AdminDeleteStep removes a step.
// DELETE /admin/api/categories/:key/steps/:index
func AdminDeleteStep(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		idx, ok := intParam(c, "index")
		if !ok {
			return
		}
		if err := d.CMS.DeleteStep(c.Request.Context(), c.Param("key"), idx, adminName(currentSession(c))); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type questionRequest struct {
	Q       string   `json:"q" binding:"required"`
	Answers []string `json:"answers" binding:"required"`
	Correct int      `json:"correct"`
}

// AdminAddQuestion appends a quiz question.
// POST /admin/api/categories/:key/quiz
func AdminAddQuestion(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req questionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		q, err := cms.NewQuestion(req.Q, req.Answers, req.Correct)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if err := d.CMS.AddQuestion(c.Request.Context(), c.Param("key"), q, adminName(currentSession(c))); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusCreated)
	}
}

// AdminDeleteQuestion removes a quiz question.
// DELETE /admin/api/categories/:key/quiz/:index
func AdminDeleteQuestion(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		idx, ok := intParam(c, "index")
		if !ok {
			return
		}
		if err := d.CMS.DeleteQuestion(c.Request.Context(), c.Param("key"), idx, adminName(currentSession(c))); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// AdminVersionHistory lists snapshots of a guide, newest first.
// GET /admin/api/categories/:key/versions
func AdminVersionHistory(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		history, err := d.CMS.VersionHistory(c.Request.Context(), c.Param("key"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		if history == nil {
			history = []models.Version{}
		}
		c.JSON(http.StatusOK, history)
	}
}

// AdminRestoreVersion restores a snapshot.
// POST /admin/api/categories/:key/versions/:version/restore
func AdminRestoreVersion(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := intParam(c, "version")
		if !ok {
			return
		}
		if err := d.CMS.RestoreVersion(c.Request.Context(), c.Param("key"), v, adminName(currentSession(c))); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// AdminImportCategory creates or replaces a guide from an uploaded YAML file.
// POST /admin/api/import
func AdminImportCategory(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var data []byte
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				abortWithError(c, err)
				return
			}
			data, err = io.ReadAll(f)
			f.Close()
			if err != nil {
				abortWithError(c, err)
				return
			}
		} else {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				abortWithError(c, err)
				return
			}
			data = body
		}
		res, err := d.CMS.ImportCategoryYAML(c.Request.Context(), data, adminName(currentSession(c)))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

type homeRequest struct {
	Text string `json:"text" form:"text"`
	Logo string `json:"logo" form:"logo"`
}

// AdminUpdateHome edits the landing page.
// PUT /admin/api/home
func AdminUpdateHome(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req homeRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := d.CMS.UpdateHome(c.Request.Context(), req.Text, req.Logo, adminName(currentSession(c))); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type faqRequest struct {
	Q string `json:"q" form:"q"`
	A string `json:"a" form:"a"`
}

// AdminAddFAQ appends a FAQ entry.
// POST /admin/api/faq
func AdminAddFAQ(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req faqRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := d.CMS.AddFAQ(c.Request.Context(), req.Q, req.A); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusCreated)
	}
}

// AdminUpdateFAQ edits a FAQ entry.
// PUT /admin/api/faq/:index
func AdminUpdateFAQ(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		idx, ok := intParam(c, "index")
		if !ok {
			return
		}
		var req faqRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := d.CMS.UpdateFAQ(c.Request.Context(), idx, req.Q, req.A); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// AdminMoveFAQ moves a FAQ entry up (-1) or down (1).
// POST /admin/api/faq/:index/move
func AdminMoveFAQ(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		idx, ok := intParam(c, "index")
		if !ok {
			return
		}
		var req moveRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := d.CMS.MoveFAQ(c.Request.Context(), idx, req.Delta); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// AdminDeleteFAQ removes a FAQ entry.
// DELETE /admin/api/faq/:index
func AdminDeleteFAQ(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		idx, ok := intParam(c, "index")
		if !ok {
			return
		}
		if err := d.CMS.DeleteFAQ(c.Request.Context(), idx); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type adminUserRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// AdminAddUser creates or replaces an admin account.
// POST /admin/api/admins
func AdminAddUser(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req adminUserRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := d.CMS.AddAdmin(c.Request.Context(), req.Username, req.Password, adminName(currentSession(c))); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusCreated)
	}
}

// AdminRemoveUser deletes an admin account.
// DELETE /admin/api/admins/:username
func AdminRemoveUser(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.CMS.RemoveAdmin(c.Request.Context(), c.Param("username"), adminName(currentSession(c))); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// AdminClearLogs empties the system log.
// DELETE /admin/api/logs
func AdminClearLogs(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.CMS.ClearLogs(c.Request.Context()); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// AdminAnalyticsSummary returns per-guide analytics.
// GET /admin/api/analytics
func AdminAnalyticsSummary(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := d.Analytics.Summary(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

// AdminResetAnalytics clears all analytics counters.
// DELETE /admin/api/analytics
func AdminResetAnalytics(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.Analytics.Reset(c.Request.Context()); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// AdminClearFeedback clears all step feedback.
// DELETE /admin/api/feedback
func AdminClearFeedback(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.Analytics.ClearFeedback(c.Request.Context()); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// AdminUserProgress lists every known user's progress.
// GET /admin/api/users
func AdminUserProgress(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := d.Tracker.AllUsersProgress(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}
