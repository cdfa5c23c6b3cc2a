package handlers

import (
	"github.com/gin-gonic/gin"

	"induction-portal/middleware"
)

// RegisterRoutes mounts the portal pages, the JSON API and the admin API.
// api carries extra middleware for /api/v1 such as CORS or bearer auth.
func RegisterRoutes(r *gin.Engine, d *Deps, mediaDir string, api ...gin.HandlerFunc) {
	if mediaDir != "" {
		r.Static("/media", mediaDir)
	}

	r.GET("/", Portal(d))
	r.POST("/navigate", Navigate(d))
	r.POST("/search", SetSearch())
	r.POST("/language", SetLanguage())
	r.POST("/profile", PortalProfile(d))
	r.POST("/login", PortalLogin(d))
	r.POST("/logout", PortalLogout(d))
	guides := r.Group("/guides/:key")
	{
		guides.POST("/steps/:index/toggle", PortalToggleStep(d))
		guides.POST("/steps/:index/bookmark", PortalBookmark(d))
		guides.POST("/steps/:index/feedback", PortalFeedback(d))
		guides.POST("/quiz", PortalQuiz(d))
	}

	authGroup := r.Group("/auth")
	{
		authGroup.GET("/login", SSOLogin(d))
		authGroup.GET("/callback", SSOCallback(d))
		authGroup.POST("/logout", SSOLogout())
	}

	// API Routes (version 1)
	apiV1 := r.Group("/api/v1")
	apiV1.Use(api...)
	{
		apiV1.GET("/categories", GetCategories(d))
		apiV1.GET("/categories/:key", GetCategory(d))
		apiV1.POST("/categories/:key/view", TrackView(d))
		apiV1.POST("/categories/:key/steps/:index/toggle", ToggleStep(d))
		apiV1.POST("/categories/:key/steps/:index/bookmark", SetBookmark(d))
		apiV1.POST("/categories/:key/steps/:index/feedback", PostFeedback(d))
		apiV1.POST("/categories/:key/quiz", SubmitQuiz(d))
		apiV1.GET("/search", SearchContent(d))
		apiV1.GET("/bookmarks", GetBookmarks(d))
		apiV1.GET("/me", GetMe(d))
		apiV1.PUT("/me/profile", PutProfile(d))
		apiV1.PUT("/me/language", PutLanguage())
	}

	r.POST("/admin/login", AdminLogin(d))
	r.POST("/admin/logout", AdminLogout(d))

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("", AdminDashboard(d))

		adminAPI := admin.Group("/api")
		adminAPI.POST("/categories", AdminCreateCategory(d))
		adminAPI.PUT("/categories/:key", AdminRenameCategory(d))
		adminAPI.PATCH("/categories/:key", AdminUpdateDetails(d))
		adminAPI.DELETE("/categories/:key", AdminDeleteCategory(d))
		adminAPI.POST("/categories/:key/move", AdminMoveCategory(d))
		adminAPI.POST("/categories/:key/steps", AdminAddStep(d))
		adminAPI.POST("/categories/:key/media", AdminUploadMediaSteps(d))
		adminAPI.POST("/categories/:key/video", AdminAddVideoLink(d))
		adminAPI.PUT("/categories/:key/steps/:index", AdminUpdateStep(d))
		adminAPI.PUT("/categories/:key/steps/:index/media", AdminReplaceStepMedia(d))
		adminAPI.POST("/categories/:key/steps/:index/move", AdminMoveStep(d))
		adminAPI.DELETE("/categories/:key/steps/:index", AdminDeleteStep(d))
		adminAPI.POST("/categories/:key/quiz", AdminAddQuestion(d))
		adminAPI.DELETE("/categories/:key/quiz/:index", AdminDeleteQuestion(d))
		adminAPI.GET("/categories/:key/versions", AdminVersionHistory(d))
		adminAPI.POST("/categories/:key/versions/:version/restore", AdminRestoreVersion(d))
		adminAPI.POST("/import", AdminImportCategory(d))
		adminAPI.PUT("/home", AdminUpdateHome(d))
		adminAPI.POST("/faq", AdminAddFAQ(d))
		adminAPI.PUT("/faq/:index", AdminUpdateFAQ(d))
		adminAPI.POST("/faq/:index/move", AdminMoveFAQ(d))
		adminAPI.DELETE("/faq/:index", AdminDeleteFAQ(d))
		adminAPI.POST("/admins", AdminAddUser(d))
		adminAPI.DELETE("/admins/:username", AdminRemoveUser(d))
		adminAPI.DELETE("/logs", AdminClearLogs(d))
		adminAPI.GET("/analytics", AdminAnalyticsSummary(d))
		adminAPI.DELETE("/analytics", AdminResetAnalytics(d))
		adminAPI.DELETE("/feedback", AdminClearFeedback(d))
		adminAPI.GET("/users", AdminUserProgress(d))
	}
}
