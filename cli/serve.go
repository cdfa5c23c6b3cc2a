package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"induction-portal/analytics"
	"induction-portal/auth"
	"induction-portal/cms"
	"induction-portal/config"
	"induction-portal/db"
	"induction-portal/handlers"
	"induction-portal/identity"
	"induction-portal/metrics"
	"induction-portal/middleware"
	"induction-portal/navigation"
	"induction-portal/progress"
	"induction-portal/sso"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the portal web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, c *config.Config) error {
	store, backend, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer store.Close()

	// Fail fast on a malformed document instead of on the first request.
	if _, err := store.Load(ctx); err != nil {
		return err
	}

	sessions, closeSessions, err := openSessionStore(ctx, c)
	if err != nil {
		return err
	}
	defer closeSessions()

	var provider *sso.Provider
	if c.SSO.Enabled() {
		provider = sso.NewProvider(c.SSO)
	}

	ids := identity.NewResolver()
	deps := &handlers.Deps{
		Repo:      store,
		CMS:       cms.NewService(store, c.MediaDir),
		Auth:      auth.NewAuthenticator(store, c.Admin.MasterUsername, c.Admin.MasterPassword),
		Tracker:   progress.NewTracker(store, ids),
		Analytics: analytics.NewAggregator(store),
		IDs:       ids,
		Nav:       navigation.NewSynchronizer(),
		SSO:       provider,
	}

	gin.SetMode(c.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID(), middleware.Logger(), metrics.Middleware())
	router.HTMLRender = handlers.NewRenderer(c.TemplatesDir)

	router.GET("/health", func(gc *gin.Context) {
		gc.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.Use(middleware.Sessions(sessions, middleware.SessionOptions{
		CookieName: c.Session.CookieName,
		TTL:        c.Session.TTL,
		Secure:     c.Session.SecureCookie,
	}))

	api := []gin.HandlerFunc{cors.New(cors.Config{
		AllowOrigins:  c.CORSOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	})}
	if provider != nil && c.SSO.IDTokenKey != "" {
		api = append(api, middleware.SSOBearer(provider, store))
	}
	handlers.RegisterRoutes(router, deps, c.MediaDir, api...)

	g, gctx := errgroup.WithContext(ctx)

	if fb, ok := backend.(*db.FileBackend); ok && c.WatchDataFile {
		w, err := db.NewWatcher(fb.Path(), store.Invalidate)
		if err != nil {
			logrus.WithError(err).Warn("data file watcher disabled")
		} else {
			defer w.Close()
			g.Go(func() error {
				w.Run(gctx)
				return nil
			})
		}
	}

	srv := &http.Server{
		Addr:    c.ServerPort,
		Handler: router,
	}
	g.Go(func() error {
		logrus.WithFields(logrus.Fields{
			"addr":     c.ServerPort,
			"storage":  c.Storage.Backend,
			"sessions": c.Session.Backend,
			"sso":      provider != nil,
		}).Info("Induction portal starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logrus.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logrus.Info("Server exited gracefully.")
	return nil
}
