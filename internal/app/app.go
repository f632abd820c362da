package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/destinyrisingdb/artifactdb/internal/catalog"
	"github.com/destinyrisingdb/artifactdb/internal/config"
	"github.com/destinyrisingdb/artifactdb/internal/db"
	"github.com/destinyrisingdb/artifactdb/internal/http/api"
	"github.com/destinyrisingdb/artifactdb/internal/storage"
)

// Migrate opens the database and runs migrations, then exits.
func Migrate(cfg config.Config) error {
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the catalog API and serves until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.Config) error {
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	store, errStore := buildEvidenceStore(ctx, cfg.Uploads)
	if errStore != nil {
		return errStore
	}

	moderation := catalog.NewModeration(conn, cfg.Moderation.StrictDelete)

	engine := buildEngine(conn, moderation, store, cfg.Uploads)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("artifact catalog listening on %s", cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return fmt.Errorf("app: shutdown: %w", errShutdown)
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// buildEngine assembles the gin engine with routes and static upload serving.
func buildEngine(conn *gorm.DB, moderation *catalog.Moderation, store storage.Store, uploads config.UploadsConfig) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	api.RegisterRoutes(engine, conn, moderation, store)

	if local, ok := store.(*storage.LocalStore); ok && uploads.PublicURL != "" {
		engine.Static(uploads.PublicURL, local.Dir())
	}

	return engine
}

// buildEvidenceStore picks the configured blob backend.
func buildEvidenceStore(ctx context.Context, cfg config.UploadsConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "gcs":
		return storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.CDNDomain)
	default:
		return storage.NewLocalStore(cfg.LocalDir, cfg.PublicURL)
	}
}

// requestLogger logs one line per request through logrus.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		}).Debug("request")
	}
}
