package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/appleboy/graceful"

	"github.com/universal-inbox/universal-inbox/internal/config"
	"github.com/universal-inbox/universal-inbox/internal/core"
)

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, srv *http.Server) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})
}

// addProjectCacheShutdownJob adds project cache shutdown handler
func addProjectCacheShutdownJob(m *graceful.Manager, projectCache core.Cache[string]) {
	if projectCache == nil {
		return
	}

	m.AddShutdownJob(func() error {
		if err := projectCache.Close(); err != nil {
			log.Printf("Error closing project cache: %v", err)
			return err
		}
		log.Println("Project cache closed")
		return nil
	})
}
