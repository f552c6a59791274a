package bootstrap

import (
	"net/http"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/universal-inbox/universal-inbox/internal/broker"
	"github.com/universal-inbox/universal-inbox/internal/config"
	"github.com/universal-inbox/universal-inbox/internal/core"
	"github.com/universal-inbox/universal-inbox/internal/services"
	"github.com/universal-inbox/universal-inbox/internal/store"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB           *store.Store
	Recorder     core.Recorder
	ProjectCache core.Cache[string]
	Broker       core.ConnectionBroker
	Registry     *core.Registry

	// Services
	ConnectionService *services.IntegrationConnectionService
	SyncService       *services.SyncService

	// HTTP
	Router *gin.Engine
	Server *http.Server
}

// Run initializes the application and blocks until shutdown.
func Run(cfg *config.Config, registry *core.Registry) error {
	app := &Application{
		Config:   cfg,
		Registry: registry,
	}

	if err := app.initializeInfrastructure(); err != nil {
		return err
	}
	app.initializeBusinessLayer()
	app.initializeHTTPLayer()
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up the database, metrics, project cache and
// the broker client.
func (app *Application) initializeInfrastructure() error {
	var err error

	app.DB, err = initializeDatabase(app.Config)
	if err != nil {
		return err
	}

	app.Recorder = initializeMetrics(prometheus.DefaultRegisterer)

	app.ProjectCache, err = initializeProjectCache(app.Config)
	if err != nil {
		return err
	}

	app.Broker, err = broker.New(app.Config, app.Recorder)
	if err != nil {
		return err
	}

	return nil
}

func (app *Application) initializeBusinessLayer() {
	app.ConnectionService = services.NewIntegrationConnectionService(
		app.DB,
		app.Broker,
		app.Recorder,
	)
	app.SyncService = services.NewSyncService(
		app.DB,
		app.ConnectionService,
		app.Registry,
		app.ProjectCache,
		app.Recorder,
		app.Config,
	)
}

func (app *Application) initializeHTTPLayer() {
	app.Router = setupRouter(app.Config, app.DB, handlerSet{
		connections: app.ConnectionService,
		sync:        app.SyncService,
	})
	app.Server = createHTTPServer(app.Config, app.Router)
}

func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Server)
	addProjectCacheShutdownJob(m, app.ProjectCache)

	<-m.Done()
}
