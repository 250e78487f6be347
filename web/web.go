// Package web assembles the HTTP API server: datastore, cache, object
// storage, notification dispatch, routing and scheduled jobs.
package web

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dicoevent/dicoevent/config"
	"github.com/dicoevent/dicoevent/database"
	"github.com/dicoevent/dicoevent/logger"
	"github.com/dicoevent/dicoevent/util/common"
	"github.com/dicoevent/dicoevent/web/cache"
	"github.com/dicoevent/dicoevent/web/controller"
	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/job"
	"github.com/dicoevent/dicoevent/web/middleware"
	"github.com/dicoevent/dicoevent/web/notify"
	"github.com/dicoevent/dicoevent/web/service"
	"github.com/dicoevent/dicoevent/web/storage"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

// Server represents the API server with its dependencies and scheduled jobs.
type Server struct {
	httpServer *http.Server
	listener   net.Listener

	services *service.Services
	api      *controller.APIController
	closer   func() error

	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new web server instance with a cancellable context.
func NewServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{ctx: ctx, cancel: cancel}
}

// OpenDeps connects every backing service named by configuration. The
// caller owns the returned closer.
func OpenDeps(ctx context.Context) (*service.Deps, func() error, error) {
	db, err := database.Open(config.GetDatabaseConfig())
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}

	store, err := cache.OpenStore()
	if err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}

	dispatcher, err := notify.OpenDispatcher()
	if err != nil {
		_ = store.Close()
		_ = database.Close(db)
		return nil, nil, err
	}

	deps := &service.Deps{
		DB:                db,
		Cache:             cache.NewLayer(store, config.GetCacheTTL(), config.GetCacheTimeout()),
		Dispatcher:        dispatcher,
		DBTimeout:         config.GetDBTimeout(),
		StorageTimeout:    config.GetStorageTimeout(),
		PresignExpiry:     config.GetPresignExpiry(),
		PlaceholderDomain: config.GetPlaceholderEmailDomain(),
	}
	if config.GetMinioEndpoint() != "" {
		if objects, err := openStorage(ctx); err != nil {
			// posters fail with 502 until storage is reachable
			logger.Error("object storage unavailable:", err)
		} else {
			deps.Storage = objects
		}
	} else {
		logger.Warning("MINIO_ENDPOINT_URL is not set, poster uploads are disabled")
	}

	closer := func() error {
		return common.Combine(dispatcher.Close(), store.Close(), database.Close(db))
	}
	return deps, closer, nil
}

func openStorage(ctx context.Context) (*storage.MinioStore, error) {
	objects, err := storage.NewMinioStoreFromConfig()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, config.GetStorageTimeout())
	defer cancel()
	if err := objects.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return objects, nil
}

// NewEngine builds the gin engine serving the API over services.
func NewEngine(services *service.Services) (*gin.Engine, *controller.APIController) {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.AccessLog())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	limit := middleware.DefaultRateLimitConfig()
	limit.RequestsPerMinute = config.GetLoginRateLimit()
	api := controller.NewAPIController(&engine.RouterGroup, services, limit)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, entity.Detail{Detail: "Not found."})
	})
	return engine, api
}

// startTask schedules background jobs.
func (s *Server) startTask() {
	spec := config.GetReminderCron()
	reminders := job.NewEventReminderJob(s.services.Reminders, config.GetReminderLookahead())
	if _, err := s.cron.AddJob(spec, reminders); err != nil {
		logger.Errorf("Add EventReminderJob error[%s], spec[%s] invalid, will run hourly", err, spec)
		s.cron.AddJob("@hourly", reminders)
	}
}

// Start initializes and starts the web server.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	deps, closer, err := OpenDeps(s.ctx)
	if err != nil {
		return err
	}
	s.closer = closer

	s.services = service.NewServices(deps, service.AuthOptions{
		Secret:     config.GetJWTSecret(),
		AccessTTL:  config.GetAccessTokenTTL(),
		RefreshTTL: config.GetRefreshTokenTTL(),
	})

	s.cron = cron.New(cron.WithLocation(config.GetTimeLocation()))
	s.cron.Start()

	engine, api := NewEngine(s.services)
	s.api = api

	listenAddr := net.JoinHostPort(config.GetListen(), strconv.Itoa(config.GetPort()))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	logger.Info("Web server running HTTP on ", listener.Addr())

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("web server stopped:", err)
		}
	}()

	s.startTask()
	return nil
}

// Stop gracefully shuts down the web server, cron jobs and backing connections.
func (s *Server) Stop() error {
	s.cancel()
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	var err1, err2, err3 error
	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err1 = s.httpServer.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			err2 = err
		}
	}
	if s.closer != nil {
		err3 = s.closer()
	}
	return common.Combine(err1, err2, err3)
}

// GetCtx returns the server's context.
func (s *Server) GetCtx() context.Context { return s.ctx }

// GetCron returns the server's cron scheduler instance.
func (s *Server) GetCron() *cron.Cron { return s.cron }
