package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nkiryanov/urfube/internal/db"
	"github.com/nkiryanov/urfube/internal/handlers"
	"github.com/nkiryanov/urfube/internal/logger"
	"github.com/nkiryanov/urfube/internal/objectstore"
	"github.com/nkiryanov/urfube/internal/repository/postgres"
	"github.com/nkiryanov/urfube/internal/service/auth"
	"github.com/nkiryanov/urfube/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/urfube/internal/service/engagement"
	"github.com/nkiryanov/urfube/internal/service/user"
	"github.com/nkiryanov/urfube/internal/service/video"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
	pool   *pgxpool.Pool
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Token settings are checked before anything is started
	tokenManager, err := tokenmanager.New(c.Tokens())
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	objects, err := objectstore.New(ctx, c.ObjectStore())
	if err != nil {
		return nil, fmt.Errorf("error while creating object store. Err: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN, c.Pool())
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Repositories are built once, every statement runs on the connection of its request
	storage := postgres.NewStorage(db.Scoped{})

	// Initialize services
	authService, err := auth.NewService(auth.Config{}, tokenManager, storage.User())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	router := handlers.NewRouter(handlers.Services{
		Auth:       authService,
		Users:      user.NewService(auth.DefaultHasher, storage),
		Videos:     video.NewService(storage, objects, logger),
		Engagement: engagement.NewService(storage),
	}, db.PoolAcquirer{Pool: pool}, logger)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    router,
		logger:     logger,
		pool:       pool,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
// Connection pool is closed when server stopped
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.pool.Close()

	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
