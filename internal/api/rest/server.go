package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/recomarket/recomarket-backend/internal/infrastructure/config"
	"github.com/recomarket/recomarket-backend/internal/infrastructure/database"
	"github.com/recomarket/recomarket-backend/internal/infrastructure/events"
	"github.com/recomarket/recomarket-backend/internal/infrastructure/repository"
	"github.com/recomarket/recomarket-backend/internal/infrastructure/telemetry"
	"github.com/recomarket/recomarket-backend/internal/metrics"
	"github.com/recomarket/recomarket-backend/internal/service/auction"
	"github.com/recomarket/recomarket-backend/internal/service/fulfillment"
)

// Server represents the API server
type Server struct {
	config     *config.Config
	httpServer *http.Server
	handler    *Handler
	logger     *slog.Logger
	db         *database.Connection
	redis      *redis.Client
	collector  *metrics.Collector
}

// NewServer creates a new API server with all dependencies wired
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	slog.SetDefault(logger)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to create zap logger: %w", err)
	}

	db, err := database.Connect(ctx, &cfg.Database, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	var notifier auction.NotificationService
	var fulfillmentNotifier fulfillment.NotificationService
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, domain events disabled", "error", err)
		noop := events.NewNoopPublisher()
		notifier, fulfillmentNotifier = noop, noop
	} else {
		publisher := events.NewPublisher(redisClient, cfg.Redis.EventChannelPrefix, logger)
		notifier, fulfillmentNotifier = publisher, publisher
	}

	collector := metrics.NewCollector()

	sqlDB := db.DB()
	sellRequests := repository.NewSellRequestRepository(sqlDB)
	offers := repository.NewOfferRepository(sqlDB, cfg.Auction.MaxOffersPerPage)
	transactions := repository.NewTransactionRepository(sqlDB)
	uow := repository.NewUnitOfWork(sqlDB)

	auctionSvc := auction.NewService(sellRequests, offers, transactions, uow, notifier, collector, cfg.Auction.DefaultListLimit)
	fulfillmentSvc := fulfillment.NewService(transactions, fulfillmentNotifier)

	authMiddleware := NewAuthMiddleware(&AuthConfig{
		Secret:      []byte(cfg.Security.JWTSecret),
		Issuer:      "recomarket",
		TokenExpiry: cfg.Security.TokenExpiry,
	})

	server := &Server{
		config:    cfg,
		handler:   NewHandler(auctionSvc, fulfillmentSvc),
		logger:    logger,
		db:        db,
		redis:     redisClient,
		collector: collector,
	}

	middlewares := []Middleware{
		requestIDMiddleware,
		tracingMiddleware(),
		loggingMiddleware,
		metricsMiddleware(collector),
		recoveryMiddleware,
		rateLimitMiddleware(cfg.Security.RateLimit.RequestsPerSecond, cfg.Security.RateLimit.BurstSize),
		timeoutMiddleware(cfg.Server.RequestTimeout),
		authMiddleware.Middleware(),
	}

	var h http.Handler = server.setupRoutes()
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}

	server.httpServer = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        h,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	return server, nil
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", s.collector.Handler())

	v1 := http.NewServeMux()

	v1.HandleFunc("POST /sell-requests", s.handler.handleCreateSellRequest)
	v1.HandleFunc("GET /sell-requests", s.handler.handleListSellRequests)
	v1.HandleFunc("GET /sell-requests/{id}", s.handler.handleGetSellRequest)
	v1.HandleFunc("PATCH /sell-requests/{id}/price", s.handler.handleUpdateDesiredPrice)
	v1.HandleFunc("POST /sell-requests/{id}/cancel", s.handler.handleCancelSellRequest)
	v1.HandleFunc("POST /sell-requests/{id}/close", s.handler.handleCloseSellRequest)
	v1.HandleFunc("POST /sell-requests/{id}/offers", s.handler.handleCreateOffer)
	v1.HandleFunc("GET /sell-requests/{id}/offers", s.handler.handleListOffers)
	v1.HandleFunc("POST /sell-requests/{id}/award", s.handler.handleAward)

	v1.HandleFunc("GET /offers", s.handler.handleListMyOffers)
	v1.HandleFunc("GET /offers/{id}", s.handler.handleGetOffer)
	v1.HandleFunc("PATCH /offers/{id}/price", s.handler.handleUpdateOfferPrice)
	v1.HandleFunc("POST /offers/{id}/withdraw", s.handler.handleWithdrawOffer)
	v1.HandleFunc("GET /offers/{id}/transaction", s.handler.handleGetTransactionByOffer)

	v1.HandleFunc("GET /transactions/{id}", s.handler.handleGetTransaction)
	v1.HandleFunc("POST /transactions/{id}/complete", s.handler.handleCompleteTransaction)
	v1.HandleFunc("POST /transactions/{id}/cancel", s.handler.handleCancelTransaction)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", v1))

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"reason": "database unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Start runs the server until an error or a shutdown signal
func (s *Server) Start() error {
	s.logger.Info("starting API server",
		"address", s.httpServer.Addr,
		"environment", s.config.Environment,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown()
	}
}

// Shutdown gracefully shuts down the server and its dependencies
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", "error", err)
		return err
	}

	s.db.Close()

	if err := s.redis.Close(); err != nil {
		s.logger.Error("failed to close redis", "error", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}
