package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	adminapp "github.com/beanscene/api/internal/admin/application"
	"github.com/beanscene/api/internal/config"
	mongodoc "github.com/beanscene/api/internal/infrastructure/mongo"
	"github.com/beanscene/api/internal/infrastructure/places"
	"github.com/beanscene/api/internal/infrastructure/storage"
	adminhttp "github.com/beanscene/api/internal/interfaces/http/admin"
	"github.com/beanscene/api/internal/interfaces/http/common"
	publichttp "github.com/beanscene/api/internal/interfaces/http/public"
	publicapp "github.com/beanscene/api/internal/public/application"
	publicdomain "github.com/beanscene/api/internal/public/domain"
)

// Server owns the HTTP listener and the background change feed, and wires
// repositories into the application services.
type Server struct {
	logger       *zap.Logger
	cfg          config.Config
	client       *mongo.Client
	database     *mongo.Database
	bus          *publicapp.InvalidationBus
	resolver     *publicapp.CoordinateResolver
	institutions adminapp.InstitutionService
	changeFeed   *mongodoc.ChangeFeed
	auth         *authenticator
	public       *publichttp.Handler
	admin        *adminhttp.Handler
}

// New builds the service graph. client must already be connected.
func New(cfg config.Config, client *mongo.Client, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db := client.Database(cfg.MongoDatabase)

	table, err := loadInstitutions(cfg.InstitutionsFile)
	if err != nil {
		return nil, err
	}
	resolver := publicapp.NewCoordinateResolver(table)
	bus := publicapp.NewInvalidationBus()

	cafeRepo := mongodoc.NewCafeRepository(db, cfg.Collections.Cafes, cfg.Collections.Reviews)
	reviewRepo := mongodoc.NewReviewRepository(db, cfg.Collections.Reviews)
	userRepo := mongodoc.NewUserRepository(db, cfg.Collections.Users)
	followRepo := mongodoc.NewFollowRepository(db, cfg.Collections.Follows)
	institutionRepo := mongodoc.NewInstitutionRepository(db, cfg.Collections.Institutions)

	photoStorage, err := newPhotoStorage(cfg.Cloudinary, logger)
	if err != nil {
		return nil, err
	}

	institutions := adminapp.NewInstitutionService(institutionRepo, resolver)
	srv := &Server{
		logger:       logger,
		cfg:          cfg,
		client:       client,
		database:     db,
		bus:          bus,
		resolver:     resolver,
		institutions: institutions,
		changeFeed:   mongodoc.NewChangeFeed(db, logger.Named("change-feed"), cfg.Collections.Cafes, cfg.Collections.Reviews),
		auth:         newAuthenticator(cfg.JWT, cfg.AdminSubjects, logger),
	}

	srv.public = publichttp.NewHandler(publichttp.Config{
		Logger:    logger,
		Resolver:  resolver,
		Discovery: publicapp.NewDiscoveryService(resolver, cafeRepo, NewPlaceSource(cfg.Places, logger), logger),
		Reviews: publicapp.NewReviewCommandService(publicapp.ReviewServiceDeps{
			Cafes:    cafeRepo,
			Reviews:  reviewRepo,
			Users:    userRepo,
			Resolver: resolver,
			Bus:      bus,
			Policy:   publicapp.ReviewPolicy{RateLimit: cfg.ReviewRateLimit, RateWindow: cfg.ReviewRateWindow},
			Logger:   logger,
		}),
		Photos:       publicapp.NewPhotoService(photoStorage, logger),
		Leaderboard:  publicapp.NewLeaderboardService(reviewRepo, userRepo, followRepo, logger),
		Follows:      publicapp.NewFollowService(followRepo, userRepo),
		Bus:          bus,
		LiveDebounce: cfg.LiveDebounce,
	})
	srv.admin = adminhttp.NewHandler(adminhttp.Config{
		Logger:       logger,
		Institutions: institutions,
	})
	return srv, nil
}

func loadInstitutions(path string) ([]publicdomain.Institution, error) {
	if path == "" {
		return publicapp.DefaultInstitutions()
	}
	table, err := publicapp.LoadInstitutionsFile(path)
	if err != nil {
		return nil, fmt.Errorf("load institutions file: %w", err)
	}
	return table, nil
}

// NewPlaceSource builds the configured place-search adapter, or nil when
// place search is switched off.
func NewPlaceSource(cfg config.PlacesConfig, logger *zap.Logger) publicapp.PlaceSource {
	var provider places.Provider
	switch cfg.Provider {
	case "google":
		provider = places.NewGoogleProvider(cfg.GoogleEndpoint, cfg.GoogleAPIKey, cfg.Timeout)
	case "overpass":
		provider = places.NewOverpassProvider(cfg.OverpassURL, cfg.Timeout)
	default:
		logger.Info("place search disabled")
		return nil
	}
	return places.NewAdapter(provider, places.AdapterConfig{
		RadiusTiers: cfg.RadiusTiers,
		Retry: publicapp.RetryPolicy{
			MaxAttempts:    cfg.MaxAttempts,
			InitialBackoff: cfg.Backoff,
			MaxBackoff:     4 * cfg.Backoff,
		},
		Logger: logger.Named("places"),
	})
}

// newPhotoStorage returns nil when Cloudinary is not configured; uploads then
// answer 503.
func newPhotoStorage(cfg config.CloudinaryConfig, logger *zap.Logger) (publicapp.PhotoStorage, error) {
	if !cfg.Enabled() {
		logger.Info("photo storage disabled")
		return nil, nil
	}
	cld, err := storage.NewCloudinaryStorage(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, err
	}
	return cld, nil
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(s.logger))
	router.Use(middleware.Recoverer)
	router.Use(withCORS(s.cfg.AllowedOrigins))

	router.Get("/healthz", s.healthHandler())
	s.public.Register(router, s.auth.require, s.auth.optional)
	router.Route("/admin", func(r chi.Router) {
		r.Use(s.auth.admin)
		s.admin.Register(r)
	})
	return router
}

// Run prepares the database, starts the change feed and serves HTTP until
// ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.prepare(ctx)

	feedCtx, stopFeed := context.WithCancel(ctx)
	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		s.changeFeed.Run(feedCtx, s.bus)
	}()

	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errChan <- httpServer.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutting down")
		// Live feeds end when the bus closes, so Shutdown does not wait on them.
		s.bus.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown failed", zap.Error(err))
		}
	}

	stopFeed()
	<-feedDone
	s.bus.Close()
	s.shutdown()
	return runErr
}

// prepare creates indexes and loads the persisted institution table. Both are
// best-effort so the API still starts against a read-only or empty database.
func (s *Server) prepare(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := mongodoc.EnsureIndexes(ctx, s.database, mongodoc.Collections(s.cfg.Collections)); err != nil {
		s.logger.Warn("index creation failed", zap.Error(err))
	}
	if err := s.institutions.Reload(ctx); err != nil {
		s.logger.Warn("institution table reload failed", zap.Error(err))
	}
	s.logger.Info("institution table ready", zap.Int("institutions", len(s.resolver.Institutions())))
}

func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
			common.WriteJSON(s.logger, w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}

		common.WriteJSON(s.logger, w, http.StatusOK, map[string]any{
			"status":          "ok",
			"time":            time.Now().UTC().Format(time.RFC3339),
			"liveSubscribers": s.bus.Subscribers(),
		})
	}
}

func (s *Server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		s.logger.Warn("mongo disconnect failed", zap.Error(err))
	}
}
