package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/recipe-app/apiserver/config"
	"github.com/recipe-app/apiserver/internal/cache"
	"github.com/recipe-app/apiserver/internal/db"
	"github.com/recipe-app/apiserver/internal/handlers"
	"github.com/recipe-app/apiserver/internal/logging"
	"github.com/recipe-app/apiserver/internal/mq"
	"github.com/recipe-app/apiserver/internal/services"
	"github.com/recipe-app/apiserver/internal/storage"
	"github.com/recipe-app/apiserver/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultPort     = 8080
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 15 * time.Second
)

// Server wraps the HTTP server, router and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     *zap.Logger
	db         *sql.DB
	redis      *redis.Client
	queue      *mq.MQ
}

// App bundles the services served over HTTP.
type App struct {
	Users         *services.UserService
	Auth          *services.AuthService
	Tags          *services.TagService
	Ingredients   *services.IngredientService
	Recipes       *services.RecipeService
	Media         *services.MediaSigner
	Objects       *storage.Storage
	MaxImageBytes int64
	Logger        *zap.Logger
}

// New connects every backing service named by cfg and builds the router.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if cfg.Media.SigningSecret == "" {
		return nil, errors.New("MEDIA_SIGNING_SECRET is required")
	}

	srv := &Server{logger: logger}
	ok := false
	defer func() {
		if !ok {
			srv.closeBackends()
		}
	}()

	srv.db, err = db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var tokenCache services.TokenCache
	if cfg.Redis.Addr != "" {
		srv.redis, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		tokenCache = cache.NewTokenCache(srv.redis, cfg.Auth.TokenCacheTTL)
	}

	backend, err := storage.NewBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	objects := storage.NewStorage(backend, logger)
	if err := objects.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	var publisher services.Publisher
	queueBackend, err := mq.NewBackend(ctx, cfg.MQ)
	if err != nil {
		return nil, err
	}
	if queueBackend != nil {
		srv.queue = mq.New(queueBackend)
		publisher = srv.queue
	}
	events := services.NewEvents(publisher, logger)

	userRepo := store.NewUserRepository(srv.db)
	tagRepo := store.NewTagRepository(srv.db)
	ingredientRepo := store.NewIngredientRepository(srv.db)

	app := App{
		Users:       services.NewUserService(userRepo, events, cfg.Auth.PasswordMinLength),
		Auth:        services.NewAuthService(userRepo, store.NewTokenRepository(srv.db), tokenCache, logger),
		Tags:        services.NewTagService(tagRepo),
		Ingredients: services.NewIngredientService(ingredientRepo),
		Recipes: services.NewRecipeService(
			store.NewRecipeRepository(srv.db), tagRepo, ingredientRepo, objects, events, logger,
		),
		Media:         services.NewMediaSigner(cfg.Media.SigningSecret, cfg.Media.URLTTL, cfg.Media.BaseURL),
		Objects:       objects,
		MaxImageBytes: cfg.Media.MaxUploadBytes,
		Logger:        logger,
	}
	srv.router = NewRouter(app)

	port := cfg.ServerPort
	if port == 0 {
		port = defaultPort
	}

	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ok = true
	return srv, nil
}

// NewRouter mounts every route of the API on a fresh chi router.
func NewRouter(app App) *chi.Mux {
	logger := logging.OrNop(app.Logger)
	authMiddleware := handlers.RequireAuth(app.Auth, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		handlers.RequestLogger(logger),
		middleware.Timeout(requestTimeout),
	)
	router.MethodNotAllowed(handlers.MethodNotAllowed)
	router.NotFound(handlers.NotFound)

	router.Get("/healthz", handlers.Healthz)
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, app.Users, app.Auth, authMiddleware, logger)
	})
	router.Route("/tags", func(r chi.Router) {
		handlers.TagRouter(r, app.Tags, authMiddleware, logger)
	})
	router.Route("/ingredients", func(r chi.Router) {
		handlers.IngredientRouter(r, app.Ingredients, authMiddleware, logger)
	})
	router.Route("/recipes", func(r chi.Router) {
		handlers.RecipeRouter(r, app.Recipes, app.Media, app.MaxImageBytes, authMiddleware, logger)
	})
	if app.Objects != nil {
		router.Route("/media", func(r chi.Router) {
			handlers.MediaRouter(r, app.Objects, app.Media, logger)
		})
	}

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes owned connections.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.closeBackends()
	_ = s.logger.Sync()
	return err
}

func (s *Server) closeBackends() {
	if s.queue != nil {
		if err := s.queue.Close(); err != nil {
			s.logger.Warn("close message queue failed", zap.Error(err))
		}
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
