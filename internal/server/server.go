package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Server represents the HTTP server
type Server struct {
	cfg    *config.Config
	router *gin.Engine
	http   *http.Server
	db     *gorm.DB
	redis  *redis.Client
}

// Bootstrap connects the stores named in cfg, brings the schema up to date
// and builds the server. Redis is optional; without it token revocation and
// rate limiting are kept in process memory.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db, cfg.Database.MigrationsDir); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		if rdb, err = database.NewRedisClient(cfg.Redis); err != nil {
			return nil, err
		}
	} else {
		logging.Warn().Msg("redis not configured, using in-memory token denylist and rate limiter")
	}

	images, err := newImageStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	return New(cfg, db, rdb, images), nil
}

// New wires services and routes over already opened stores. rdb may be nil.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, images service.ImageStore) *Server {
	var denylist service.TokenDenylist = service.NewMemoryDenylist()
	if rdb != nil {
		denylist = service.NewRedisDenylist(rdb)
	}

	catalog := service.NewCatalogService(db)
	maxImage := cfg.Storage.MaxImageBytes
	svc := api.Services{
		Auth:      service.NewAuthService(db, cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL, denylist),
		Users:     service.NewUserService(db, images, maxImage),
		Catalog:   catalog,
		Recipes:   service.NewRecipeService(db, service.NewCompositionValidator(catalog), images, maxImage),
		Relations: service.NewRelationService(db),
		Shopping:  service.NewShoppingListService(db),
	}

	router := gin.New()
	router.Use(middleware.Recovery(), middleware.RequestLogger(), middleware.CORS(cfg.CORS.AllowedOrigins))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.Storage.Backend == "local" {
		router.Static("/media", cfg.Storage.LocalDir)
	}

	api.RegisterRoutes(router, svc, api.Options{
		PublicURL:     strings.TrimRight(cfg.Server.PublicURL, "/"),
		PageSize:      cfg.Server.PageSize,
		MaxPageSize:   cfg.Server.MaxPageSize,
		CreateLimiter: newCreateLimiter(cfg.RateLimit, rdb),
		Health: func(ctx context.Context) error {
			if err := database.HealthCheck(ctx, db); err != nil {
				return err
			}
			if rdb != nil {
				return rdb.Ping(ctx).Err()
			}
			return nil
		},
	})

	return &Server{cfg: cfg, router: router, db: db, redis: rdb}
}

func newCreateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) middleware.Limiter {
	if !cfg.Enabled {
		return nil
	}
	rl := middleware.RateLimitConfig{
		Window:    cfg.RecipeCreateWindow,
		Limit:     cfg.RecipeCreateLimit,
		KeyPrefix: "rate_limit:recipe_create",
	}
	if rdb != nil {
		return middleware.NewRedisLimiter(rdb, rl)
	}
	return middleware.NewLocalLimiter(rl)
}

func newImageStore(ctx context.Context, cfg config.StorageConfig) (service.ImageStore, error) {
	if cfg.Backend != "s3" {
		return service.NewLocalImageStore(cfg.LocalDir, cfg.PublicBaseURL), nil
	}
	client, err := config.NewS3Client(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return service.NewS3ImageStore(client, cfg.Bucket, cfg.PublicBaseURL), nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              s.cfg.Server.Host + ":" + s.cfg.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logging.Info().Str("addr", s.http.Addr).Msg("server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the store connections.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if s.http != nil {
		errs = append(errs, s.http.Shutdown(ctx))
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if sqlDB, err := s.db.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}
