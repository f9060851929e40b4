package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Services groups the domain services the HTTP layer calls.
type Services struct {
	Auth      *service.AuthService
	Users     *service.UserService
	Catalog   *service.CatalogService
	Recipes   *service.RecipeService
	Relations *service.RelationService
	Shopping  *service.ShoppingListService
}

// Options tunes the HTTP surface.
type Options struct {
	// PublicURL is the externally visible origin used in pagination and
	// short links.
	PublicURL   string
	PageSize    int
	MaxPageSize int
	// CreateLimiter throttles recipe creation; nil disables it.
	CreateLimiter middleware.Limiter
	// Health reports whether backing stores are reachable.
	Health func(ctx context.Context) error
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		service.RegisterValidators(v)
	}
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, svc Services, opts Options) {
	router.GET("/health", healthCheck(opts.Health))

	p := paginator{publicURL: opts.PublicURL, defaultSize: opts.PageSize, maxSize: opts.MaxPageSize}
	required := middleware.AuthMiddleware(svc.Auth)
	optional := middleware.OptionalAuth(svc.Auth)

	v1 := router.Group("/api/v1")
	NewAuthHandler(svc.Auth, required).RegisterRoutes(v1)
	NewUserHandler(svc.Users, svc.Relations, p, required, optional).RegisterRoutes(v1)
	NewCatalogHandler(svc.Catalog).RegisterRoutes(v1)
	NewRecipeHandler(svc.Recipes, svc.Relations, svc.Shopping, svc.Users, p, opts.PublicURL, required, optional, opts.CreateLimiter).RegisterRoutes(v1)

	router.GET("/s/:code", NewShortLinkHandler(svc.Recipes, opts.PublicURL).Redirect)
}

// healthCheck returns the health status of the API
func healthCheck(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}
