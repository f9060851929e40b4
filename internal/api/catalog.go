package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// CatalogHandler serves tags and ingredients. Both are unpaginated.
type CatalogHandler struct {
	catalog *service.CatalogService
}

func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/tags", h.ListTags)
	router.GET("/tags/:id", h.GetTag)
	router.GET("/ingredients", h.ListIngredients)
	router.GET("/ingredients/:id", h.GetIngredient)
}

func (h *CatalogHandler) ListTags(c *gin.Context) {
	tags, err := h.catalog.ListTags(c.Request.Context())
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	views := make([]service.TagView, len(tags))
	for i, t := range tags {
		views[i] = service.ToTagView(t)
	}
	c.JSON(http.StatusOK, views)
}

func (h *CatalogHandler) GetTag(c *gin.Context) {
	id, ok := catalogID(c, "tag not found")
	if !ok {
		return
	}
	tag, err := h.catalog.GetTag(c.Request.Context(), id)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, service.ToTagView(*tag))
}

// ListIngredients filters by ?name= prefix, case-insensitively.
func (h *CatalogHandler) ListIngredients(c *gin.Context) {
	items, err := h.catalog.ListIngredients(c.Request.Context(), c.Query("name"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	views := make([]service.IngredientView, len(items))
	for i, it := range items {
		views[i] = service.ToIngredientView(it)
	}
	c.JSON(http.StatusOK, views)
}

func (h *CatalogHandler) GetIngredient(c *gin.Context) {
	id, ok := catalogID(c, "ingredient not found")
	if !ok {
		return
	}
	ing, err := h.catalog.GetIngredient(c.Request.Context(), id)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, service.ToIngredientView(*ing))
}

func catalogID(c *gin.Context, notFound string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		middleware.RespondError(c, service.NotFoundError(notFound))
		return 0, false
	}
	return uint(id), true
}
