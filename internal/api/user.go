package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// UserHandler serves user profiles and subscriptions
type UserHandler struct {
	users     *service.UserService
	relations *service.RelationService
	pages     paginator
	required  gin.HandlerFunc
	optional  gin.HandlerFunc
}

func NewUserHandler(users *service.UserService, relations *service.RelationService, pages paginator, required, optional gin.HandlerFunc) *UserHandler {
	return &UserHandler{users: users, relations: relations, pages: pages, required: required, optional: optional}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("", h.optional, h.ListUsers)
		users.GET("/me", h.required, h.Me)
		users.POST("/set_password", h.required, h.SetPassword)
		users.PUT("/me/avatar", h.required, h.SetAvatar)
		users.DELETE("/me/avatar", h.required, h.DeleteAvatar)
		users.GET("/subscriptions", h.required, h.Subscriptions)
		users.GET("/:id", h.optional, h.GetUser)
		users.POST("/:id/subscribe", h.required, h.Subscribe)
		users.DELETE("/:id/subscribe", h.required, h.Unsubscribe)
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	req, err := h.pages.parse(c)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	ctx := c.Request.Context()
	users, total, err := h.users.List(ctx, req.Limit, req.Offset())
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	views, err := h.users.Views(ctx, middleware.Viewer(c), users)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	page, err := buildPage(c, h.pages, req, total, views)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.RespondError(c, service.NotFoundError("user not found"))
		return
	}
	h.respondUser(c, id)
}

func (h *UserHandler) Me(c *gin.Context) {
	id, _ := middleware.UserID(c)
	h.respondUser(c, id)
}

func (h *UserHandler) respondUser(c *gin.Context, id uuid.UUID) {
	ctx := c.Request.Context()
	user, err := h.users.Get(ctx, id)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	view, err := h.users.View(ctx, middleware.Viewer(c), user)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req types.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, err)
		return
	}
	id, _ := middleware.UserID(c)
	if err := h.users.SetPassword(c.Request.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) SetAvatar(c *gin.Context) {
	var req types.AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, err)
		return
	}
	id, _ := middleware.UserID(c)
	url, err := h.users.SetAvatar(c.Request.Context(), id, req.Avatar)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.AvatarResponse{Avatar: url})
}

func (h *UserHandler) DeleteAvatar(c *gin.Context) {
	id, _ := middleware.UserID(c)
	if err := h.users.DeleteAvatar(c.Request.Context(), id); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.RespondError(c, service.NotFoundError("user not found"))
		return
	}
	recipesLimit, err := parseRecipesLimit(c)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	me, _ := middleware.UserID(c)
	view, err := h.relations.Follow(c.Request.Context(), me, authorID, recipesLimit)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.RespondError(c, service.NotFoundError("user not found"))
		return
	}
	me, _ := middleware.UserID(c)
	if err := h.relations.Unfollow(c.Request.Context(), me, authorID); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	req, err := h.pages.parse(c)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	recipesLimit, err := parseRecipesLimit(c)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	me, _ := middleware.UserID(c)
	views, total, err := h.relations.Subscriptions(c.Request.Context(), me, req.Limit, req.Offset(), recipesLimit)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	page, err := buildPage(c, h.pages, req, total, views)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// parseRecipesLimit reads ?recipes_limit=. Absent means every recipe; zero
// means none.
func parseRecipesLimit(c *gin.Context) (int, error) {
	raw := c.Query("recipes_limit")
	if raw == "" {
		return service.AllRecipes, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, service.ValidationError("recipes_limit", "recipes_limit must be a non-negative integer")
	}
	return n, nil
}
