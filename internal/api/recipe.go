package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// RecipeHandler serves recipes and the per-user recipe relations.
type RecipeHandler struct {
	recipes       *service.RecipeService
	relations     *service.RelationService
	shopping      *service.ShoppingListService
	users         *service.UserService
	pages         paginator
	publicURL     string
	required      gin.HandlerFunc
	optional      gin.HandlerFunc
	createLimiter middleware.Limiter
}

func NewRecipeHandler(
	recipes *service.RecipeService,
	relations *service.RelationService,
	shopping *service.ShoppingListService,
	users *service.UserService,
	pages paginator,
	publicURL string,
	required, optional gin.HandlerFunc,
	createLimiter middleware.Limiter,
) *RecipeHandler {
	return &RecipeHandler{
		recipes:       recipes,
		relations:     relations,
		shopping:      shopping,
		users:         users,
		pages:         pages,
		publicURL:     publicURL,
		required:      required,
		optional:      optional,
		createLimiter: createLimiter,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", h.optional, h.ListRecipes)
		create := []gin.HandlerFunc{h.required}
		if h.createLimiter != nil {
			create = append(create, middleware.RateLimit(h.createLimiter, "recipe_create"))
		}
		recipes.POST("", append(create, h.CreateRecipe)...)
		recipes.GET("/download_shopping_cart", h.required, h.DownloadShoppingCart)

		recipes.GET("/:id", h.optional, h.GetRecipe)
		recipes.PUT("/:id", h.required, h.UpdateRecipe)
		recipes.PATCH("/:id", h.required, h.UpdateRecipe)
		recipes.DELETE("/:id", h.required, h.DeleteRecipe)
		recipes.GET("/:id/get-link", h.GetLink)

		recipes.POST("/:id/favorite", h.required, h.AddFavorite)
		recipes.DELETE("/:id/favorite", h.required, h.RemoveFavorite)
		recipes.POST("/:id/shopping_cart", h.required, h.AddToCart)
		recipes.DELETE("/:id/shopping_cart", h.required, h.RemoveFromCart)
	}
}

// ListRecipes supports ?author=, repeated ?tags= slugs, and the viewer
// filters ?is_favorited=1 and ?is_in_shopping_cart=1.
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	req, err := h.pages.parse(c)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	filter := service.RecipeFilter{
		TagSlugs:  c.QueryArray("tags"),
		Favorited: c.Query("is_favorited") == "1",
		InCart:    c.Query("is_in_shopping_cart") == "1",
		Limit:     req.Limit,
		Offset:    req.Offset(),
	}
	if raw := c.Query("author"); raw != "" {
		author, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondError(c, service.ValidationError("author", "author must be a user id"))
			return
		}
		filter.AuthorID = &author
	}

	ctx := c.Request.Context()
	viewer := middleware.Viewer(c)
	recipes, total, err := h.recipes.List(ctx, viewer, filter)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	views, err := h.recipes.Views(ctx, viewer, recipes)
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

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	h.respondRecipe(c, http.StatusOK, id)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req types.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, err)
		return
	}
	me, _ := middleware.UserID(c)
	recipe, err := h.recipes.Create(c.Request.Context(), me, toRecipeInput(&req))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusCreated, recipe.ID)
}

// UpdateRecipe serves both PUT and PATCH. Either way ingredients and tags
// must be sent and replace the stored sets.
func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	var req types.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, err)
		return
	}
	me, _ := middleware.UserID(c)
	recipe, err := h.recipes.Update(c.Request.Context(), me, id, toRecipeInput(&req))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, recipe.ID)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	me, _ := middleware.UserID(c)
	if err := h.recipes.Delete(c.Request.Context(), me, id); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.addRelation(c, h.relations.AddFavorite)
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.removeRelation(c, h.relations.RemoveFavorite)
}

func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.addRelation(c, h.relations.AddToCart)
}

func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.removeRelation(c, h.relations.RemoveFromCart)
}

// DownloadShoppingCart returns the aggregated shopping list as a text file.
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	ctx := c.Request.Context()
	me, _ := middleware.UserID(c)
	user, err := h.users.Get(ctx, me)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	list, err := h.shopping.Aggregate(ctx, me)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	body, err := service.RenderShoppingList(list, user, time.Now())
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="shopping_list.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", body)
}

func (h *RecipeHandler) GetLink(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	if _, err := h.recipes.Get(c.Request.Context(), id); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.ShortLinkResponse{ShortLink: h.publicURL + "/s/" + EncodeShortCode(id)})
}

func (h *RecipeHandler) addRelation(c *gin.Context, add func(ctx context.Context, userID, recipeID uuid.UUID) (*service.ShortRecipeView, error)) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	me, _ := middleware.UserID(c)
	view, err := add(c.Request.Context(), me, id)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *RecipeHandler) removeRelation(c *gin.Context, remove func(ctx context.Context, userID, recipeID uuid.UUID) error) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	me, _ := middleware.UserID(c)
	if err := remove(c.Request.Context(), me, id); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) respondRecipe(c *gin.Context, status int, id uuid.UUID) {
	ctx := c.Request.Context()
	recipe, err := h.recipes.Get(ctx, id)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	view, err := h.recipes.View(ctx, middleware.Viewer(c), recipe)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(status, view)
}

func recipeID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.RespondError(c, service.NotFoundError("recipe not found"))
		return uuid.Nil, false
	}
	return id, true
}

// toRecipeInput keeps nil slices nil so an omitted field stays
// distinguishable from an empty one.
func toRecipeInput(req *types.RecipeRequest) *service.RecipeInput {
	in := &service.RecipeInput{
		Name:        req.Name,
		Text:        req.Text,
		Image:       req.Image,
		CookingTime: req.CookingTime,
		Tags:        req.Tags,
	}
	if req.Ingredients != nil {
		in.Ingredients = make([]service.IngredientAmount, len(req.Ingredients))
		for i, it := range req.Ingredients {
			in.Ingredients[i] = service.IngredientAmount{ID: it.ID, Amount: it.Amount}
		}
	}
	return in
}
