package api

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// EncodeShortCode renders a recipe id as a 22 character URL-safe code.
func EncodeShortCode(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// DecodeShortCode reverses EncodeShortCode.
func DecodeShortCode(code string) (uuid.UUID, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// ShortLinkHandler resolves /s/<code> to the recipe page.
type ShortLinkHandler struct {
	recipes   *service.RecipeService
	publicURL string
}

func NewShortLinkHandler(recipes *service.RecipeService, publicURL string) *ShortLinkHandler {
	return &ShortLinkHandler{recipes: recipes, publicURL: publicURL}
}

func (h *ShortLinkHandler) Redirect(c *gin.Context) {
	id, ok := DecodeShortCode(c.Param("code"))
	if !ok {
		middleware.RespondError(c, service.NotFoundError("short link not found"))
		return
	}
	if _, err := h.recipes.Get(c.Request.Context(), id); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, h.publicURL+"/recipes/"+id.String()+"/")
}
