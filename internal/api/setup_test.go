package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

const publicURL = "http://testserver"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	svc    api.Services
	images *testhelpers.MemoryImageStore
}

func newTestServer(t *testing.T, limiter middleware.Limiter) *testServer {
	t.Helper()
	db := testhelpers.SetupTestDatabase(t)
	images := testhelpers.NewMemoryImageStore()
	catalog := service.NewCatalogService(db)
	svc := api.Services{
		Auth:      service.NewAuthService(db, "test-secret", "foodgram-test", time.Hour, service.NewMemoryDenylist()),
		Users:     service.NewUserService(db, images, 1<<20),
		Catalog:   catalog,
		Recipes:   service.NewRecipeService(db, service.NewCompositionValidator(catalog), images, 1<<20),
		Relations: service.NewRelationService(db),
		Shopping:  service.NewShoppingListService(db),
	}
	router := gin.New()
	router.Use(middleware.Recovery())
	api.RegisterRoutes(router, svc, api.Options{
		PublicURL:     publicURL,
		PageSize:      6,
		MaxPageSize:   50,
		CreateLimiter: limiter,
	})
	return &testServer{t: t, db: db, router: router, svc: svc, images: images}
}

// token issues a bearer token for user.
func (s *testServer) token(user *models.User) string {
	s.t.Helper()
	tok, err := s.svc.Auth.GenerateToken(user)
	require.NoError(s.t, err)
	return tok
}

// do sends a request; body is JSON-encoded unless it is a string.
func (s *testServer) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, path, nil)
	case string:
		req = httptest.NewRequest(method, path, strings.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		req = httptest.NewRequest(method, path, strings.NewReader(string(raw)))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func recipeBody(name string, tags []uint, lines ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":         name,
		"text":         "Mix and cook.",
		"image":        testhelpers.PNGDataURI,
		"cooking_time": 15,
		"ingredients":  lines,
		"tags":         tags,
	}
}

func ingredientLine(ing *models.Ingredient, amount int) map[string]interface{} {
	return map[string]interface{}{"id": ing.ID, "amount": amount}
}
