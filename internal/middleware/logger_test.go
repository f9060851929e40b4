package middleware

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := logging.Logger()
	logging.SetLogger(zerolog.New(&buf))
	t.Cleanup(func() { logging.SetLogger(prev) })

	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/api/v1/recipes/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	before := testutil.CollectAndCount(metrics.HTTPRequestDuration)
	perform(r, http.MethodGet, "/api/v1/recipes/42", "", nil)

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"path":"/api/v1/recipes/42"`)
	assert.Contains(t, out, `"status":404`)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(metrics.HTTPRequestDuration), before)
}
