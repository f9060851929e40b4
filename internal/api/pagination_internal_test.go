package api

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/service"
)

func contextFor(target string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", target, nil)
	return c
}

func TestPaginatorParse(t *testing.T) {
	p := paginator{publicURL: "http://x", defaultSize: 6, maxSize: 10}

	tests := []struct {
		target string
		page   int
		limit  int
		kind   service.ErrorKind
	}{
		{"/r", 1, 6, ""},
		{"/r?page=3&limit=4", 3, 4, ""},
		{"/r?limit=500", 1, 10, ""},
		{"/r?page=0", 0, 0, service.KindNotFound},
		{"/r?page=abc", 0, 0, service.KindNotFound},
		{"/r?limit=-1", 0, 0, service.KindValidation},
		{"/r?page=2305843009213693953", 0, 0, service.KindNotFound},
		{"/r?page=9223372036854775807&limit=1", 0, 0, service.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			req, err := p.parse(contextFor(tt.target))
			if tt.kind != "" {
				require.Error(t, err)
				assert.Equal(t, string(tt.kind), service.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.page, req.Page)
			assert.Equal(t, tt.limit, req.Limit)
		})
	}
}

func TestBuildPageLinksKeepFilters(t *testing.T) {
	p := paginator{publicURL: "http://x", defaultSize: 2, maxSize: 10}
	c := contextFor("/api/v1/recipes?tags=lunch&page=2&limit=2")

	page, err := buildPage(c, p, pageRequest{Page: 2, Limit: 2}, 5, []int{3, 4})
	require.NoError(t, err)
	require.NotNil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://x/api/v1/recipes?limit=2&page=3&tags=lunch", *page.Next)
	assert.Equal(t, "http://x/api/v1/recipes?limit=2&tags=lunch", *page.Previous)

	empty, err := buildPage[int](c, p, pageRequest{Page: 1, Limit: 2}, 0, nil)
	require.NoError(t, err)
	assert.NotNil(t, empty.Results)
	assert.Nil(t, empty.Next)

	_, err = buildPage[int](c, p, pageRequest{Page: 4, Limit: 2}, 5, nil)
	assert.Equal(t, "not_found", service.KindOf(err))

	last, err := buildPage(c, p, pageRequest{Page: 3, Limit: 2}, 5, []int{5})
	require.NoError(t, err)
	assert.Nil(t, last.Next)

	_, err = buildPage[int](c, p, pageRequest{Page: 1 << 40, Limit: 2}, 5, nil)
	assert.Equal(t, "not_found", service.KindOf(err))
}

func TestShortCodeRejectsWrongLength(t *testing.T) {
	_, ok := DecodeShortCode("AAAA")
	assert.False(t, ok)
}
