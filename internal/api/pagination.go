package api

import (
	"math"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// paginator reads ?page=&limit= and builds the list envelope.
type paginator struct {
	publicURL   string
	defaultSize int
	maxSize     int
}

type pageRequest struct {
	Page  int
	Limit int
}

func (r pageRequest) Offset() int { return (r.Page - 1) * r.Limit }

func (p paginator) parse(c *gin.Context) (pageRequest, error) {
	req := pageRequest{Page: 1, Limit: p.defaultSize}
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return req, service.NotFoundError("invalid page")
		}
		req.Page = n
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return req, service.ValidationError("limit", "limit must be a positive integer")
		}
		req.Limit = n
	}
	if req.Limit < 1 {
		req.Limit = 1
	}
	if p.maxSize > 0 && req.Limit > p.maxSize {
		req.Limit = p.maxSize
	}
	// Keeps Offset well inside int range for any page a client can name.
	if req.Page-1 > math.MaxInt32/req.Limit {
		return req, service.NotFoundError("invalid page")
	}
	return req, nil
}

// buildPage wraps results. Asking past the last page is NotFound, except for the
// first page of an empty list.
func buildPage[T any](c *gin.Context, p paginator, req pageRequest, total int64, results []T) (types.Page[T], error) {
	if req.Page > 1 && int64(req.Page-1) >= (total+int64(req.Limit)-1)/int64(req.Limit) {
		return types.Page[T]{}, service.NotFoundError("invalid page")
	}
	if results == nil {
		results = []T{}
	}
	out := types.Page[T]{Count: total, Results: results}
	if int64(req.Offset()+len(results)) < total {
		out.Next = p.link(c, req.Page+1)
	}
	if req.Page > 1 {
		out.Previous = p.link(c, req.Page-1)
	}
	return out, nil
}

func (p paginator) link(c *gin.Context, page int) *string {
	q := url.Values{}
	for k, v := range c.Request.URL.Query() {
		q[k] = v
	}
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u := p.publicURL + c.Request.URL.Path
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return &u
}
