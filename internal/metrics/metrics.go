package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foodgram_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// RecipeWrites counts composition writes by operation (create, update,
	// delete) and outcome (ok or an error kind).
	RecipeWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_recipe_writes_total",
			Help: "Total number of recipe composition writes",
		},
		[]string{"operation", "outcome"},
	)

	RelationToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_relation_toggles_total",
			Help: "Total number of favorite, shopping cart and follow toggles",
		},
		[]string{"relation", "action", "outcome"},
	)

	ShoppingListRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "foodgram_shopping_list_rows",
			Help:    "Number of aggregated rows per shopping list download",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)
)

// Outcome converts an error into a metric label: "ok" or the error's kind.
func Outcome(err error, kind func(error) string) string {
	if err == nil {
		return "ok"
	}
	return kind(err)
}
