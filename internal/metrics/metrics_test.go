package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	kind := func(error) string { return "conflict" }
	assert.Equal(t, "ok", Outcome(nil, kind))
	assert.Equal(t, "conflict", Outcome(errors.New("x"), kind))
}

func TestRelationTogglesCounter(t *testing.T) {
	before := testutil.ToFloat64(RelationToggles.WithLabelValues("favorite", "add", "ok"))
	RelationToggles.WithLabelValues("favorite", "add", "ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(RelationToggles.WithLabelValues("favorite", "add", "ok")))
}
