package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Counters(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordGrant("public", nil)
	r.RecordGrant("public", nil)
	r.RecordGrant("public", errors.New("boom"))
	r.RecordRevoke("trusted", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.GrantsTotal.WithLabelValues("public", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.GrantsTotal.WithLabelValues("public", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RevocationsTotal.WithLabelValues("trusted", "failure")))
}

func TestRegistry_ActiveGrantsReset(t *testing.T) {
	r := New(nil)

	r.SetActiveGrants(map[string]int{"public": 3, "trusted": 1})
	assert.Equal(t, 3.0, testutil.ToFloat64(r.ActiveGrants.WithLabelValues("public")))

	r.SetActiveGrants(map[string]int{"public": 1})
	assert.Equal(t, 1, testutil.CollectAndCount(r.ActiveGrants))
}

func TestRegistry_NilSafe(t *testing.T) {
	var r *Registry
	r.RecordGrant("public", nil)
	r.RecordRevoke("public", nil)
	r.SetActiveGrants(map[string]int{"public": 1})
	r.ObserveSweep(time.Second)
	r.ObserveGateway("reload", time.Second)
	r.SetQueueDepth(4)
	r.RecordAPIRequest("/add", 200)

	rr := httptest.NewRecorder()
	r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRegistry_Handler(t *testing.T) {
	r := New(nil)
	r.SetQueueDepth(2)
	r.ObserveGateway("add-source", 150*time.Millisecond)

	rr := httptest.NewRecorder()
	r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "firegate_queue_depth 2"))
	assert.True(t, strings.Contains(body, `firegate_gateway_duration_seconds_count{op="add-source"} 1`))
}
