package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/gokanplan/pkg/htn"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBinding(htn.KindAtomic)
	c.RecordBinding(htn.KindAtomic)
	c.RecordBinding(htn.KindDisjunction)
	c.RecordMutation(htn.MutationAdd)
	c.RecordBacktrack()
	c.RecordPlan()
	c.RecordResult(ResultNone)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.bindings.WithLabelValues("atomic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.bindings.WithLabelValues("or")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mutations.WithLabelValues("add")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.backtracks))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.plans.WithLabelValues(ResultFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.plans.WithLabelValues(ResultNone)))
}

func TestDepthGaugeKeepsPeak(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.RecordDepth(4)
	c.RecordDepth(9)
	c.RecordDepth(2)
	assert.Equal(t, 9.0, testutil.ToFloat64(c.maxDepth))
}

func TestFanOutWithStats(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	stats := htn.NewStatsMonitor()
	m := htn.Monitors(c, stats)

	m.RecordBinding(htn.KindNegation)
	m.RecordPlan()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.bindings.WithLabelValues("not")))
	assert.Equal(t, 1, stats.GetStats().Plans)
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveCompile("domain", 3*time.Millisecond)
	c.RecordMutation(htn.MutationDelete)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gokanplan_state_mutations_total{op="del"} 1`)
	assert.Contains(t, string(body), `gokanplan_compiler_duration_seconds_count{kind="domain"} 1`)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
