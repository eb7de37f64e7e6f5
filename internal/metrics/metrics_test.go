package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Turn("answer")
	m.TurnFailed("transport")
	m.ObserveCall(time.Second, true)
	m.Unresolved()
	m.JobsCached(3)
	m.StaleReply()
	if m.Registry() != nil {
		t.Fatalf("nil metrics should have no registry")
	}
}

func TestCountersRecordByLabel(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Turn("Answer")
	m.Turn("answer")
	m.Turn("")
	m.Unresolved()
	m.JobsCached(42)

	if got := testutil.ToFloat64(m.turns.WithLabelValues("answer")); got != 2 {
		t.Fatalf("expected 2 answer turns, got %v", got)
	}
	if got := testutil.ToFloat64(m.turns.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected blank intent under unknown, got %v", got)
	}
	if got := testutil.ToFloat64(m.unresolved); got != 1 {
		t.Fatalf("expected 1 unresolved ref, got %v", got)
	}
	if got := testutil.ToFloat64(m.jobsCached); got != 42 {
		t.Fatalf("expected gauge 42, got %v", got)
	}
}

func TestRouterServesMetricsAndHealth(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.TurnFailed("transport")

	srv := httptest.NewServer(Router(m.Registry()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `dot_hub_turn_failures_total{reason="transport"} 1`) {
		t.Fatalf("metrics body missing failure counter:\n%s", body)
	}

	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", resp.StatusCode)
	}
}
