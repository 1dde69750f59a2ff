package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			matched := 0
			for _, lp := range metric.GetLabel() {
				if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
					matched++
				}
			}
			if matched == len(labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func gaugeValue(t *testing.T, m *Metrics, name string) float64 {
	t.Helper()

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("Gauge %s not found", name)
	return 0
}

func TestMetrics_RecordAuth(t *testing.T) {
	m := New()

	m.RecordAuth("signin", true)
	m.RecordAuth("signin", false)
	m.RecordAuth("signin", false)

	if got := counterValue(t, m, "bookhub_auth_events_total", map[string]string{"action": "signin", "outcome": "success"}); got != 1 {
		t.Errorf("Expected 1 success, got %v", got)
	}
	if got := counterValue(t, m, "bookhub_auth_events_total", map[string]string{"action": "signin", "outcome": "failure"}); got != 2 {
		t.Errorf("Expected 2 failures, got %v", got)
	}
}

func TestMetrics_InstrumentAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Instrument())
	r.GET("/books/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/"+id, nil))
	}

	labels := map[string]string{"method": "GET", "route": "/books/:id", "status": "200"}
	if got := counterValue(t, m, "bookhub_http_requests_total", labels); got != 3 {
		t.Errorf("Expected 3 requests on the route template, got %v", got)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /metrics, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "bookhub_http_requests_total") {
		t.Error("Expected request counter in exposition output")
	}
}

func TestMetrics_InstrumentPanickingHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(gin.Recovery(), m.Instrument())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500 after recovery, got %d", w.Code)
	}

	if got := gaugeValue(t, m, "bookhub_http_in_flight_requests"); got != 0 {
		t.Errorf("Expected in-flight gauge back at 0, got %v", got)
	}
	labels := map[string]string{"method": "GET", "route": "/boom", "status": "500"}
	if got := counterValue(t, m, "bookhub_http_requests_total", labels); got != 1 {
		t.Errorf("Expected the panicking request counted as 500, got %v", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if got := gaugeValue(t, m, "bookhub_http_in_flight_requests"); got != 0 {
		t.Errorf("Expected in-flight gauge at 0 after a normal request, got %v", got)
	}
}

func TestMetrics_JobsAndBreaker(t *testing.T) {
	m := New()

	m.RecordJob("borrow-status", true)
	m.SetBreakerState("github", 1)

	if got := counterValue(t, m, "bookhub_scheduled_job_runs_total", map[string]string{"job": "borrow-status", "outcome": "success"}); got != 1 {
		t.Errorf("Expected 1 job run, got %v", got)
	}
}
