package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestServerEndpoints(t *testing.T) {
	Checkpoint.Set(1234)
	EventsProjected.WithLabelValues("PoolCreated").Inc()

	srv := NewServer("127.0.0.1:0", nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "jackpot_indexer_checkpoint_block 1234") {
		t.Fatalf("checkpoint gauge missing from output")
	}
	if !strings.Contains(body, `jackpot_indexer_events_total{event="PoolCreated"}`) {
		t.Fatalf("event counter missing from output")
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("healthz mismatch: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealthReportsChecks(t *testing.T) {
	connected := false
	srv := NewServer("127.0.0.1:0", nil)
	srv.AddCheck("head_feed", func() bool { return connected })

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, `"degraded"`) || !strings.Contains(body, `"head_feed":false`) {
		t.Fatalf("disconnected feed not reported: %d %s", rec.Code, body)
	}

	connected = true
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	body = rec.Body.String()
	if !strings.Contains(body, `"status":"ok"`) || !strings.Contains(body, `"head_feed":true`) {
		t.Fatalf("connected feed not reported: %s", body)
	}
}
