package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler_nilMetrics(t *testing.T) {
	var m *Metrics
	m.MapBuilt("google")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestHandler_exposesWidgetMetrics(t *testing.T) {
	m := New()
	m.MapBuilt("mapbox")
	m.MarkerBuilt("mapbox")
	m.MarkerBuilt("mapbox")
	m.MarkerSkipped("mapbox", "no_position")
	m.ContainerFailed("mapbox")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	body := rr.Body.String()
	for _, want := range []string{
		`storemap_maps_built_total{provider="mapbox"} 1`,
		`storemap_markers_built_total{provider="mapbox"} 2`,
		`storemap_markers_skipped_total{provider="mapbox",reason="no_position"} 1`,
		`storemap_containers_failed_total{provider="mapbox"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body=%s", want, body)
		}
	}
}
