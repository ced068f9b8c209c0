package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/dummy26/clothify/pkg/cache"
	_ "github.com/dummy26/clothify/pkg/catalog"
	_ "github.com/dummy26/clothify/pkg/client"
	_ "github.com/dummy26/clothify/pkg/ratelimit"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

// Registering a probe under a documented name must collide with the
// package that owns it.
func TestNames_Registered(t *testing.T) {
	for _, name := range Names {
		t.Run(name, func(t *testing.T) {
			probe := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: "probe"})
			if err := Registry.Register(probe); err == nil {
				Registry.Unregister(probe)
				t.Errorf("metric %s is documented but not registered", name)
			}
		})
	}
}

func TestHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Result().Body)
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(string(body), "clothify_api_budget_remaining") {
		t.Error("exposition should include the budget gauge")
	}
}
