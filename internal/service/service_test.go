package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/levinOo/truenas-exporter/internal/config"
)

func fakeAppliance(t *testing.T) *httptest.Server {
	t.Helper()
	srv := newFakeAppliance()
	t.Cleanup(srv.Close)
	return srv
}

// newFakeAppliance имитирует API хранилища с минимальными ответами.
func newFakeAppliance() *httptest.Server {
	responses := map[string]string{
		"/api/v2.0/core/ping":             `"pong"`,
		"/api/v2.0/cloudsync":             `[]`,
		"/api/v2.0/alert/list":            `[]`,
		"/api/v2.0/disk":                  `[{"name": "ada0", "serial": "S1", "type": "HDD", "size": 1000}]`,
		"/api/v2.0/interface":             `[]`,
		"/api/v2.0/pool":                  `[{"name": "tank", "status": "ONLINE", "healthy": true}]`,
		"/api/v2.0/pool/dataset":          `[]`,
		"/api/v2.0/replication":           `[]`,
		"/api/v2.0/pool/snapshottask":     `[]`,
		"/api/v2.0/system/info":           `{"version": "TrueNAS-13.0", "hostname": "nas"}`,
		"/api/v2.0/network/configuration": `{"hostname": "nas", "domain": "local"}`,
		"/api/v2.0/enclosure":             `[]`,
		"/api/v2.0/smart/test/results":    `[]`,
		"/api/v2.0/stats/get_sources":     `{"load": ["load"]}`,
		"/api/v2.0/stats/get_data":        `{"data": [[0.1, 0.2, 0.3]]}`,
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "root" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
}

func testConfig(target string) config.Config {
	cfg := config.Default()
	cfg.Target = target
	cfg.User = "root"
	cfg.Pass = "secret"
	cfg.ScrapeTimeout = 10 * time.Second
	return cfg
}

func TestSetupServerServesMetrics(t *testing.T) {
	appliance := fakeAppliance(t)

	components, err := setupServer(testConfig(appliance.URL), zap.NewNop().Sugar())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	components.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, want := range []string{
		`truenas_pool_health{pool="tank"} 1`,
		`truenas_disk_size_bytes{name="ada0",serial="S1",type="HDD"} 1000`,
		`truenas_load_average{period="shortterm"} 0.1`,
		`truenas_exporter_collector_success{collector="pools"} 1`,
		`truenas_exporter_collector_success{collector="smart"} 0`,
		`truenas_system_info{domain="local",hostname="nas",model="",serial="",version="TrueNAS-13.0"} 1`,
		"truenas_exporter_requests_seconds",
		"go_goroutines",
	} {
		assert.Contains(t, body, want)
	}

	assert.Equal(t, "/api/v2.0", strings.TrimPrefix(components.client.BaseURL(), appliance.URL))
}

func TestServeFailsWhenProbeFails(t *testing.T) {
	appliance := fakeAppliance(t)
	cfg := testConfig(appliance.URL)
	cfg.Pass = "wrong"

	err := Serve(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrProbeFailed)
}

func TestServeStopsOnContextCancel(t *testing.T) {
	appliance := fakeAppliance(t)
	cfg := testConfig(appliance.URL)
	cfg.Port = freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, cfg) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/", cfg.Port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusNotFound && strings.Contains(string(body), "/metrics")
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
