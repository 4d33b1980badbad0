package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medapp/medapp/internal/config"
	"github.com/medapp/medapp/internal/domain/lookup"
	"github.com/medapp/medapp/internal/platform/cache"
	"github.com/medapp/medapp/internal/platform/db"
	"github.com/medapp/medapp/internal/platform/middleware"
	"github.com/medapp/medapp/internal/platform/notification"
)

func testConfig() *config.Config {
	return &config.Config{
		CORSOrigins:    []string{"http://localhost:3000"},
		RequestTimeout: 5 * time.Second,
		RateLimitRPS:   1,
		RateLimitBurst: 2,
	}
}

func newTestEcho(cfg *config.Config) (*httptest.Server, func()) {
	reg := prometheus.NewRegistry()
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	})
	e := newEcho(cfg, zerolog.Nop(), middleware.NewMetrics(reg), limiter, reg)
	srv := httptest.NewServer(e)
	return srv, srv.Close
}

func TestNewEcho_Health(t *testing.T) {
	srv, done := newTestEcho(testConfig())
	defer done()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected secure headers")
	}
}

func TestNewEcho_CORSPreflight(t *testing.T) {
	srv, done := newTestEcho(testConfig())
	defer done()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/appointments", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("expected allowed origin, got %q", got)
	}
}

func TestNewEcho_RateLimitAndMetrics(t *testing.T) {
	srv, done := newTestEcho(testConfig())
	defer done()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/health")
		if err != nil {
			t.Fatalf("GET /health: %v", err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected third request to be limited, got %v", codes)
	}
}

func TestNewEcho_MetricsEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitBurst = 10
	srv, done := newTestEcho(cfg)
	defer done()

	if resp, err := http.Get(srv.URL + "/health"); err == nil {
		resp.Body.Close()
	}
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if !strings.Contains(buf.String(), `http_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Errorf("expected request counter in metrics output:\n%s", buf.String())
	}
}

func TestNewDispatcher(t *testing.T) {
	tests := []struct {
		provider string
		check    func(notification.Dispatcher) bool
	}{
		{config.ProviderSMTP, func(d notification.Dispatcher) bool { _, ok := d.(*notification.SMTPDispatcher); return ok }},
		{config.ProviderSendGrid, func(d notification.Dispatcher) bool { _, ok := d.(*notification.SendGridDispatcher); return ok }},
		{config.ProviderLog, func(d notification.Dispatcher) bool { _, ok := d.(*notification.LogDispatcher); return ok }},
	}
	for _, tt := range tests {
		cfg := &config.Config{EmailProvider: tt.provider, SMTPHost: "localhost", SMTPPort: 25, SendGridAPIKey: "SG.test"}
		d, err := newDispatcher(context.Background(), cfg, zerolog.Nop())
		if err != nil {
			t.Fatalf("%s: %v", tt.provider, err)
		}
		if !tt.check(d) {
			t.Errorf("%s: unexpected dispatcher %T", tt.provider, d)
		}
	}

	if _, err := newDispatcher(context.Background(), &config.Config{EmailProvider: "fax"}, zerolog.Nop()); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("production", "warn", &buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output %q", buf.String())
	}

	if lvl := newLogger("production", "nonsense", &buf).GetLevel(); lvl != zerolog.InfoLevel {
		t.Errorf("expected info fallback, got %v", lvl)
	}
}

func TestMigrationSource(t *testing.T) {
	if migs, err := db.NewMigrator(nil, migrationSource("")).LoadMigrations(); err != nil || len(migs) < 2 {
		t.Fatalf("expected embedded migrations, got %d (%v)", len(migs), err)
	}

	dir := t.TempDir()
	if migs, err := db.NewMigrator(nil, migrationSource(dir)).LoadMigrations(); err != nil || len(migs) != 0 {
		t.Errorf("expected empty directory to yield no migrations, got %d (%v)", len(migs), err)
	}
}

func TestPrintStatus(t *testing.T) {
	applied := time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	printStatus(&buf, []db.MigrationStatus{
		{Version: 1, Name: "schema", Applied: true, AppliedAt: &applied},
		{Version: 2, Name: "seed_master_data"},
	})
	out := buf.String()
	if !strings.Contains(out, "2024-01-10 09:30:00") || !strings.Contains(out, "pending") {
		t.Errorf("unexpected status output:\n%s", out)
	}
}


type staticLister []lookup.Item

func (l staticLister) Patients(context.Context) ([]lookup.Item, error)  { return l, nil }
func (l staticLister) Doctors(context.Context) ([]lookup.Item, error)   { return l, nil }
func (l staticLister) Medicines(context.Context) ([]lookup.Item, error) { return l, nil }

func TestNewCachedLister_DropsStaleLists(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	c := cache.New(client, "medapp")
	ctx := context.Background()

	if err := c.Set(ctx, "lookup:patients", []lookup.Item{{ID: 1, Name: "Old Name"}}, time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}

	lister := newCachedLister(ctx, staticLister{{ID: 1, Name: "John Doe"}}, c, time.Hour, zerolog.Nop())
	items, err := lister.Patients(ctx)
	if err != nil {
		t.Fatalf("Patients: %v", err)
	}
	if len(items) != 1 || items[0].Name != "John Doe" {
		t.Errorf("expected fresh list, got %+v", items)
	}
}

func TestNewCachedLister_ServesWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	lister := newCachedLister(context.Background(), staticLister{{ID: 2, Name: "Dr. Brown"}}, cache.New(client, "medapp"), time.Hour, zerolog.Nop())
	items, err := lister.Doctors(context.Background())
	if err != nil || len(items) != 1 {
		t.Fatalf("expected fallback to the store, got %+v, %v", items, err)
	}
}
