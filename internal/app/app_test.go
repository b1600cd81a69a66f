package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loandash/internal/config"
	apierrors "loandash/internal/errors"
	"loandash/internal/shared/testutil"
	"loandash/pkg/contracts/domain"
	"loandash/pkg/contracts/events"
)

// newTestConfig returns a configuration serving a three-loan CSV from a
// temporary base directory.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	testutil.WriteLoansCSV(t, filepath.Join(dir, "data"), "loans.csv",
		testutil.Loan(nil),
		testutil.Loan(func(l *domain.LoanApplication) { l.LoanType = "LOA" }),
		testutil.Loan(func(l *domain.LoanApplication) { l.LoanType = "LOA"; l.BankDecision = "Refusé" }),
	)

	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Paths.BaseDir = dir
	cfg.Dataset.Path = "data/loans.csv"
	cfg.Dataset.Watch = false
	cfg.Security.RateLimit.Enabled = false
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	app, err := NewApplication(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.OTelProviders.Shutdown(context.Background()) })
	return app
}

func serve(app *Application, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNewApplication(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(cfg *config.Config)
		wantWatcher bool
		wantMetrics bool
		wantErr     string
	}{
		{name: "file source", wantMetrics: true},
		{
			name:        "file source with watcher",
			mutate:      func(cfg *config.Config) { cfg.Dataset.Watch = true },
			wantWatcher: true,
			wantMetrics: true,
		},
		{
			name:   "metrics disabled",
			mutate: func(cfg *config.Config) { cfg.Telemetry.MetricsEnabled = false },
		},
		{
			name: "sheets source without credentials",
			mutate: func(cfg *config.Config) {
				cfg.Dataset.SpreadsheetID = "sheet-id"
				cfg.Dataset.CredentialsFile = "missing.json"
			},
			wantErr: "credentials file not found",
		},
		{
			name:    "unsupported file type",
			mutate:  func(cfg *config.Config) { cfg.Dataset.Path = "data/loans.txt" },
			wantErr: "failed to initialize services",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			logger, _ := testutil.NewTestLogger(t)

			app, err := NewApplication(context.Background(), cfg, logger)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				var appErr *apierrors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, apierrors.ErrTypeConfig, appErr.Type)
				assert.Nil(t, app)
				return
			}
			require.NoError(t, err)
			defer app.OTelProviders.Shutdown(context.Background())

			assert.NotNil(t, app.Router)
			assert.NotNil(t, app.Server)
			assert.NotNil(t, app.Dataset)
			assert.NotNil(t, app.Health)
			assert.NotNil(t, app.WebSocketHub)
			assert.Equal(t, tt.wantWatcher, app.Watcher != nil)
			assert.Equal(t, tt.wantMetrics, app.OTelProviders.PrometheusHTTP != nil)
			assert.Equal(t, "127.0.0.1:0", app.Server.Addr)
			assert.False(t, app.Dataset.Loaded())
		})
	}
}

func TestApplication_Routes(t *testing.T) {
	app := newTestApp(t, newTestConfig(t))

	rec := serve(app, http.MethodGet, "/api/dashboard/summary")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = serve(app, http.MethodGet, "/api/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	_, err := app.Dataset.Reload(context.Background(), events.TriggerAPI)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{"summary", http.MethodGet, "/api/dashboard/summary?loan_type=LOA", http.StatusOK},
		{"options", http.MethodGet, "/api/dashboard/options", http.StatusOK},
		{"unknown filter", http.MethodGet, "/api/dashboard/summary?colour=red", http.StatusBadRequest},
		{"ready", http.MethodGet, "/api/health/ready", http.StatusOK},
		{"live", http.MethodGet, "/api/health/live", http.StatusOK},
		{"trailing slash", http.MethodGet, "/api/health/live/", http.StatusOK},
		{"version", http.MethodGet, "/api/version", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"not found", http.MethodGet, "/api/nothing", http.StatusNotFound},
		{"method not allowed", http.MethodDelete, "/api/dashboard/summary", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(app, tt.method, tt.target)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	t.Run("security headers and request id", func(t *testing.T) {
		rec := serve(app, http.MethodGet, "/api/health/live")
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})
}

func TestApplication_MissingDatasetServesUnavailable(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Dataset.Path = "data/absent.csv"
	app := newTestApp(t, cfg)

	rec := serve(app, http.MethodGet, "/api/dashboard/options")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(app, http.MethodPost, "/api/dashboard/reload")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestApplication_StartStop(t *testing.T) {
	app := newTestApp(t, newTestConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.Start(ctx))
	assert.True(t, app.Dataset.Loaded())
	assert.NotEqual(t, "127.0.0.1:0", app.Addr())

	resp, err := http.Get("http://" + app.Addr() + "/api/health/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+app.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg events.WebSocketMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, events.MessageTypeConnect, msg.Type)

	require.NoError(t, app.Stop(context.Background()))

	select {
	case <-app.WebSocketHub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("hub did not stop")
	}
	_, err = http.Get("http://" + app.Addr() + "/api/health/live")
	assert.Error(t, err)
}

func TestApplication_getCORSConfig(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Security.AllowedOrigins = []string{"https://dash.example.com"}
	app := newTestApp(t, cfg)

	cors := app.getCORSConfig()
	assert.Equal(t, []string{"https://dash.example.com"}, cors.AllowedOrigins)
	assert.Equal(t, 300, cors.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/api/health/live", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
