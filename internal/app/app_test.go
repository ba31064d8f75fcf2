package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"heartrate-go/internal/config"
	"heartrate-go/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeHeartResponse = `{"activities-heart-intraday":{"dataset":[{"time":"00:00:00","value":60}]}}`

func newFakeFitbitServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-2","refresh_token":"refresh-2","token_type":"Bearer","expires_in":28800}`))
	})
	mux.HandleFunc("GET /1/user/-/activities/heart/date/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fakeHeartResponse))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.ClientID = "client-id"
	cfg.Auth.ClientSecret = "client-secret"
	cfg.Auth.AuthURL = baseURL + "/oauth2/authorize"
	cfg.Auth.TokenURL = baseURL + "/oauth2/token"
	cfg.Auth.RedirectURL = "http://localhost:9090/auth/callback"
	cfg.Fitbit.BaseURL = baseURL
	cfg.Storage.Type = "file"
	cfg.Storage.Path = t.TempDir()
	cfg.TimeZone = "UTC"
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNewApplication(t *testing.T) {
	srv := newFakeFitbitServer(t)
	cfg := testConfig(t, srv.URL)

	application, err := New(context.Background(), cfg, nil)
	require.NoError(t, err, "New() should not return an error with a valid config")
	t.Cleanup(func() { assert.NoError(t, application.Close()) })

	assert.NotNil(t, application.Config)
	assert.NotNil(t, application.Logger)
	assert.NotNil(t, application.Blobs)
	assert.NotNil(t, application.Tokens)
	assert.NotNil(t, application.Archive)
	assert.NotNil(t, application.Auth)
	assert.NotNil(t, application.Job)
	assert.NotNil(t, application.Scheduler)
	require.NotNil(t, application.HTTPServer)
	assert.Equal(t, ":9090", application.HTTPServer.Addr)
}

func TestNewApplication_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *config.Config)
	}{
		{name: "bad schedule", modify: func(cfg *config.Config) { cfg.Scheduler.Schedule = "every day" }},
		{name: "missing secret reference", modify: func(cfg *config.Config) {
			cfg.Auth.ClientSecret = ""
			cfg.Auth.ClientSecretRef = "HEARTRATE_TEST_UNSET_SECRET"
		}},
		{name: "bad time zone", modify: func(cfg *config.Config) { cfg.TimeZone = "Mars/Olympus" }},
		{name: "unknown storage", modify: func(cfg *config.Config) { cfg.Storage.Type = "tape" }},
		{name: "bad encryption key", modify: func(cfg *config.Config) { cfg.Storage.EncryptionKey = "short" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, "http://127.0.0.1:1")
			tt.modify(cfg)
			_, err := New(context.Background(), cfg, nil)
			assert.ErrorIs(t, err, config.ErrConfiguration)
		})
	}
}

func TestApplication_RunOnce(t *testing.T) {
	srv := newFakeFitbitServer(t)
	cfg := testConfig(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Storage.Path, "token.json"),
		[]byte(`{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer"}`), 0o600))

	application, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	result, err := application.RunOnce(ctx, time.Date(2021, 6, 24, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2021-06-23", result.Date)
	assert.Equal(t, storage.DayKey("2021-06-23"), result.Key)

	archived, err := os.ReadFile(filepath.Join(cfg.Storage.Path, "days", "2021-06-23.json"))
	require.NoError(t, err)
	assert.JSONEq(t, fakeHeartResponse, string(archived))

	record, err := application.Tokens.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", record.RefreshToken.Reveal())
}

func TestApplication_Serve(t *testing.T) {
	srv := newFakeFitbitServer(t)
	cfg := testConfig(t, srv.URL)

	application, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestApplication_ServeWithoutPort(t *testing.T) {
	srv := newFakeFitbitServer(t)
	cfg := testConfig(t, srv.URL)
	cfg.MetricsPort = 0

	application, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })
	assert.Nil(t, application.HTTPServer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, application.Serve(ctx))
}
