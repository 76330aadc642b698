package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MediSynth-io/contentplanner/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeAppConfig writes app.yml into dir with the given session secret.
func writeAppConfig(t *testing.T, dir, secret string) string {
	t.Helper()
	configPath := filepath.Join(dir, "app.yml")
	configContent := []byte(`
apiPort: 8080
environment: test
database:
  type: sqlite
  path: ` + filepath.Join(dir, "planner.db") + `
auth:
  sessionSecret: "` + secret + `"
reminders:
  enabled: true
`)
	require.NoError(t, os.WriteFile(configPath, configContent, 0644))
	return configPath
}

const testSessionSecret = "test-session-secret-0123456789abcdef"

func TestInitializeAPI(t *testing.T) {
	configPath := writeAppConfig(t, t.TempDir(), testSessionSecret)

	app, err := initializeAPI(context.Background(), configPath, zerolog.Nop())
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.worker)

	rec := httptest.NewRecorder()
	app.api.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/heartbeat", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	app.api.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = httptest.NewRecorder()
	app.api.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/content", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestInitializeAPIConfigError(t *testing.T) {
	original := loadConfig
	defer func() { loadConfig = original }()

	loadConfig = func(string) (*config.Config, error) {
		return nil, assert.AnError
	}

	app, err := initializeAPI(context.Background(), "app.yml", zerolog.Nop())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Nil(t, app)
}

func TestInitializeAPIRejectsWeakSessionSecret(t *testing.T) {
	for _, secret := range []string{"", "short-secret"} {
		configPath := writeAppConfig(t, t.TempDir(), secret)
		app, err := initializeAPI(context.Background(), configPath, zerolog.Nop())
		assert.ErrorIs(t, err, config.ErrWeakSecret, "secret %q", secret)
		assert.Nil(t, app)
	}
}

func TestInitializeAPIReadsConfigDirWithoutPath(t *testing.T) {
	dir := t.TempDir()
	writeAppConfig(t, dir, testSessionSecret)
	t.Setenv("CONFIG_DIR", dir)

	app, err := initializeAPI(context.Background(), "", zerolog.Nop())
	require.NoError(t, err)
	defer app.Close()

	rec := httptest.NewRecorder()
	app.api.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/heartbeat", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWorkerStopsBeforeClose(t *testing.T) {
	configPath := writeAppConfig(t, t.TempDir(), testSessionSecret)
	app, err := initializeAPI(context.Background(), configPath, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	app.startWorker(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		app.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return after the worker was cancelled")
	}
}

func TestCloseWaitsForWorkers(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, name)
	}

	app := &application{}
	app.closers = append(app.closers, func() error {
		record("db")
		return nil
	})

	release := make(chan struct{})
	app.workers.Add(1)
	go func() {
		defer app.workers.Done()
		<-release
		record("worker")
	}()

	done := make(chan struct{})
	go func() {
		app.Close()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Close returned while a worker was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	assert.Equal(t, []string{"worker", "db"}, order)
}
