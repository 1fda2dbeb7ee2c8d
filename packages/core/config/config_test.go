package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/qxhr/packages/xhr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFindAndLoadConfig_Defaults(t *testing.T) {
	cfg, err := FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.True(t, cfg.GetFollowRedirects())
	assert.False(t, cfg.GetRequestID())
}

func TestFindAndLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".qxhr.yaml", `
timeout: 2500
withCredentials: true
headers:
  common:
    Authorization: Bearer abc
  POST:
    Content-Type: application/x-www-form-urlencoded
log:
  level: debug
requestId:
  enabled: true
rateLimit:
  rps: 5
  burst: 2
history:
  path: sqlite://history.db
`)

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, cfg.TimeoutDuration())
	assert.True(t, *cfg.WithCredentials)
	assert.Equal(t, "Bearer abc", cfg.Headers["common"]["Authorization"])
	assert.Equal(t, "application/x-www-form-urlencoded", cfg.Headers["post"]["Content-Type"])
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.GetRequestID())
	assert.Equal(t, "X-Request-Id", cfg.RequestID.Header)
	assert.Equal(t, 5.0, cfg.RateLimit.RPS)
	assert.Equal(t, "sqlite://history.db", cfg.History.Path)
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "qxhr.config.json", `{"timeout": 100, "followRedirects": false}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Timeout)
	assert.False(t, cfg.GetFollowRedirects())
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.yaml", "timeout: [")
	_, err = LoadConfig(bad)
	assert.Error(t, err)

	invalid := writeFile(t, dir, "invalid.yaml", "responseType: xml")
	_, err = LoadConfig(invalid)
	assert.ErrorContains(t, err, "responseType")
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Headers = map[string]map[string]string{"common": {"A": "1"}}

	merged := base.Merge(&Config{
		Timeout:     50,
		ValidateSSL: BoolPtr(false),
		Headers:     map[string]map[string]string{"Common": {"B": "2"}},
	})

	assert.Equal(t, 50, merged.Timeout)
	assert.False(t, merged.GetValidateSSL())
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, merged.Headers["common"])
	assert.Equal(t, 10, merged.MaxRedirects)
	assert.Same(t, base, base.Merge(nil))
}

func TestApplyTo(t *testing.T) {
	cfg := &Config{
		Timeout:         300,
		WithCredentials: BoolPtr(true),
		Headers: map[string]map[string]string{
			"common": {"accept": "text/plain"},
			"delete": {"X-Confirm": "yes"},
		},
	}
	d := xhr.NewDefaults()
	cfg.ApplyTo(d)

	v := d.Snapshot()
	assert.Equal(t, 300*time.Millisecond, v.Timeout)
	assert.True(t, *v.WithCredentials)

	accept, ok := v.Headers.Common.Get("Accept")
	require.True(t, ok)
	got, _ := accept.Resolve()
	assert.Equal(t, "text/plain", got)
	assert.Len(t, v.Headers.Common, 1)

	confirm, ok := v.Headers.Methods["delete"].Get("x-confirm")
	require.True(t, ok)
	got, _ = confirm.Resolve()
	assert.Equal(t, "yes", got)
}

func TestTransportOptions(t *testing.T) {
	cfg := DefaultConfig().Merge(&Config{Proxy: "http://proxy:8080", MaxRedirects: 3})
	assert.Len(t, cfg.TransportOptions(), 4)
	assert.Len(t, (&Config{}).TransportOptions(), 2)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".qxhr.yaml")
	cfg := DefaultConfig().Merge(&Config{Timeout: 42})
	require.NoError(t, cfg.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Timeout)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".qxhr.yaml", "timeout: 100\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config, err error) {
			if err == nil {
				reloaded <- c
			}
		})
	}()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "other.yaml", "timeout: 1\n")
	require.NoError(t, os.WriteFile(path, []byte("timeout: 900\n"), 0o644))

	select {
	case c := <-reloaded:
		assert.Equal(t, 900, c.Timeout)
	case <-time.After(3 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	assert.NoError(t, <-done)
}
