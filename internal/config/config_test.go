package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdwatch/internal/model"
)

// isolate runs the test in an empty directory so no stray .env or config.json is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "0.0.0.0:5000", cfg.Addr())
	assert.Equal(t, model.Thresholds{Low: 30, High: 70}, cfg.Thresholds())
}

func TestLoad_JSONFile(t *testing.T) {
	dir := isolate(t)
	err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{
		"server": {"host": "127.0.0.1", "port": 8080, "debug": true},
		"camera": {"index": 1},
		"model": {"path": "people.onnx"},
		"tracker": {"distance_function": "manhattan", "distance_threshold": 50},
		"complex_ratio": {"low_threshold": 20, "high_threshold": 60}
	}`), 0644)
	require.NoError(t, err)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, 1, cfg.CameraIndex)
	assert.Equal(t, "people.onnx", cfg.ModelPath)
	assert.Equal(t, "manhattan", cfg.DistanceFunction)
	assert.Equal(t, 50.0, cfg.DistanceThreshold)
	assert.Equal(t, model.Thresholds{Low: 20, High: 60}, cfg.Thresholds())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_PartialJSONKeepsDefaults(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"camera": {"index": 3}}`), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.CameraIndex)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "euclidean", cfg.DistanceFunction)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"server": {"port": 8080}}`), 0644))
	t.Setenv("PORT", "9090")
	t.Setenv("HIGH_THRESHOLD", "80")
	t.Setenv("SHUTDOWN_TIMEOUT", "3")
	t.Setenv("TRACKER_HIT_COUNTER_MAX", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 80.0, cfg.HighThreshold)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 15, cfg.HitCounterMax, "unparsable values fall back")
}

func TestLoad_DotEnv(t *testing.T) {
	if _, set := os.LookupEnv("JPEG_QUALITY"); set {
		t.Skip("JPEG_QUALITY set in the environment")
	}
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JPEG_QUALITY=55\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("JPEG_QUALITY") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 55, cfg.JPEGQuality)
}

func TestLoad_ExplicitConfigFileMustExist(t *testing.T) {
	isolate(t)
	t.Setenv("CONFIG_FILE", "missing.json")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MalformedJSON(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"server": `), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"no model", func(c *Config) { c.ModelPath = "" }},
		{"input size", func(c *Config) { c.InputSize = 0 }},
		{"confidence", func(c *Config) { c.Confidence = 1 }},
		{"nms", func(c *Config) { c.NMSIoU = 0 }},
		{"distance function", func(c *Config) { c.DistanceFunction = "cosine" }},
		{"distance threshold", func(c *Config) { c.DistanceThreshold = 0 }},
		{"thresholds reversed", func(c *Config) { c.LowThreshold, c.HighThreshold = 70, 30 }},
		{"threshold above 100", func(c *Config) { c.HighThreshold = 120 }},
		{"jpeg quality", func(c *Config) { c.JPEGQuality = 0 }},
		{"confidence NaN", func(c *Config) { c.Confidence = math.NaN() }},
		{"nms NaN", func(c *Config) { c.NMSIoU = math.NaN() }},
		{"distance threshold NaN", func(c *Config) { c.DistanceThreshold = math.NaN() }},
		{"low threshold NaN", func(c *Config) { c.LowThreshold = math.NaN() }},
		{"high threshold NaN", func(c *Config) { c.HighThreshold = math.NaN() }},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_ThresholdsUseSentinel(t *testing.T) {
	cfg := Default()
	cfg.LowThreshold = 90
	assert.ErrorIs(t, cfg.Validate(), model.ErrInvalidThresholds)
}

func TestLoad_RejectsNaNFromEnvironment(t *testing.T) {
	for _, key := range []string{"LOW_THRESHOLD", "HIGH_THRESHOLD", "TRACKER_DISTANCE_THRESHOLD"} {
		t.Run(key, func(t *testing.T) {
			isolate(t)
			t.Setenv(key, "NaN")

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_RejectsInvalidEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("LOW_THRESHOLD", "75")

	_, err := Load()
	assert.ErrorIs(t, err, model.ErrInvalidThresholds)
}
