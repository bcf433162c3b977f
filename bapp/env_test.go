package bapp_test

import (
	"os"
	"testing"
	"time"

	"github.com/advdv/bresp/bapp"
	"github.com/advdv/bresp/bapp/bapptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseEnvDefaults(t *testing.T) {
	bapptest.SetBaseEnv(t, 18090)
	unsetenv(t, "BW_LOG_LEVEL")
	t.Setenv("BW_TRACE_LOG_GROUPS", "group-a,group-b")

	env, err := bapp.ParseEnv[bapp.BaseEnvironment]()()
	require.NoError(t, err)

	assert.Equal(t, 18090, env.Port)
	assert.Equal(t, "/health", env.ReadinessCheckPath)
	assert.Equal(t, zapcore.InfoLevel, env.LogLevel)
	assert.Equal(t, "stdout", env.OtelExporter)
	assert.Equal(t, []string{"group-a", "group-b"}, env.TraceLogGroups)
	assert.InDelta(t, 1.0, env.TraceSampleRatio, 0)
	assert.Equal(t, 30*time.Second, env.RequestTimeout)
	assert.Equal(t, "/admin/metrics-report", env.MetricsPath)
	assert.Equal(t, 5*time.Second, env.MetricsInterval)
	assert.EqualValues(t, 64, env.BackgroundWorkers)
	assert.EqualValues(t, 10485760, env.MaxBodyBytes)
	assert.Equal(t, ".", env.FilesDir)
	assert.Empty(t, env.FilesBucket)
	assert.Empty(t, env.SampleQueueURL)
	assert.Empty(t, env.SampleSourceURL)
	assert.True(t, env.SampleSourceToken.IsZero())
	assert.Equal(t, time.Hour, env.SecretCacheTTL)
}

func TestParseEnvSampleSource(t *testing.T) {
	bapptest.SetBaseEnv(t, 18093).SampleSource("http://localhost:9100/report", "sidecar#auth.token")

	env, err := bapp.ParseEnv[bapp.BaseEnvironment]()()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9100/report", env.SampleSourceURL)
	assert.Equal(t, bapp.SecretRef{ID: "sidecar", Path: "auth.token"}, env.SampleSourceToken)
}

func TestParseEnvErrors(t *testing.T) {
	for _, tt := range []struct {
		name    string
		key     string
		val     string
		wantErr string
	}{
		{"missing port", "BW_PORT", "", `"BW_PORT"`},
		{"missing primary region", "BW_PRIMARY_REGION", "", `"BW_PRIMARY_REGION"`},
		{"bad log level", "BW_LOG_LEVEL", "loud", "unrecognized level"},
		{"relative metrics path", "BW_METRICS_PATH", "metrics", `BW_METRICS_PATH must start with a slash, got: "metrics"`},
		{"same paths", "BW_METRICS_PATH", "/health", "must differ"},
		{"no workers", "BW_BACKGROUND_WORKERS", "0", "BW_BACKGROUND_WORKERS must be at least 1"},
		{"zero timeout", "BW_REQUEST_TIMEOUT", "0s", "BW_REQUEST_TIMEOUT must be positive"},
		{"sample ratio above one", "BW_TRACE_SAMPLE_RATIO", "1.5", "BW_TRACE_SAMPLE_RATIO must be between 0 and 1"},
		{"relative sample source", "BW_SAMPLE_SOURCE_URL", "sidecar/report", "BW_SAMPLE_SOURCE_URL must be an absolute http(s) URL"},
		{"token without source", "BW_SAMPLE_SOURCE_TOKEN", "sidecar", "BW_SAMPLE_SOURCE_TOKEN is set without BW_SAMPLE_SOURCE_URL"},
		{"malformed token", "BW_SAMPLE_SOURCE_TOKEN", "#auth.token", "has no secret id"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			bapptest.SetBaseEnv(t, 18091)
			if tt.val == "" {
				unsetenv(t, tt.key)
			} else {
				t.Setenv(tt.key, tt.val)
			}

			_, err := bapp.ParseEnv[bapp.BaseEnvironment]()()
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseEnvCustomFields(t *testing.T) {
	setTestEnvForTestEnv(t, 18092)

	env, err := bapp.ParseEnv[TestEnv]()()
	require.NoError(t, err)
	assert.Equal(t, "test-table", env.MainTableName)
	assert.Equal(t, "test", env.ServiceName)
}

// unsetenv removes key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}
