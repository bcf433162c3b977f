package bapptest

import (
	"strconv"
	"testing"
)

// Env provides a chainable builder for setting [bapp.BaseEnvironment] env vars
// via t.Setenv. Create one with [SetBaseEnv].
type Env struct {
	t testing.TB
}

// SetBaseEnv sets the [bapp.BaseEnvironment] env vars to test defaults.
// Port is required because each test must use a unique port to avoid collisions.
//
// Defaults:
//   - BW_SERVICE_NAME: "test"
//   - BW_READINESS_CHECK_PATH: "/health"
//   - BW_LOG_LEVEL: "error"
//   - AWS_REGION: "us-east-1"
//   - BW_PRIMARY_REGION: "eu-west-1"
//   - BW_REQUEST_TIMEOUT: "30s"
//   - BW_FILES_BUCKET, BW_SAMPLE_QUEUE_URL, BW_SAMPLE_SOURCE_URL, BW_SAMPLE_SOURCE_TOKEN: empty
//   - OTEL_SDK_DISABLED: "true"
//   - AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY: "test"
//
// Use the returned [Env] to override individual values:
//
//	bapptest.SetBaseEnv(t, 18085).AWSRegion("eu-west-1").MetricsInterval("10ms")
func SetBaseEnv(t testing.TB, port int) *Env {
	t.Helper()
	t.Setenv("BW_PORT", strconv.Itoa(port))
	t.Setenv("BW_SERVICE_NAME", "test")
	t.Setenv("BW_READINESS_CHECK_PATH", "/health")
	t.Setenv("BW_LOG_LEVEL", "error")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("BW_PRIMARY_REGION", "eu-west-1")
	t.Setenv("BW_REQUEST_TIMEOUT", "30s")
	t.Setenv("BW_FILES_BUCKET", "")
	t.Setenv("BW_SAMPLE_QUEUE_URL", "")
	t.Setenv("BW_SAMPLE_SOURCE_URL", "")
	t.Setenv("BW_SAMPLE_SOURCE_TOKEN", "")
	t.Setenv("OTEL_SDK_DISABLED", "true")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	return &Env{t: t}
}

func (e *Env) set(key, val string) *Env {
	e.t.Helper()
	e.t.Setenv(key, val)
	return e
}

// ServiceName overrides BW_SERVICE_NAME.
func (e *Env) ServiceName(name string) *Env { return e.set("BW_SERVICE_NAME", name) }

// ReadinessCheckPath overrides BW_READINESS_CHECK_PATH.
func (e *Env) ReadinessCheckPath(path string) *Env { return e.set("BW_READINESS_CHECK_PATH", path) }

// AWSRegion overrides AWS_REGION.
func (e *Env) AWSRegion(region string) *Env { return e.set("AWS_REGION", region) }

// PrimaryRegion overrides BW_PRIMARY_REGION.
func (e *Env) PrimaryRegion(region string) *Env { return e.set("BW_PRIMARY_REGION", region) }

// RequestTimeout overrides BW_REQUEST_TIMEOUT.
func (e *Env) RequestTimeout(d string) *Env { return e.set("BW_REQUEST_TIMEOUT", d) }

// MetricsPath overrides BW_METRICS_PATH.
func (e *Env) MetricsPath(path string) *Env { return e.set("BW_METRICS_PATH", path) }

// MetricsInterval overrides BW_METRICS_INTERVAL.
func (e *Env) MetricsInterval(d string) *Env { return e.set("BW_METRICS_INTERVAL", d) }

// FilesDir overrides BW_FILES_DIR.
func (e *Env) FilesDir(dir string) *Env { return e.set("BW_FILES_DIR", dir) }

// SampleQueueURL overrides BW_SAMPLE_QUEUE_URL.
func (e *Env) SampleQueueURL(url string) *Env { return e.set("BW_SAMPLE_QUEUE_URL", url) }

// SampleSource overrides BW_SAMPLE_SOURCE_URL and BW_SAMPLE_SOURCE_TOKEN. The token is a secret
// reference and may be empty.
func (e *Env) SampleSource(url, token string) *Env {
	return e.set("BW_SAMPLE_SOURCE_URL", url).set("BW_SAMPLE_SOURCE_TOKEN", token)
}
