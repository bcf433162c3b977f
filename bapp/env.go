package bapp

import (
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Environment defines the interface that all environment configurations must implement.
// Embed BaseEnvironment in your struct to satisfy this interface.
type Environment interface {
	port() int
	serviceName() string
	readinessCheckPath() string
	logLevel() zapcore.Level
	otelExporter() string
	traceLogGroups() []string
	traceSampleRatio() float64
	awsRegion() string
	primaryRegion() string
	requestTimeout() time.Duration
	metricsPath() string
	metricsInterval() time.Duration
	backgroundWorkers() int64
	maxBodyBytes() int64
	filesDir() string
	filesBucket() string
	sampleQueueURL() string
	sampleSourceURL() string
	sampleSourceToken() SecretRef
	secretCacheTTL() time.Duration
	validate() error
}

// BaseEnvironment contains the environment variables every app reads.
// Embed this in your custom environment struct.
type BaseEnvironment struct {
	Port               int           `env:"BW_PORT,required"`
	ServiceName        string        `env:"BW_SERVICE_NAME,required"`
	ReadinessCheckPath string        `env:"BW_READINESS_CHECK_PATH" envDefault:"/health"`
	LogLevel           zapcore.Level `env:"BW_LOG_LEVEL" envDefault:"info"`
	OtelExporter       string        `env:"BW_OTEL_EXPORTER" envDefault:"stdout"`
	// TraceLogGroups are CloudWatch Log Group names added to traces for X-Ray log correlation.
	TraceLogGroups    []string      `env:"BW_TRACE_LOG_GROUPS" envSeparator:","`
	TraceSampleRatio  float64       `env:"BW_TRACE_SAMPLE_RATIO" envDefault:"1"`
	AWSRegion         string        `env:"AWS_REGION,required"`
	PrimaryRegion     string        `env:"BW_PRIMARY_REGION,required"`
	RequestTimeout    time.Duration `env:"BW_REQUEST_TIMEOUT" envDefault:"30s"`
	MetricsPath       string        `env:"BW_METRICS_PATH" envDefault:"/admin/metrics-report"`
	MetricsInterval   time.Duration `env:"BW_METRICS_INTERVAL" envDefault:"5s"`
	BackgroundWorkers int64         `env:"BW_BACKGROUND_WORKERS" envDefault:"64"`
	MaxBodyBytes      int64         `env:"BW_MAX_BODY_BYTES" envDefault:"10485760"`
	FilesDir          string        `env:"BW_FILES_DIR" envDefault:"."`
	// FilesBucket switches file responses from FilesDir to this S3 bucket.
	FilesBucket string `env:"BW_FILES_BUCKET"`
	// SampleQueueURL is an SQS queue whose messages are relayed to metrics listeners.
	SampleQueueURL string `env:"BW_SAMPLE_QUEUE_URL"`
	// SampleSourceURL is an HTTP endpoint serving JSON samples that are pulled every MetricsInterval.
	SampleSourceURL string `env:"BW_SAMPLE_SOURCE_URL"`
	// SampleSourceToken is the bearer token for SampleSourceURL, as a secret reference.
	SampleSourceToken SecretRef     `env:"BW_SAMPLE_SOURCE_TOKEN"`
	SecretCacheTTL    time.Duration `env:"BW_SECRET_CACHE_TTL" envDefault:"1h"`
}

func (e BaseEnvironment) port() int { return e.Port }
func (e BaseEnvironment) serviceName() string { return e.ServiceName }
func (e BaseEnvironment) readinessCheckPath() string { return e.ReadinessCheckPath }
func (e BaseEnvironment) logLevel() zapcore.Level { return e.LogLevel }
func (e BaseEnvironment) otelExporter() string { return e.OtelExporter }
func (e BaseEnvironment) traceLogGroups() []string { return e.TraceLogGroups }
func (e BaseEnvironment) traceSampleRatio() float64 { return e.TraceSampleRatio }
func (e BaseEnvironment) awsRegion() string { return e.AWSRegion }
func (e BaseEnvironment) primaryRegion() string { return e.PrimaryRegion }
func (e BaseEnvironment) requestTimeout() time.Duration { return e.RequestTimeout }
func (e BaseEnvironment) metricsPath() string { return e.MetricsPath }
func (e BaseEnvironment) metricsInterval() time.Duration { return e.MetricsInterval }
func (e BaseEnvironment) backgroundWorkers() int64 { return e.BackgroundWorkers }
func (e BaseEnvironment) maxBodyBytes() int64 { return e.MaxBodyBytes }
func (e BaseEnvironment) filesDir() string { return e.FilesDir }
func (e BaseEnvironment) filesBucket() string { return e.FilesBucket }
func (e BaseEnvironment) sampleQueueURL() string { return e.SampleQueueURL }
func (e BaseEnvironment) sampleSourceURL() string { return e.SampleSourceURL }
func (e BaseEnvironment) sampleSourceToken() SecretRef { return e.SampleSourceToken }
func (e BaseEnvironment) secretCacheTTL() time.Duration { return e.SecretCacheTTL }

func (e BaseEnvironment) validate() error {
	for name, path := range map[string]string{
		"BW_READINESS_CHECK_PATH": e.ReadinessCheckPath,
		"BW_METRICS_PATH":         e.MetricsPath,
	} {
		if !strings.HasPrefix(path, "/") {
			return errors.Newf("%s must start with a slash, got: %q", name, path)
		}
	}

	if e.ReadinessCheckPath == e.MetricsPath {
		return errors.Newf("BW_READINESS_CHECK_PATH and BW_METRICS_PATH must differ, both are: %q", e.MetricsPath)
	}

	if e.BackgroundWorkers < 1 {
		return errors.Newf("BW_BACKGROUND_WORKERS must be at least 1, got: %d", e.BackgroundWorkers)
	}

	if e.RequestTimeout <= 0 {
		return errors.Newf("BW_REQUEST_TIMEOUT must be positive, got: %s", e.RequestTimeout)
	}

	if e.TraceSampleRatio < 0 || e.TraceSampleRatio > 1 {
		return errors.Newf("BW_TRACE_SAMPLE_RATIO must be between 0 and 1, got: %v", e.TraceSampleRatio)
	}

	if e.SampleSourceURL != "" {
		u, err := url.Parse(e.SampleSourceURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.Newf("BW_SAMPLE_SOURCE_URL must be an absolute http(s) URL, got: %q", e.SampleSourceURL)
		}
	} else if !e.SampleSourceToken.IsZero() {
		return errors.New("BW_SAMPLE_SOURCE_TOKEN is set without BW_SAMPLE_SOURCE_URL")
	}

	return nil
}

var _ Environment = BaseEnvironment{}

// ParseEnv parses environment variables into the given Environment type.
func ParseEnv[E Environment]() func() (E, error) {
	return func() (e E, err error) {
		if err := env.Parse(&e); err != nil {
			return e, errors.Wrap(err, "failed to parse environment")
		}

		if err := e.validate(); err != nil {
			return e, errors.Wrap(err, "invalid environment")
		}

		return e, nil
	}
}
