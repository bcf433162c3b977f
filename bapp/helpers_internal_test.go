package bapp

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// testEnv returns an environment with the defaults of BaseEnvironment filled in.
func testEnv() BaseEnvironment {
	return BaseEnvironment{
		Port:               8080,
		ServiceName:        "test",
		ReadinessCheckPath: "/health",
		LogLevel:           zapcore.InfoLevel,
		OtelExporter:       "stdout",
		TraceSampleRatio:   1,
		AWSRegion:          "us-east-1",
		PrimaryRegion:      "eu-west-1",
		RequestTimeout:     30 * time.Second,
		MetricsPath:        "/admin/metrics-report",
		MetricsInterval:    5 * time.Second,
		BackgroundWorkers:  64,
		MaxBodyBytes:       10 << 20,
		FilesDir:           ".",
		SecretCacheTTL:     time.Hour,
	}
}
