package bapp

import (
	"github.com/advdv/bresp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger configured from the environment.
// Uses JSON encoding suitable for CloudWatch.
// BW_LOG_LEVEL controls the level (debug, info, warn, error).
func NewLogger(env Environment) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(env.logLevel())
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build(zap.Fields(zap.String("service", env.serviceName())))
}

type zapLogger struct{ *zap.Logger }

func (l zapLogger) LogUnhandledServeError(err error) {
	l.Logger.Error("unhandled server error", zap.Error(err))
}

func (l zapLogger) LogImplicitCommitError(err error) {
	l.Logger.Error("error while committing implicitly", zap.Error(err))
}

func (l zapLogger) LogCommittedServeError(err error) {
	l.Logger.Warn("server error after response was committed", zap.Error(err))
}

// NewRespLogger adapts a zap logger to the logger interface of the response pipeline.
func NewRespLogger(l *zap.Logger) bresp.Logger {
	return zapLogger{l.Named("bresp")}
}
