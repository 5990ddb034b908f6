package logger

import (
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/i5heu/GoByteQueue/pkg/config"
)

// Component identifies a subsystem for log filtering.
const (
	ComponentDevice    = "device"
	ComponentEndpoint  = "endpoint"
	ComponentRegistrar = "registrar"
)

// New builds a JSON zap logger from cfg. An empty FileLogName writes to
// stderr, otherwise output goes to a lumberjack-rotated file.
func New(cfg config.Logger) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, errors.Wrapf(err, "log level %q", cfg.LogLevel)
		}
	}

	var sink zapcore.WriteSyncer
	if cfg.FileLogName == "" {
		sink = zapcore.Lock(os.Stderr)
	} else {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FileLogName,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, level)
	return zap.New(core, zap.AddCaller()), nil
}

// For returns l tagged with the component field, or a no-op logger when l is nil.
func For(l *zap.Logger, component string) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.With(zap.String("component", component))
}
