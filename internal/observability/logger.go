package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/upb/multichat/config"
	"github.com/upb/multichat/middleware"
)

// Field represents a structured log field.
type Field = zap.Field

// NewLogger builds a logger writing to stderr. Format "json" yields one
// JSON object per line; "text" and "console" yield the human-readable
// encoder.
func NewLogger(cfg config.ObservabilityConfig) (*zap.Logger, error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg config.ObservabilityConfig, out io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.LogFormat) {
	case "", "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	case "text", "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)
	opts := []zap.Option{zap.AddCaller()}
	if level == zapcore.DebugLevel {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(core, opts...), nil
}

// WithRequest returns logger annotated with the request id carried by ctx
func WithRequest(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if id := middleware.GetRequestIDFromContext(ctx); id != "" {
		return logger.With(zap.String("request_id", id))
	}
	return logger
}
