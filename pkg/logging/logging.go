// Package logging builds the process zap logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jeremyhahn/go-otpvault/pkg/config"
)

// New returns a logger writing to stderr.
func New(cfg config.Log, opts ...zap.Option) (*zap.Logger, error) {
	return NewWithWriter(cfg, zapcore.Lock(os.Stderr), opts...)
}

// NewWithWriter returns a logger writing to w. Format "json" selects the
// production encoder, anything else the development console encoder.
func NewWithWriter(cfg config.Log, w io.Writer, opts ...zap.Option) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if cfg.Level != "" {
		parsed, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logging: invalid level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	return zap.New(core, opts...), nil
}
