package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the level and encoding of the application logger.
type Options struct {
	// Level is one of debug, info, warn or error. Empty means info.
	Level string
	// Dev switches to colored console output with caller and stack traces
	// from warn upwards.
	Dev bool
	// Paths overrides the output sinks, stdout by default.
	Paths []string
}

// New builds the application logger: JSON lines in production, a readable
// console format when Dev is set. It also becomes zap's global logger.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	stackLevel := zapcore.ErrorLevel
	if opts.Dev {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		stackLevel = zapcore.WarnLevel
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "json"
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.InitialFields = map[string]any{"app": "devis"}
	}
	cfg.OutputPaths = []string{"stdout"}
	if len(opts.Paths) > 0 {
		cfg.OutputPaths = opts.Paths
	}
	cfg.ErrorOutputPaths = []string{"stderr"}

	level := opts.Level
	if level == "" {
		level = "info"
	}
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger, err := cfg.Build(zap.AddStacktrace(stackLevel))
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
