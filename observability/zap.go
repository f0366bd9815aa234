package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapLogger builds a production zap logger and wraps it in the Logger
// interface. logFile, when non-empty, is added as an additional sink next to
// stderr. verbose lowers the level to debug and switches to the development
// encoder.
func NewZapLogger(verbose bool, logFile string) (Logger, func() error, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stderr"}
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if logFile != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
	}
	zl, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	return ZapLogger(zl), zl.Sync, nil
}

// ZapLogger adapts a *zap.Logger to the Logger interface.
func ZapLogger(l *zap.Logger) Logger { return zapAdapter{l} }

type zapAdapter struct {
	l *zap.Logger
}

func (a zapAdapter) Debug(msg string, fields ...Field) { a.l.Debug(msg, zapFields(fields)...) }
func (a zapAdapter) Info(msg string, fields ...Field)  { a.l.Info(msg, zapFields(fields)...) }
func (a zapAdapter) Warn(msg string, fields ...Field)  { a.l.Warn(msg, zapFields(fields)...) }
func (a zapAdapter) Error(msg string, fields ...Field) { a.l.Error(msg, zapFields(fields)...) }

func (a zapAdapter) With(fields ...Field) Logger {
	return zapAdapter{a.l.With(zapFields(fields)...)}
}

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value().(error); ok {
			out = append(out, zap.NamedError(f.Key(), err))
			continue
		}
		out = append(out, zap.Any(f.Key(), f.Value()))
	}
	return out
}
