// Package logging builds the zap loggers used by the command line tools.
package logging

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

// NewLogger creates a logger writing to stderr as described by params.
func NewLogger(params Parameters) (*zap.Logger, error) {
	return newLogger(params, zapcore.Lock(os.Stderr))
}

func newLogger(params Parameters, w zapcore.WriteSyncer) (*zap.Logger, error) {
	al := zap.NewAtomicLevelAt(params.Level)
	var enc zapcore.Encoder
	switch params.Type {
	case LoggerText:
		enc = zapcore.NewConsoleEncoder(zap.NewProductionEncoderConfig())
	case LoggerJSON:
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case LoggerDev:
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	default:
		return nil, errors.Errorf("unsupported logger type %d", params.Type)
	}
	core := zapcore.NewCore(enc, w, al)
	if params.Filter != "" {
		rules, err := zapfilter.ParseRules(params.Filter)
		if err != nil {
			return nil, errors.Wrap(err, "invalid logger filter")
		}
		core = zapfilter.NewFilteringCore(core, rules)
	}
	return zap.New(core), nil
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// ErrorTrace returns the stack trace recorded by github.com/pkg/errors, or a skipped field when err has none.
func ErrorTrace(err error) zap.Field {
	const key = "trace"
	var st stackTracer
	if errors.As(err, &st) {
		return zap.String(key, fmt.Sprintf("%+v", st.StackTrace()))
	}
	return zap.Skip()
}

// Type returns a field holding the Go type name of v.
func Type(v any) zap.Field {
	return zap.String("type", fmt.Sprintf("%T", v))
}
