package logging

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func entries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		out = append(out, e)
	}
	return out
}

func TestErrorTrace(t *testing.T) {
	e1 := stderrors.New("standard error")
	e2 := fmt.Errorf("wrapped error: %w", e1)
	e3 := errors.New("pkg errors error")
	e4 := fmt.Errorf("std wrapped: %w", e3)
	for i, test := range []struct {
		err   error
		trace bool
	}{
		{nil, false},
		{e1, false},
		{e2, false},
		{e3, true},
		{e4, true},
	} {
		t.Run(fmt.Sprintf("%d", i+1), func(t *testing.T) {
			var buf bytes.Buffer
			log, err := newLogger(Parameters{Level: zapcore.DebugLevel, Type: LoggerJSON}, zapcore.AddSync(&buf))
			require.NoError(t, err)
			log.Error("Test error", zap.String("test", "attribute"), ErrorTrace(test.err), Type(test.err))
			es := entries(t, &buf)
			require.Len(t, es, 1)
			assert.Equal(t, "attribute", es[0]["test"])
			assert.Equal(t, "Test error", es[0]["msg"])
			assert.Equal(t, "error", es[0]["level"])
			_, ok := es[0]["trace"]
			assert.Equal(t, test.trace, ok)
			assert.Equal(t, fmt.Sprintf("%T", test.err), es[0]["type"])
		})
	}
}

func TestLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(Parameters{Level: zapcore.WarnLevel, Type: LoggerJSON}, zapcore.AddSync(&buf))
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown")
	es := entries(t, &buf)
	require.Len(t, es, 1)
	assert.Equal(t, "shown", es[0]["msg"])
}

func TestFilter(t *testing.T) {
	var buf bytes.Buffer
	params := Parameters{Level: zapcore.DebugLevel, Type: LoggerJSON, Filter: "debug:compiler.vm info+:*"}
	log, err := newLogger(params, zapcore.AddSync(&buf))
	require.NoError(t, err)
	log.Named("compiler").Debug("dropped")
	log.Named("compiler").Named("vm").Debug("kept")
	log.Named("compiler").Info("kept too")
	es := entries(t, &buf)
	require.Len(t, es, 2)
	assert.Equal(t, "kept", es[0]["msg"])
	assert.Equal(t, "kept too", es[1]["msg"])

	_, err = newLogger(Parameters{Filter: "nope:"}, zapcore.AddSync(&buf))
	assert.Error(t, err)
}

func TestParameters(t *testing.T) {
	for _, test := range []struct {
		args  []string
		level zapcore.Level
		typ   LoggerType
		fails bool
	}{
		{nil, zapcore.InfoLevel, LoggerText, false},
		{[]string{"--log-level", "debug", "--log-type", "json"}, zapcore.DebugLevel, LoggerJSON, false},
		{[]string{"--log-type=DEV", "--log-level=error"}, zapcore.ErrorLevel, LoggerDev, false},
		{[]string{"--log-level", "loud"}, 0, 0, true},
		{[]string{"--log-type", "pretty"}, 0, 0, true},
	} {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		var p Parameters
		p.Initialize(fs)
		require.NoError(t, fs.Parse(test.args))
		err := p.Parse()
		if test.fails {
			assert.Error(t, err, "%v", test.args)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, test.level, p.Level)
		assert.Equal(t, test.typ, p.Type)
	}
}

func TestLoggerTypeText(t *testing.T) {
	for _, lt := range []LoggerType{LoggerText, LoggerJSON, LoggerDev} {
		b, err := lt.MarshalText()
		require.NoError(t, err)
		var back LoggerType
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, lt, back)
	}
	assert.Equal(t, "unknown", LoggerType(42).String())
}
