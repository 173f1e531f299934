package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBuildConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/affe.json", []byte(`{"init": "n = 4;", "times": 3, "points": 16}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/point.affe", []byte("x = i;"), 0o644))

	cfg, err := buildConfig(fs, "/affe.json", "/point.affe", "", "point", config{Points: 8})
	require.NoError(t, err)
	assert.Equal(t, "n = 4;", cfg.Init)
	assert.Equal(t, "x = i;", cfg.Point)
	assert.Equal(t, 3, cfg.Times)
	assert.Equal(t, 8, cfg.Points)
	assert.Equal(t, 640, cfg.Width)

	cfg, err = buildConfig(fs, "", "", "y = 1;", "frame", config{})
	require.NoError(t, err)
	assert.Equal(t, "y = 1;", cfg.Frame)
	assert.Equal(t, 1, cfg.Times)

	_, err = buildConfig(fs, "", "/point.affe", "y = 1;", "frame", config{})
	assert.Error(t, err)
	_, err = buildConfig(fs, "", "", "y = 1;", "vertex", config{})
	assert.Error(t, err)
	_, err = buildConfig(fs, "", "", "", "frame", config{})
	assert.Error(t, err)
	_, err = buildConfig(fs, "/missing.json", "", "y = 1;", "frame", config{})
	assert.Error(t, err)
}

func TestRunRendersPoints(t *testing.T) {
	cfg := defaultConfig()
	cfg.Init = "n = 3;"
	cfg.Point = "x = i; y = 0;"
	cfg.Points = 3
	cfg.Disasm = true
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), afero.NewMemMapFs(), cfg, &out, zaptest.NewLogger(t)))
	s := out.String()
	assert.Contains(t, s, "; init script")
	assert.Contains(t, s, "; point script")
	assert.Contains(t, s, "frame 0 point 0: x=0 y=0 rgba=(1, 1, 1, 1)")
	assert.Contains(t, s, "frame 0 point 2: x=1 y=0 rgba=(1, 1, 1, 1)")
	assert.Contains(t, s, "n=3 x=1 y=0")
}

func TestRunPersistsSnapshot(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := defaultConfig()
	cfg.Frame = "count = count + 1;"
	cfg.Points = 1
	cfg.Times = 2
	cfg.Snapshot = "/state.cbor"
	cfg.DumpState = true
	log := zaptest.NewLogger(t)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), fs, cfg, &out, log))
	assert.Contains(t, out.String(), `{"count":2}`)

	out.Reset()
	require.NoError(t, run(context.Background(), fs, cfg, &out, log))
	assert.Contains(t, out.String(), `{"count":4}`)
}

func TestRunWithStateDatabase(t *testing.T) {
	cfg := defaultConfig()
	cfg.Frame = "count = count + 1;"
	cfg.Points = 1
	cfg.StateDB = filepath.Join(t.TempDir(), "state")
	cfg.DumpState = true
	log := zaptest.NewLogger(t)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), afero.NewMemMapFs(), cfg, &out, log))
	out.Reset()
	require.NoError(t, run(context.Background(), afero.NewMemMapFs(), cfg, &out, log))
	assert.Contains(t, out.String(), `{"count":2}`)
}

func TestRunReportsCompileErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Frame = "count = ;"
	err := run(context.Background(), afero.NewMemMapFs(), cfg, &bytes.Buffer{}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
}
