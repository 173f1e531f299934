package main

import (
	"encoding/json"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

type config struct {
	Init  string `json:"init"`
	Frame string `json:"frame"`
	Beat  string `json:"beat"`
	Point string `json:"point"`

	Times          int `json:"times"`
	Points         int `json:"points"`
	BeatEvery      int `json:"beatEvery"`
	Width          int `json:"width"`
	Height         int `json:"height"`
	OperationLimit int `json:"operationLimit"`

	StateDB   string `json:"stateDb"`
	Snapshot  string `json:"snapshot"`
	Disasm    bool   `json:"disasm"`
	DumpState bool   `json:"dumpState"`
}

func defaultConfig() config {
	return config{
		Times:  1,
		Width:  640,
		Height: 480,
	}
}

// loadConfig reads a JSON configuration file.
func loadConfig(fs afero.Fs, path string) (config, error) {
	var cfg config
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to read configuration %q", path)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse configuration %q", path)
	}
	return cfg, nil
}

// merge overlays the non-empty values of the layers on cfg, later layers winning.
func merge(cfg config, layers ...config) (config, error) {
	for i := range layers {
		if err := copier.CopyWithOption(&cfg, &layers[i], copier.Option{IgnoreEmpty: true}); err != nil {
			return cfg, errors.Wrap(err, "failed to merge configuration")
		}
	}
	return cfg, nil
}

func (c *config) setScript(kind, src string) error {
	switch kind {
	case "init":
		c.Init = src
	case "frame":
		c.Frame = src
	case "beat":
		c.Beat = src
	case "point":
		c.Point = src
	default:
		return errors.Errorf("unknown script kind '%s'", kind)
	}
	return nil
}

func (c *config) validate() error {
	if c.Init == "" && c.Frame == "" && c.Beat == "" && c.Point == "" {
		return errors.New("no script given")
	}
	if c.Times < 0 || c.Points < 0 || c.BeatEvery < 0 || c.OperationLimit < 0 {
		return errors.New("counts must not be negative")
	}
	return nil
}
