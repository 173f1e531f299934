package logging

import (
	"strings"

	"github.com/pkg/errors"
)

// LoggerType is a type of logger output.
// Possible types:
//   - LoggerText: console encoder with production field names.
//   - LoggerJSON: JSON encoder.
//   - LoggerDev: console encoder with development field names and colored levels.
type LoggerType int

const (
	LoggerText LoggerType = iota
	LoggerJSON
	LoggerDev
)

var loggerTypeNames = [...]string{
	LoggerText: "text",
	LoggerJSON: "json",
	LoggerDev:  "dev",
}

func (t LoggerType) String() string {
	if t >= 0 && int(t) < len(loggerTypeNames) {
		return loggerTypeNames[t]
	}
	return "unknown"
}

func (t LoggerType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *LoggerType) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for i, n := range loggerTypeNames {
		if n == s {
			*t = LoggerType(i)
			return nil
		}
	}
	return errors.Errorf("unsupported logger type '%s'", text)
}
