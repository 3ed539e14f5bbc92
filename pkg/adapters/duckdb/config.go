package duckdb

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds the database.params section for DuckDB.
type Params struct {
	// ReadOnly opens the benchmark file with access_mode=READ_ONLY so that
	// generated statements cannot change the data they are scored against.
	ReadOnly bool `mapstructure:"read_only"`

	// Extensions to install and load, e.g. "json".
	Extensions []string `mapstructure:"extensions"`

	// Settings applied with SET GLOBAL after connecting, e.g. threads.
	Settings map[string]string `mapstructure:"settings"`
}

// dsn returns the driver connection string for path.
func (p *Params) dsn(path string) (string, error) {
	if !p.ReadOnly {
		return path, nil
	}
	if path == "" {
		return "", fmt.Errorf("read_only requires a database file")
	}
	return path + "?access_mode=READ_ONLY", nil
}

// ParseParams decodes the adapter params map. Nil or empty input yields
// an empty Params.
func ParseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return p, nil
}
