package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DataPath string // hcl data files
	GTXIn    string // container file to import
	GTXOut   string // container file to write instead of a listing

	LogFormat       string
	LogLevel        string
	MaxStatementLen int
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.DataPath == "" && cfg.GTXIn == "" {
		return nil, errors.New("at least one input is required: a data path or a container file")
	}
	return &cfg, nil
}
