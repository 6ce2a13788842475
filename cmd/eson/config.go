package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Neumenon/eson/eson"
)

// config is the YAML file read by --config. Unset fields keep the
// library defaults.
type config struct {
	Indent      *int     `yaml:"indent"`
	SortKeys    *bool    `yaml:"sort_keys"`
	EnsureASCII *bool    `yaml:"ensure_ascii"`
	AllowNaN    *bool    `yaml:"allow_nan"`
	SkipKeys    *bool    `yaml:"skip_keys"`
	Separators  []string `yaml:"separators"`
	MaxDepth    int      `yaml:"max_depth"`
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if n := len(cfg.Separators); n != 0 && n != 2 {
		return nil, fmt.Errorf("config %s: separators needs two entries, got %d", path, n)
	}
	return &cfg, nil
}

func (c *config) apply(opts *eson.EncodeOptions) {
	if c.Indent != nil {
		*opts = opts.WithIndent(*c.Indent)
	}
	if c.SortKeys != nil {
		opts.SortKeys = *c.SortKeys
	}
	if c.EnsureASCII != nil {
		opts.EnsureASCII = *c.EnsureASCII
	}
	if c.AllowNaN != nil {
		opts.AllowNaN = *c.AllowNaN
	}
	if c.SkipKeys != nil {
		opts.SkipKeys = *c.SkipKeys
	}
	if len(c.Separators) == 2 {
		opts.Separators = eson.Separators{Item: c.Separators[0], Key: c.Separators[1]}
	}
	if c.MaxDepth > 0 {
		opts.MaxDepth = c.MaxDepth
	}
}
