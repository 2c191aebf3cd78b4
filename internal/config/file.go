package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk configuration the binary reads before the UCI session
// starts. Every field can still be overridden with setoption.
type File struct {
	Backend           string  `yaml:"backend"`
	Weights           string  `yaml:"weights"`
	BackendOptions    string  `yaml:"backend_options"`
	PolicySoftmaxTemp float64 `yaml:"policy_softmax_temp"`
	HistoryFill       string  `yaml:"history_fill"`
	Search            string  `yaml:"search"`
	LogLevel          string  `yaml:"log_level"`
	LogJSON           bool    `yaml:"log_json"`
}

// DefaultFile returns the built-in defaults: the weight-free random backend
// and the policy-head instant search.
func DefaultFile() File {
	return File{
		Backend:           "random",
		PolicySoftmaxTemp: 1.0,
		HistoryFill:       "fen_only",
		Search:            "policyhead",
		LogLevel:          "info",
	}
}

// LoadFile reads a YAML configuration file on top of the defaults. A missing
// file is not an error; a malformed one is.
func LoadFile(path string) (File, error) {
	return LoadFileOver(path, DefaultFile())
}

// LoadFileOver reads a YAML configuration file on top of an explicit base,
// typically defaults overlaid with stored preferences.
func LoadFileOver(path string, base File) (File, error) {
	f := base
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return f, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse config %s: %w", path, err)
	}
	return f, nil
}
