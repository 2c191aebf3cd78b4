package network

import (
	"fmt"
	"os"
)

// Weights holds the raw contents of a weight file. Parsing is left to the
// network constructor, since each network defines its own format.
type Weights struct {
	Path string
	Data []byte
}

// LoadWeights reads a weight file from disk. An empty path means no weights
// and returns nil without error; networks that require weights reject the
// nil container themselves.
func LoadWeights(path string) (*Weights, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load weights %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("load weights %s: file is empty", path)
	}
	return &Weights{Path: path, Data: data}, nil
}
