package core

import (
	"fmt"
	"os"
)

// ParseJob parses YAML content into a Job
func ParseJob(data []byte) (*Job, error) {
	return Decode(data, FormatYAML)
}

// LoadJob reads a definition file and returns a Job. The format follows the
// file extension.
func LoadJob(path string) (*Job, error) {
	format, ok := FormatFromPath(path)
	if !ok {
		return nil, fmt.Errorf("%s: unsupported definition file extension", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	job, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return job, nil
}
