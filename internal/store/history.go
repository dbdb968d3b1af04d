package store

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadHistory reads .lls_history, a JSON object mapping each recall
// buffer's editor id to its list of past entries (newest last). A missing
// file yields an empty map.
func LoadHistory(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]string{}, nil
		}
		return nil, fmt.Errorf("load history: %w", err)
	}
	var h map[string][]string
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", path, err)
	}
	if h == nil {
		h = map[string][]string{}
	}
	return h, nil
}

// SaveHistory writes h to path as indented JSON.
func SaveHistory(path string, h map[string][]string) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write history %s: %w", path, err)
	}
	return nil
}
