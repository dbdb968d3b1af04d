// Package store persists the JSON and append-only text files the original
// implementation kept under $HOME: .lls_ai_config, .lls_history,
// .lls_screen_history, and .cmd_history. Each loader follows the same
// not-exist-is-not-an-error idiom as the teacher's internal/config.Load —
// a missing file means "start from zero value", not a failure.
package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kaixinguo360/lls/internal/genai"
)

// AIConfig is the on-disk shape of .lls_ai_config.
type AIConfig struct {
	CurrentAIID string                          `json:"current_ai_id"`
	AI          map[string]genai.StoredSession  `json:"ai"`
}

// LoadAIConfig reads path, returning an empty AIConfig if it does not exist.
func LoadAIConfig(path string) (*AIConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &AIConfig{AI: map[string]genai.StoredSession{}}, nil
		}
		return nil, fmt.Errorf("load ai config: %w", err)
	}
	var cfg AIConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse ai config %s: %w", path, err)
	}
	if cfg.AI == nil {
		cfg.AI = map[string]genai.StoredSession{}
	}
	return &cfg, nil
}

// SaveAIConfig writes cfg to path as indented JSON, truncating any
// previous content.
func SaveAIConfig(path string, cfg *AIConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ai config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write ai config %s: %w", path, err)
	}
	return nil
}
