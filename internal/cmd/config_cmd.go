package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kaixinguo360/lls/internal/config"
	"github.com/kaixinguo360/lls/internal/llmclient"
	"github.com/kaixinguo360/lls/internal/store"
)

// newConfigCmd dumps the configuration lls resolves: environment, .lls.toml
// overrides, and the persisted .lls_ai_config sessions, read-only
// (SPEC_FULL.md §6). base_url and model are the values the client starts
// with; fallback_shell and color_mode show what .lls.toml and the
// environment set, but the wrapped-shell launch does not read .lls.toml's
// fallback_shell and nothing else reads color_mode.
func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "print the resolved configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.HomeDir()
			cfg, err := config.LoadFrom(filepath.Join(home, ".lls.toml"))
			if err != nil {
				return err
			}
			client := llmclient.ConfigFromEnv()
			if cfg.BaseURL != "" {
				client.BaseURL = cfg.BaseURL
			}
			if cfg.DefaultModel != "" {
				client.Model = cfg.DefaultModel
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "home: %s\r\n", home)
			fmt.Fprintf(out, "base_url: %s\r\n", client.BaseURL)
			fmt.Fprintf(out, "model: %s\r\n", client.Model)
			fmt.Fprintf(out, "fallback_shell: %s\r\n", fallbackShellOrDefault(cfg.FallbackShell))
			fmt.Fprintf(out, "color_mode: %s\r\n", fallbackOrDefault(cfg.ColorMode, "auto"))

			aiCfg, err := store.LoadAIConfig(filepath.Join(home, ".lls_ai_config"))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "active session: %s\r\n", aiCfg.CurrentAIID)
			for id, s := range aiCfg.AI {
				fmt.Fprintf(out, "  %s (%s)\r\n", id, s.Type)
			}
			return nil
		},
	}
}

func fallbackShellOrDefault(v string) string {
	if v != "" {
		return v
	}
	if v = os.Getenv("LLS_FALLBACK_SHELL"); v != "" {
		return v
	}
	return defaultFallbackShell
}

func fallbackOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
