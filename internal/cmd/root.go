// Package cmd wires lls's cobra CLI surface: the default PTY-wrap command,
// `version`, and a read-only `config` dump, grounded on the teacher's
// internal/cmd.NewRootCmd shape (PersistentPreRunE plus AddCommand) but
// scoped to lls's much smaller surface (SPEC_FULL.md §6) instead of h2's
// multi-agent daemon/session/role command set.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kaixinguo360/lls/internal/config"
	"github.com/kaixinguo360/lls/internal/relay"
	"github.com/kaixinguo360/lls/internal/version"
)

const defaultFallbackShell = "bash"

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:                "lls [-- PROG [args...]]",
		Short:              "wrap a shell in a PTY with an LLM-driven command-synthesis overlay",
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		RunE:               runRoot,
	}
	rootCmd.AddCommand(newVersionCmd(), newConfigCmd())
	return rootCmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	for _, a := range args {
		switch a {
		case "-h", "--help":
			return cmd.Help()
		}
	}
	program, progArgs := resolveProgram(args)
	home := config.HomeDir()
	r, err := relay.New(home)
	if err != nil {
		return fmt.Errorf("start lls: %w", err)
	}
	code, err := r.Run(program, progArgs)
	if err != nil {
		return err
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

// resolveProgram implements SPEC_FULL.md §6's two CLI forms: `lls -- PROG
// [args...]` explicitly names the child; otherwise lls wraps $SHELL,
// falling back to LLS_FALLBACK_SHELL (default bash) when SHELL points back
// at lls itself, to avoid infinite self-recursion.
func resolveProgram(args []string) (string, []string) {
	for i, a := range args {
		if a == "--" {
			if i+1 < len(args) {
				return args[i+1], args[i+2:]
			}
			break
		}
	}
	shell := os.Getenv("SHELL")
	if shell == "" || filepath.Base(shell) == filepath.Base(os.Args[0]) {
		shell = os.Getenv("LLS_FALLBACK_SHELL")
		if shell == "" {
			shell = defaultFallbackShell
		}
	}
	return shell, args
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the lls version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.DisplayVersion())
			return nil
		},
	}
}
