// Package genai implements the generator-session contract the dispatcher
// drives: a uniform generate/save/get/set/configs surface over three
// concrete session kinds (chat, text-template, and a mixed supervisor of
// both), grounded on original_source/ai/{base,chat,text,mixed,registry}.py
// and structurally modeled on the teacher's agent-type registry
// (internal/cmd's AgentType/ResolveAgentType pattern in agent_type.go).
package genai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kaixinguo360/lls/internal/cancel"
)

// Output is one increment of generated text: the command synthesized so
// far and any "<think>...</think>" reasoning text split out of it.
type Output struct {
	Cmd   string
	Think string
}

// ConvertOutput splits a raw model output into (cmd, think), mirroring
// generate.py's convert_output. Without an opening "<think>" tag the whole
// output is the command and think is empty. With one, the opening tag is
// stripped and text before a closing "</think>" tag is reasoning, text after
// is the command; until the closing tag arrives, everything seen so far is
// still-accumulating reasoning and cmd is empty.
func ConvertOutput(output string) (cmd, think string) {
	if !strings.Contains(output, "<think>") {
		return strings.TrimSpace(output), ""
	}
	rest := strings.Replace(output, "<think>", "", 1)
	if idx := strings.Index(rest, "</think>"); idx >= 0 {
		think = strings.TrimSpace(rest[:idx])
		cmd = strings.TrimSpace(rest[idx+len("</think>"):])
		return cmd, think
	}
	return "", strings.TrimSpace(rest)
}

// ConfigEntry is one scalar field exposed by Configs/printConfigs-style
// introspection: (name, type tag, value already formatted for display).
type ConfigEntry struct {
	Name  string
	Type  string
	Value string
}

// Session is the contract every generator kind implements: start (or
// resume) a cancelable stream of Output for an instruction against the
// current console text, commit a completed turn to history, and expose its
// scalar configuration for the `set`/`get`/`config` verbs.
type Session interface {
	// Type is this session's registered kind tag ("chat", "text", "mixed").
	Type() string

	// Generate starts a cancelable stream. The adapter's first item is
	// always the empty pair (Output{}), signalling "generation started"
	// before any network round trip completes, matching the original's
	// mandatory `yield ('', '')` first emit.
	Generate(ctx context.Context, instruct, console string) *cancel.Adapter[Output]

	// Save commits a finished turn permanently (e.g. appends chat
	// messages); text sessions are stateless and may no-op.
	Save(instruct, console, output string) error

	// Get/Set read and write one named scalar config field, Set coercing
	// the string value to the field's existing type.
	Get(key string) (string, bool)
	Set(key, value string) error

	// Configs lists every named scalar field for display.
	Configs() []ConfigEntry

	// SaveConfig serializes this session's configuration (not its
	// transcript state) back to the JSON shape FromConfig accepts.
	SaveConfig() (json.RawMessage, error)
}

// StoredSession is the on-disk shape of one entry in .lls_ai_config's "ai"
// map.
type StoredSession struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config"`
}
