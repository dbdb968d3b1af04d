package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaixinguo360/lls/internal/cancel"
	"github.com/kaixinguo360/lls/internal/llmclient"
)

const defaultPromptTemplate = "instruction: %s\n\nterminal:\n%s\n\ncommand:"

// TextSession is a stateless, single-prompt generator grounded on
// original_source/ai/text.py's TextCompletionAI. Where the original ran an
// arbitrary post_processor expression via exec(), this implementation picks
// from a fixed enumerated set of transforms (SPEC_FULL.md §4.D) so a
// malformed config can never execute code.
type TextSession struct {
	client *llmclient.Client

	Model          string
	PromptTemplate string
	PostProcessor  string // "", "strip-backticks", "strip-quotes", "first-line", "regex-replace:<pattern>=<repl>"
}

// NewTextSession returns a session with ai/text.py's defaults.
func NewTextSession(client *llmclient.Client) *TextSession {
	model := ""
	if client != nil {
		model = client.Model
	}
	return &TextSession{
		client:         client,
		Model:          model,
		PromptTemplate: defaultPromptTemplate,
	}
}

func (t *TextSession) Type() string { return "text" }

func (t *TextSession) Generate(ctx context.Context, instruct, console string) *cancel.Adapter[Output] {
	prompt := fmt.Sprintf(t.PromptTemplate, instruct, console)
	model := t.Model
	post := t.PostProcessor
	return cancel.Start(func(ctx context.Context, emit func(Output)) error {
		emit(Output{})
		var acc strings.Builder
		err := t.client.StreamCompletion(ctx, model, prompt, func(delta string) {
			acc.WriteString(delta)
			cmd, think := ConvertOutput(acc.String())
			emit(Output{Cmd: cmd, Think: think})
		})
		if err != nil {
			emit(Output{Cmd: fmt.Sprintf("error: %v", err)})
			return err
		}
		if post != "" {
			cmd, think := ConvertOutput(acc.String())
			transformed, perr := applyPostProcessor(post, cmd)
			if perr != nil {
				emit(Output{Cmd: fmt.Sprintf("error: %v", perr), Think: think})
				return perr
			}
			emit(Output{Cmd: transformed, Think: think})
		}
		return nil
	})
}

// Save is a no-op: text sessions carry no transcript.
func (t *TextSession) Save(instruct, console, output string) error { return nil }

func (t *TextSession) Get(key string) (string, bool) {
	switch key {
	case "model":
		return t.Model, true
	case "prompt_template":
		return t.PromptTemplate, true
	case "post_processor":
		return t.PostProcessor, true
	}
	return "", false
}

func (t *TextSession) Set(key, value string) error {
	switch key {
	case "model":
		t.Model = value
	case "prompt_template":
		t.PromptTemplate = value
	case "post_processor":
		if err := validatePostProcessor(value); err != nil {
			return err
		}
		t.PostProcessor = value
	default:
		return fmt.Errorf("text session has no field %q", key)
	}
	return nil
}

func (t *TextSession) Configs() []ConfigEntry {
	return []ConfigEntry{
		{Name: "model", Type: "str", Value: t.Model},
		{Name: "prompt_template", Type: "str", Value: t.PromptTemplate},
		{Name: "post_processor", Type: "str", Value: t.PostProcessor},
	}
}

type textConfig struct {
	Model          string `json:"model,omitempty"`
	PromptTemplate string `json:"prompt_template,omitempty"`
	PostProcessor  string `json:"post_processor,omitempty"`
}

func (t *TextSession) SaveConfig() (json.RawMessage, error) {
	return json.Marshal(textConfig{
		Model:          t.Model,
		PromptTemplate: t.PromptTemplate,
		PostProcessor:  t.PostProcessor,
	})
}

// TextSessionFromConfig builds a TextSession from a persisted config blob.
func TextSessionFromConfig(client *llmclient.Client, raw json.RawMessage) (*TextSession, error) {
	s := NewTextSession(client)
	if len(raw) == 0 {
		return s, nil
	}
	var cfg textConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("text session config: %w", err)
	}
	if cfg.Model != "" {
		s.Model = cfg.Model
	}
	if cfg.PromptTemplate != "" {
		s.PromptTemplate = cfg.PromptTemplate
	}
	if cfg.PostProcessor != "" {
		if err := validatePostProcessor(cfg.PostProcessor); err != nil {
			return nil, err
		}
		s.PostProcessor = cfg.PostProcessor
	}
	return s, nil
}

func validatePostProcessor(value string) error {
	_, err := applyPostProcessor(value, "")
	return err
}

func applyPostProcessor(spec, cmd string) (string, error) {
	switch {
	case spec == "":
		return cmd, nil
	case spec == "strip-backticks":
		return strings.Trim(strings.TrimSpace(cmd), "`"), nil
	case spec == "strip-quotes":
		return strings.Trim(strings.TrimSpace(cmd), `"'`), nil
	case spec == "first-line":
		if idx := strings.IndexByte(cmd, '\n'); idx >= 0 {
			return cmd[:idx], nil
		}
		return cmd, nil
	case strings.HasPrefix(spec, "regex-replace:"):
		rule := strings.TrimPrefix(spec, "regex-replace:")
		parts := strings.SplitN(rule, "=", 2)
		if len(parts) != 2 {
			return "", fmt.Errorf("post_processor: regex-replace needs <pattern>=<repl>, got %q", rule)
		}
		re, err := regexp.Compile(parts[0])
		if err != nil {
			return "", fmt.Errorf("post_processor: %w", err)
		}
		return re.ReplaceAllString(cmd, parts[1]), nil
	default:
		return "", fmt.Errorf("post_processor: unknown transform %q", spec)
	}
}
