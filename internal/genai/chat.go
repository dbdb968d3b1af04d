package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kaixinguo360/lls/internal/cancel"
	"github.com/kaixinguo360/lls/internal/llmclient"
)

const (
	defaultSystemInstruct = "You are a shell assistant. Given the user's instruction and a " +
		"trailing excerpt of the terminal's visible output for context, reply with a single " +
		"shell command that satisfies the instruction and nothing else. If you need to reason " +
		"first, wrap that reasoning in <think>...</think> before the command."
	defaultUserTemplate = "instruction: %s\n\nterminal:\n%s"
	defaultInstruct     = "continue"
	defaultConsoleLines = 30
)

// ChatSession keeps a running message transcript and asks the model for one
// shell command per turn, grounded on original_source/ai/chat.py.
type ChatSession struct {
	client *llmclient.Client

	Model            string
	User             string
	UserTemplate     string
	Assistant        string
	System           string
	SystemInstruct   string
	DefaultInstruct  string
	ConsoleMaxHeight int

	Messages []llmclient.Message
}

// NewChatSession returns a session seeded with the same defaults
// ai/chat.py's ChatAI.__init__ falls back to when unconfigured.
func NewChatSession(client *llmclient.Client) *ChatSession {
	model := ""
	if client != nil {
		model = client.Model
	}
	c := &ChatSession{
		client:           client,
		Model:            model,
		UserTemplate:     defaultUserTemplate,
		SystemInstruct:   defaultSystemInstruct,
		DefaultInstruct:  defaultInstruct,
		ConsoleMaxHeight: defaultConsoleLines,
	}
	c.seedSystem()
	return c
}

func (c *ChatSession) seedSystem() {
	if c.SystemInstruct == "" {
		return
	}
	c.Messages = []llmclient.Message{{Role: "system", Content: c.SystemInstruct}}
}

func (c *ChatSession) Type() string { return "chat" }

func truncateConsole(console string, maxLines int) string {
	if maxLines <= 0 {
		return console
	}
	lines := strings.Split(console, "\n")
	if len(lines) <= maxLines {
		return console
	}
	return strings.Join(lines[len(lines)-maxLines:], "\n")
}

func (c *ChatSession) userMessage(instruct, console string) llmclient.Message {
	if instruct == "" {
		instruct = c.DefaultInstruct
	}
	content := fmt.Sprintf(c.UserTemplate, instruct, truncateConsole(console, c.ConsoleMaxHeight))
	return llmclient.Message{Role: "user", Content: content}
}

func (c *ChatSession) Generate(ctx context.Context, instruct, console string) *cancel.Adapter[Output] {
	messages := append(append([]llmclient.Message{}, c.Messages...), c.userMessage(instruct, console))
	model := c.Model
	return cancel.Start(func(ctx context.Context, emit func(Output)) error {
		emit(Output{})
		var acc strings.Builder
		err := c.client.StreamChatCompletion(ctx, model, messages, func(delta string) {
			acc.WriteString(delta)
			cmd, think := ConvertOutput(acc.String())
			emit(Output{Cmd: cmd, Think: think})
		})
		if err != nil {
			emit(Output{Cmd: fmt.Sprintf("error: %v", err)})
			return err
		}
		return nil
	})
}

// Save appends the turn permanently to the transcript: a user message
// (defaulting instruct like Generate does) and the assistant's command.
func (c *ChatSession) Save(instruct, console, output string) error {
	c.Messages = append(c.Messages, c.userMessage(instruct, console), llmclient.Message{
		Role:    "assistant",
		Content: output,
	})
	return nil
}

func (c *ChatSession) Get(key string) (string, bool) {
	switch key {
	case "model":
		return c.Model, true
	case "user":
		return c.User, true
	case "user_template":
		return c.UserTemplate, true
	case "assistant":
		return c.Assistant, true
	case "system":
		return c.System, true
	case "system_instruct":
		return c.SystemInstruct, true
	case "default_instruct":
		return c.DefaultInstruct, true
	case "console_max_height":
		return strconv.Itoa(c.ConsoleMaxHeight), true
	}
	return "", false
}

func (c *ChatSession) Set(key, value string) error {
	switch key {
	case "model":
		c.Model = value
	case "user":
		c.User = value
	case "user_template":
		c.UserTemplate = value
	case "assistant":
		c.Assistant = value
	case "system":
		c.System = value
	case "system_instruct":
		c.SystemInstruct = value
		c.seedSystem()
	case "default_instruct":
		c.DefaultInstruct = value
	case "console_max_height":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("console_max_height: %w", err)
		}
		c.ConsoleMaxHeight = n
	default:
		return fmt.Errorf("chat session has no field %q", key)
	}
	return nil
}

func (c *ChatSession) Configs() []ConfigEntry {
	return []ConfigEntry{
		{Name: "model", Type: "str", Value: c.Model},
		{Name: "user_template", Type: "str", Value: c.UserTemplate},
		{Name: "system_instruct", Type: "str", Value: c.SystemInstruct},
		{Name: "default_instruct", Type: "str", Value: c.DefaultInstruct},
		{Name: "console_max_height", Type: "int", Value: strconv.Itoa(c.ConsoleMaxHeight)},
	}
}

type chatConfig struct {
	Model            string `json:"model,omitempty"`
	UserTemplate     string `json:"user_template,omitempty"`
	SystemInstruct   string `json:"system_instruct,omitempty"`
	DefaultInstruct  string `json:"default_instruct,omitempty"`
	ConsoleMaxHeight int    `json:"console_max_height,omitempty"`
}

func (c *ChatSession) SaveConfig() (json.RawMessage, error) {
	return json.Marshal(chatConfig{
		Model:            c.Model,
		UserTemplate:     c.UserTemplate,
		SystemInstruct:   c.SystemInstruct,
		DefaultInstruct:  c.DefaultInstruct,
		ConsoleMaxHeight: c.ConsoleMaxHeight,
	})
}

// ChatSessionFromConfig builds a ChatSession from a persisted config blob,
// falling back to the zero-value defaults for any field the blob omits —
// the same merge-into-defaults behavior as ai/chat.py's from_config.
func ChatSessionFromConfig(client *llmclient.Client, raw json.RawMessage) (*ChatSession, error) {
	c := NewChatSession(client)
	if len(raw) == 0 {
		return c, nil
	}
	var cfg chatConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("chat session config: %w", err)
	}
	if cfg.Model != "" {
		c.Model = cfg.Model
	}
	if cfg.UserTemplate != "" {
		c.UserTemplate = cfg.UserTemplate
	}
	if cfg.SystemInstruct != "" {
		c.SystemInstruct = cfg.SystemInstruct
	}
	if cfg.DefaultInstruct != "" {
		c.DefaultInstruct = cfg.DefaultInstruct
	}
	if cfg.ConsoleMaxHeight != 0 {
		c.ConsoleMaxHeight = cfg.ConsoleMaxHeight
	}
	c.seedSystem()
	return c, nil
}
