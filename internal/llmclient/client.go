// Package llmclient is a small OpenAI-compatible streaming client. No
// official OpenAI Go SDK appears anywhere in the example pack — the closest
// grounding is kir-gadjello-llm's llm_api.go, which hand-rolls the same
// chat-completions POST-and-SSE-scan against net/http rather than pulling
// in a client library. This package follows that shape, generalized to
// also cover the legacy (non-chat) completions endpoint the original's
// TextCompletionAI used.
package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Message is one entry of a chat-completions request body.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config holds the resolved endpoint and credentials for a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// ConfigFromEnv resolves Config the way original_source/generate.py did:
// LLS_OPENAI_MODEL (default gpt-4o-mini), LLS_OPENAI_BASE_URL (default
// https://api.openai.com), LLS_OPENAI_API_KEY (default empty).
func ConfigFromEnv() Config {
	return Config{
		BaseURL: envOr("LLS_OPENAI_BASE_URL", "https://api.openai.com"),
		APIKey:  os.Getenv("LLS_OPENAI_API_KEY"),
		Model:   envOr("LLS_OPENAI_MODEL", "gpt-4o-mini"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Client is a minimal OpenAI-compatible HTTP client.
type Client struct {
	Config
	HTTP *http.Client
}

// New builds a Client whose http.Client has a 120-second timeout. The
// timeout covers the whole request, including reading a streamed response;
// cancelling ctx ends a stream sooner.
func New(cfg Config) *Client {
	return &Client{Config: cfg, HTTP: &http.Client{Timeout: 120 * time.Second}}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// StreamChatCompletion POSTs a chat-completions request with stream=true and
// calls onDelta with each incremental content fragment as it arrives. It
// returns once the server sends "[DONE]", the stream ends, or ctx is
// cancelled.
func (c *Client) StreamChatCompletion(ctx context.Context, model string, messages []Message, onDelta func(string)) error {
	if model == "" {
		model = c.Model
	}
	body, err := json.Marshal(chatRequest{Model: model, Messages: messages, Stream: true})
	if err != nil {
		return err
	}
	return c.streamSSE(ctx, "/v1/chat/completions", body, func(payload []byte) (bool, error) {
		var chunk chatStreamChunk
		if err := json.Unmarshal(payload, &chunk); err != nil {
			return false, nil // tolerate a stray non-JSON keepalive line
		}
		if len(chunk.Choices) == 0 {
			return false, nil
		}
		if d := chunk.Choices[0].Delta.Content; d != "" {
			onDelta(d)
		}
		return chunk.Choices[0].FinishReason != nil, nil
	})
}

type completionRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type completionStreamChunk struct {
	Choices []struct {
		Text         string  `json:"text"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// StreamCompletion is StreamChatCompletion for the legacy completions
// endpoint, used by the text-template generator.
func (c *Client) StreamCompletion(ctx context.Context, model, prompt string, onDelta func(string)) error {
	if model == "" {
		model = c.Model
	}
	body, err := json.Marshal(completionRequest{Model: model, Prompt: prompt, Stream: true})
	if err != nil {
		return err
	}
	return c.streamSSE(ctx, "/v1/completions", body, func(payload []byte) (bool, error) {
		var chunk completionStreamChunk
		if err := json.Unmarshal(payload, &chunk); err != nil {
			return false, nil
		}
		if len(chunk.Choices) == 0 {
			return false, nil
		}
		if chunk.Choices[0].Text != "" {
			onDelta(chunk.Choices[0].Text)
		}
		return chunk.Choices[0].FinishReason != nil, nil
	})
}

// streamSSE issues the POST and scans the response body as
// text/event-stream, handing each "data: ..." payload to handle until
// handle reports done, the stream ends, or "[DONE]" arrives.
func (c *Client) streamSSE(ctx context.Context, path string, body []byte, handle func(payload []byte) (done bool, err error)) error {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("llmclient: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("llmclient: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if payload == "[DONE]" {
			return nil
		}
		done, err := handle([]byte(payload))
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return scanner.Err()
}
