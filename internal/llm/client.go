// Package llm implements an OpenAI-compatible chat-completion client with
// tool calling, grounded on the retry/transport idiom the teacher repo uses
// for its own HTTP-based model providers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"
)

// Message is one turn in a chat-completion conversation.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-issued invocation of one of the tools offered in a
// request.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the invoked function and carries its arguments as a
// raw JSON-encoded string, matching the OpenAI wire format exactly.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool describes one function the model may call.
type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition is a tool's JSON-schema-shaped declaration.
type FunctionDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  interface{} `json:"parameters,omitempty"`
}

// ChatRequest is the outbound {model, messages, temperature?, tools?,
// tool_choice?} request body.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	Tools       []Tool    `json:"tools,omitempty"`
	ToolChoice  string    `json:"tool_choice,omitempty"`
}

type chatResponse struct {
	Choices []choice   `json:"choices"`
	Error   *apiError  `json:"error,omitempty"`
}

type choice struct {
	Message Message `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
}

// ChatCaller is satisfied by Client; callers that only need to issue chat
// completions (and tests that fake one) should depend on this instead of
// the concrete type, matching the teacher's own Provider interface.
type ChatCaller interface {
	Chat(ctx context.Context, req ChatRequest) (Message, error)
}

// Config configures a Client against a single OpenAI-compatible endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Client calls one OpenAI-compatible chat-completion endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient returns a Client configured against cfg.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
			Transport: &http.Transport{
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		},
	}
}

// Chat sends req to the configured model and returns the first choice's
// message.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (Message, error) {
	if req.Model == "" {
		req.Model = c.cfg.Model
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Message{}, fmt.Errorf("llm: encode request: %w", err)
	}

	headers := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + c.cfg.APIKey,
	}

	resp, err := c.doRequest(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", headers, bytes.NewReader(body))
	if err != nil {
		return Message{}, fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Message{}, fmt.Errorf("llm: read response: %w", err)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Message{}, fmt.Errorf("llm: decode response: %w", err)
	}
	if out.Error != nil {
		return Message{}, fmt.Errorf("llm: upstream error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return Message{}, fmt.Errorf("llm: response had no choices")
	}
	return out.Choices[0].Message, nil
}

// doRequest performs req with exponential backoff on network errors and 5xx
// responses, matching the teacher's agent.doRequest transport.
func (c *Client) doRequest(ctx context.Context, method, url string, headers map[string]string, body io.Reader) (*http.Response, error) {
	var bodyBytes []byte
	var err error
	if body != nil {
		bodyBytes, err = io.ReadAll(body)
		if err != nil {
			return nil, err
		}
	}

	const maxRetries = 3
	retryDelay := 1 * time.Second

	for attempt := 0; attempt <= maxRetries; attempt++ {
		var reader io.Reader
		if bodyBytes != nil {
			reader = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < maxRetries {
				log.Printf("[llm] request failed: %v; retrying in %s", err, retryDelay)
				time.Sleep(retryDelay)
				retryDelay *= 2
				continue
			}
			return nil, err
		}

		if resp.StatusCode >= 500 && attempt < maxRetries {
			log.Printf("[llm] upstream returned %d; retrying in %s", resp.StatusCode, retryDelay)
			resp.Body.Close()
			time.Sleep(retryDelay)
			retryDelay *= 2
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("llm: max retries exceeded")
}
