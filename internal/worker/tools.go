package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/igoryan-dao/agent-ops-room/internal/llm"
)

// Tool pairs a declarative schema with the function that executes it.
type Tool struct {
	Schema mcp.Tool
	Run    func(ctx context.Context, args map[string]interface{}) (string, error)
}

// ToLLMTool converts t's schema into the shape llm.ChatRequest expects,
// matching internal/mcp/server.go's own mcp.NewTool declarative builder
// reused here purely for schema construction.
func (t Tool) ToLLMTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.FunctionDefinition{
			Name:        t.Schema.Name,
			Description: t.Schema.Description,
			Parameters:  t.Schema.InputSchema,
		},
	}
}

func decodeArgs(raw string) (map[string]interface{}, error) {
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("decode tool arguments: %w", err)
	}
	return args, nil
}

// runCommandTool executes a shell command non-interactively and returns its
// combined output, grounded on
// original_source/crates/specialist-agent/src/main.rs's run_command tool and
// the teacher's own exec.Command-based tool handler in
// internal/mcp/server.go.
func runCommandTool() Tool {
	schema := mcp.NewTool("run_command",
		mcp.WithDescription("Run a shell command and return its output"),
		mcp.WithString("command", mcp.Required(), mcp.Description("The shell command to execute")),
	)
	return Tool{
		Schema: schema,
		Run: func(ctx context.Context, args map[string]interface{}) (string, error) {
			command, _ := args["command"].(string)
			if command == "" {
				return "", fmt.Errorf("command argument is required")
			}
			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			cmd := exec.CommandContext(ctx, "sh", "-c", command)
			out, err := cmd.CombinedOutput()
			if err != nil {
				return fmt.Sprintf("command failed: %v\noutput:\n%s", err, out), nil
			}
			return string(out), nil
		},
	}
}

// webSearchTool answers a query via DuckDuckGo's Instant Answer API,
// grounded on internal/mcp/server.go's handleBrowserSearch.
func webSearchTool() Tool {
	schema := mcp.NewTool("web_search",
		mcp.WithDescription("Look up a brief instant answer for a query"),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query")),
	)
	client := &http.Client{Timeout: 10 * time.Second}
	return Tool{
		Schema: schema,
		Run: func(ctx context.Context, args map[string]interface{}) (string, error) {
			query, _ := args["query"].(string)
			if query == "" {
				return "", fmt.Errorf("query argument is required")
			}
			u := "https://api.duckduckgo.com/?q=" + url.QueryEscape(query) + "&format=json&no_html=1"
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return "", err
			}
			resp, err := client.Do(req)
			if err != nil {
				return "", fmt.Errorf("web_search request failed: %w", err)
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return "", err
			}
			var parsed struct {
				AbstractText string `json:"AbstractText"`
			}
			if err := json.Unmarshal(body, &parsed); err != nil {
				return "", fmt.Errorf("decode web_search response: %w", err)
			}
			if parsed.AbstractText == "" {
				return "no instant answer found", nil
			}
			return parsed.AbstractText, nil
		},
	}
}

// DefaultTools returns the reference specialist worker's domain tool set.
func DefaultTools() []Tool {
	return []Tool{runCommandTool(), webSearchTool()}
}
