package facilitator

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/igoryan-dao/agent-ops-room/internal/llm"
)

const assignToolPrefix = "assign_to_"

// agentIDToToolName turns an agent id into a valid function name: OpenAI
// tool names may not contain '-', so dashes become underscores.
func agentIDToToolName(agentID string) string {
	return assignToolPrefix + strings.ReplaceAll(agentID, "-", "_")
}

// toolNameToAgentID reverses agentIDToToolName. This assumes agent ids
// themselves never contain underscores, matching
// original_source/crates/facilitator/src/main.rs's own
// `agent_id.replace("_", "-")` inverse.
func toolNameToAgentID(toolName string) (string, bool) {
	suffix, ok := strings.CutPrefix(toolName, assignToolPrefix)
	if !ok {
		return "", false
	}
	return strings.ReplaceAll(suffix, "_", "-"), true
}

// buildAssignTools returns one assign_to_<agent> tool per active agent, so
// the model can only delegate to agents currently reporting a heartbeat.
func buildAssignTools(activeAgents map[string]string) []llm.Tool {
	tools := make([]llm.Tool, 0, len(activeAgents))
	for agentID, description := range activeAgents {
		desc := description
		if desc == "" {
			desc = "Assign a task to agent " + agentID
		} else {
			desc = "Assign a task to agent " + agentID + ": " + desc
		}

		schema := mcp.NewTool(agentIDToToolName(agentID),
			mcp.WithDescription(desc),
			mcp.WithString("goal", mcp.Required(), mcp.Description("The concrete goal to hand to this agent")),
			mcp.WithString("reasoning", mcp.Description("Why this agent is the right choice")),
		)
		tools = append(tools, llm.Tool{
			Type: "function",
			Function: llm.FunctionDefinition{
				Name:        schema.Name,
				Description: schema.Description,
				Parameters:  schema.InputSchema,
			},
		})
	}
	return tools
}
