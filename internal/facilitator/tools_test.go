package facilitator

import "testing"

func TestToolNameRoundTrip(t *testing.T) {
	name := agentIDToToolName("math-solver")
	if name != "assign_to_math_solver" {
		t.Fatalf("got %q, want %q", name, "assign_to_math_solver")
	}

	agentID, ok := toolNameToAgentID(name)
	if !ok || agentID != "math-solver" {
		t.Fatalf("got (%q, %v), want (\"math-solver\", true)", agentID, ok)
	}
}

func TestToolNameToAgentIDRejectsOtherPrefixes(t *testing.T) {
	if _, ok := toolNameToAgentID("some_other_tool"); ok {
		t.Fatalf("expected no match for non-assign tool name")
	}
}

func TestBuildAssignToolsOnePerAgent(t *testing.T) {
	tools := buildAssignTools(map[string]string{"math": "does arithmetic", "search": ""})
	if len(tools) != 2 {
		t.Fatalf("got %d tools, want 2", len(tools))
	}
	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.Function.Name] = true
	}
	if !names["assign_to_math"] || !names["assign_to_search"] {
		t.Fatalf("got tool names %v", names)
	}
}
