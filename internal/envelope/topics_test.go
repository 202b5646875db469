package envelope

import "testing"

func TestTopicFormatting(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"public", Public("ops"), "rooms/ops/public"},
		{"candidates", PublicCandidates("ops"), "rooms/ops/public_candidates"},
		{"control", Control("ops"), "rooms/ops/control"},
		{"inbox", AgentInbox("ops", "math"), "rooms/ops/agents/math/inbox"},
		{"heartbeat", AgentHeartbeat("ops", "math"), "rooms/ops/agents/math/heartbeat"},
		{"all heartbeats", AllAgentHeartbeats("ops"), "rooms/ops/agents/+/heartbeat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestAgentIDFromHeartbeatTopic(t *testing.T) {
	agent, ok := AgentIDFromHeartbeatTopic("rooms/ops/agents/math/heartbeat")
	if !ok || agent != "math" {
		t.Fatalf("got (%q, %v), want (\"math\", true)", agent, ok)
	}

	if _, ok := AgentIDFromHeartbeatTopic("rooms/ops/public"); ok {
		t.Fatalf("expected no match for non-heartbeat topic")
	}
}
