package moderator

import (
	"testing"

	"github.com/igoryan-dao/agent-ops-room/internal/bus"
	"github.com/igoryan-dao/agent-ops-room/internal/config"
	"github.com/igoryan-dao/agent-ops-room/internal/envelope"
)

type fakeBus struct {
	published []struct {
		topic string
		env   envelope.Envelope
	}
}

func (f *fakeBus) Subscribe(topic string, handler bus.Handler) error { return nil }
func (f *fakeBus) Publish(topic string, env envelope.Envelope) error {
	f.published = append(f.published, struct {
		topic string
		env   envelope.Envelope
	}{topic, env})
	return nil
}

func resultCandidate(taskID, agentID string, mt envelope.ResultMessageType) envelope.Envelope {
	e := envelope.Envelope{ID: "cand-1", Type: envelope.TypeResult, RoomID: "ops", From: envelope.Sender{Kind: envelope.SenderAgent, ID: agentID}}
	e, _ = e.WithPayload(envelope.ResultPayload{TaskID: taskID, MessageType: mt})
	return e
}

func TestRejectsWithoutGrant(t *testing.T) {
	fb := &fakeBus{}
	m := New(config.Gateway{RoomID: "ops", HeartbeatIntervalSecs: 10}, fb)

	m.handleCandidate("rooms/ops/public_candidates", resultCandidate("task-1", "math", envelope.ResultFinding))

	if len(fb.published) != 1 {
		t.Fatalf("got %d published, want 1 rejection", len(fb.published))
	}
	if fb.published[0].topic != envelope.Control("ops") {
		t.Fatalf("got topic %q, want control topic", fb.published[0].topic)
	}
	var rej envelope.RejectPayload
	if err := fb.published[0].env.DecodePayload(&rej); err != nil {
		t.Fatalf("decode rejection: %v", err)
	}
	if rej.Reason != envelope.ReasonNoMicGrant {
		t.Fatalf("got reason %q, want %q", rej.Reason, envelope.ReasonNoMicGrant)
	}
}

func TestAcceptsWithGrant(t *testing.T) {
	fb := &fakeBus{}
	m := New(config.Gateway{RoomID: "ops", HeartbeatIntervalSecs: 10}, fb)

	grantEnv := envelope.Envelope{Type: envelope.TypeMicGrant, RoomID: "ops"}
	grantEnv, _ = grantEnv.WithPayload(envelope.MicGrantPayload{
		TaskID: "task-1", AgentID: "math", MaxMessages: 5,
		AllowedMessageTypes: []envelope.ResultMessageType{envelope.ResultFinding},
		ExpiresAt:           9999999999,
	})
	m.handleControl("rooms/ops/control", grantEnv)

	m.handleCandidate("rooms/ops/public_candidates", resultCandidate("task-1", "math", envelope.ResultFinding))

	if len(fb.published) != 1 {
		t.Fatalf("got %d published, want 1 republish", len(fb.published))
	}
	if fb.published[0].topic != envelope.Public("ops") {
		t.Fatalf("got topic %q, want public topic", fb.published[0].topic)
	}
}
