package worker

import (
	"context"
	"testing"

	"github.com/igoryan-dao/agent-ops-room/internal/bus"
	"github.com/igoryan-dao/agent-ops-room/internal/config"
	"github.com/igoryan-dao/agent-ops-room/internal/envelope"
	"github.com/igoryan-dao/agent-ops-room/internal/llm"
)

type fakeBus struct {
	published []envelope.Envelope
}

func (f *fakeBus) Subscribe(topic string, handler bus.Handler) error { return nil }
func (f *fakeBus) Publish(topic string, env envelope.Envelope) error {
	f.published = append(f.published, env)
	return nil
}

type fakeLLM struct {
	responses []llm.Message
	calls     int
}

func (f *fakeLLM) Chat(ctx context.Context, req llm.ChatRequest) (llm.Message, error) {
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func TestHandleTaskRunsToolThenReportsResult(t *testing.T) {
	fb := &fakeBus{}
	fl := &fakeLLM{responses: []llm.Message{
		{Role: "assistant", ToolCalls: []llm.ToolCall{{
			ID:       "call_1",
			Function: llm.FunctionCall{Name: "web_search", Arguments: `{"query":"go"}`},
		}}},
		{Role: "assistant", Content: "done"},
	}}

	w := New(config.Worker{RoomID: "ops", AgentID: "math"}, fb, fl, []Tool{
		{Schema: webSearchTool().Schema, Run: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return "an answer", nil
		}},
	})

	w.handleTask(context.Background(), envelope.TaskPayload{TaskID: "task-1", Goal: "look something up"})

	if fl.calls != 2 {
		t.Fatalf("got %d llm calls, want 2", fl.calls)
	}
	if len(fb.published) != 4 {
		t.Fatalf("got %d published envelopes, want 4 (ack, finding, finding, result), got %+v", len(fb.published), fb.published)
	}

	var ack envelope.ResultPayload
	if err := fb.published[0].DecodePayload(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.MessageType != envelope.ResultAck {
		t.Fatalf("got message type %q, want %q", ack.MessageType, envelope.ResultAck)
	}

	last := fb.published[len(fb.published)-1]
	var rp envelope.ResultPayload
	if err := last.DecodePayload(&rp); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if rp.MessageType != envelope.ResultResult {
		t.Fatalf("got message type %q, want %q", rp.MessageType, envelope.ResultResult)
	}
	outcome, err := rp.AsResultOutcome()
	if err != nil {
		t.Fatalf("AsResultOutcome: %v", err)
	}
	if outcome.Text != "done" {
		t.Fatalf("got text %q, want %q", outcome.Text, "done")
	}
}

func TestHandleTaskUnknownTool(t *testing.T) {
	fb := &fakeBus{}
	fl := &fakeLLM{responses: []llm.Message{
		{Role: "assistant", ToolCalls: []llm.ToolCall{{ID: "call_1", Function: llm.FunctionCall{Name: "nonexistent", Arguments: `{}`}}}},
		{Role: "assistant", Content: "fallback answer"},
	}}

	w := New(config.Worker{RoomID: "ops", AgentID: "math"}, fb, fl, nil)
	w.handleTask(context.Background(), envelope.TaskPayload{TaskID: "task-1", Goal: "do something"})

	if fl.calls != 2 {
		t.Fatalf("got %d llm calls, want 2", fl.calls)
	}
}
