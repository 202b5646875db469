package envelope

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	e := Envelope{
		ID:     "env-1",
		Type:   TypeSay,
		RoomID: "ops",
		From:   Sender{Kind: SenderUser, ID: "alice"},
		TS:     1000,
	}
	e, err := e.WithPayload(SayPayload{Text: "hello"})
	if err != nil {
		t.Fatalf("WithPayload: %v", err)
	}

	var got SayPayload
	if err := e.DecodePayload(&got); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if got.Text != "hello" {
		t.Errorf("got text %q, want %q", got.Text, "hello")
	}
}

func TestResultContentVariants(t *testing.T) {
	rp, err := NewFinalResult("task-1", "42")
	if err != nil {
		t.Fatalf("NewFinalResult: %v", err)
	}
	if rp.MessageType != ResultResult {
		t.Fatalf("got message type %q, want %q", rp.MessageType, ResultResult)
	}
	outcome, err := rp.AsResultOutcome()
	if err != nil {
		t.Fatalf("AsResultOutcome: %v", err)
	}
	if outcome.Text != "42" {
		t.Errorf("got text %q, want %q", outcome.Text, "42")
	}

	fp, err := NewFindingResult("task-1", "saw a thing")
	if err != nil {
		t.Fatalf("NewFindingResult: %v", err)
	}
	finding, err := fp.AsFindingOutcome()
	if err != nil {
		t.Fatalf("AsFindingOutcome: %v", err)
	}
	if finding.Text != "saw a thing" {
		t.Errorf("got text %q, want %q", finding.Text, "saw a thing")
	}
}

func TestUnknownFieldsIgnored(t *testing.T) {
	var e Envelope
	raw := []byte(`{"id":"x","type":"say","room_id":"ops","from":{"kind":"user","id":"a"},"ts":1,"payload":{},"extra_field":"ignored"}`)
	if err := json.Unmarshal(raw, &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.ID != "x" {
		t.Errorf("got id %q, want %q", e.ID, "x")
	}
}
