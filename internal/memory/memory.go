// Package memory holds the bounded conversation history components use to
// build LLM prompt context from prior envelopes.
package memory

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/igoryan-dao/agent-ops-room/internal/envelope"
	"github.com/igoryan-dao/agent-ops-room/internal/llm"
)

// History is a capacity-bounded FIFO of envelopes: once full, adding a new
// entry evicts the oldest one. Mirrors
// original_source/crates/common/src/memory.rs::MessageHistory.
type History struct {
	capacity int
	entries  []envelope.Envelope
	enc      *tiktoken.Tiktoken
}

// New returns an empty History that holds at most capacity envelopes.
func New(capacity int) *History {
	// cl100k_base is the encoding used by the gpt-3.5/gpt-4 family; it is a
	// reasonable default for any OpenAI-compatible endpoint and degrades
	// gracefully (falls back to a nil encoder, see EstimateTokens) if the
	// encoding table fails to load.
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		enc = nil
	}
	return &History{capacity: capacity, enc: enc}
}

// Add appends env, evicting the oldest entry if at capacity.
func (h *History) Add(env envelope.Envelope) {
	h.entries = append(h.entries, env)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[len(h.entries)-h.capacity:]
	}
}

// Len returns the number of envelopes currently held.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns the held envelopes, oldest first.
func (h *History) Entries() []envelope.Envelope {
	out := make([]envelope.Envelope, len(h.entries))
	copy(out, h.entries)
	return out
}

// ToChatMessages renders the held envelopes as chat turns suitable for an
// llm.ChatRequest: a "say" becomes a user turn and a "result" becomes an
// assistant turn describing what happened, matching the facilitator's own
// treatment of public-channel traffic as a flat conversation. Envelopes of
// any other type, and envelopes whose payload does not decode, are skipped.
func (h *History) ToChatMessages() []llm.Message {
	out := make([]llm.Message, 0, len(h.entries))
	for _, env := range h.entries {
		switch env.Type {
		case envelope.TypeSay:
			var p envelope.SayPayload
			if err := env.DecodePayload(&p); err != nil {
				continue
			}
			out = append(out, llm.Message{Role: "user", Content: p.Text})
		case envelope.TypeResult:
			var p envelope.ResultPayload
			if err := env.DecodePayload(&p); err != nil {
				continue
			}
			out = append(out, llm.Message{Role: "assistant", Content: summarizeResult(env.From.ID, p)})
		}
	}
	return out
}

func summarizeResult(agentID string, p envelope.ResultPayload) string {
	switch p.MessageType {
	case envelope.ResultResult:
		if outcome, err := p.AsResultOutcome(); err == nil {
			return fmt.Sprintf("%s: %s", agentID, outcome.Text)
		}
	case envelope.ResultFinding:
		if outcome, err := p.AsFindingOutcome(); err == nil {
			return fmt.Sprintf("%s (finding): %s", agentID, outcome.Text)
		}
	}
	return fmt.Sprintf("%s sent a %s", agentID, p.MessageType)
}

// EstimateTokens returns a tokenizer-accurate count of msgs' content, or a
// char/4 fallback if the tokenizer failed to load.
func (h *History) EstimateTokens(msgs []llm.Message) int {
	if h.enc == nil {
		var chars int
		for _, m := range msgs {
			chars += len(m.Content)
		}
		return chars / 4
	}
	var total int
	for _, m := range msgs {
		total += len(h.enc.Encode(m.Content, nil, nil))
	}
	return total
}
