// Package facilitator implements the room's coordinator: it watches public
// chat, interprets user intent with an LLM, and delegates work to active
// agents by issuing tasks and mic grants.
package facilitator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/igoryan-dao/agent-ops-room/internal/bus"
	"github.com/igoryan-dao/agent-ops-room/internal/config"
	"github.com/igoryan-dao/agent-ops-room/internal/envelope"
	"github.com/igoryan-dao/agent-ops-room/internal/llm"
	"github.com/igoryan-dao/agent-ops-room/internal/memory"
	"github.com/igoryan-dao/agent-ops-room/internal/registry"
)

// Bus is the subset of *bus.Client the facilitator needs.
type Bus interface {
	Subscribe(topic string, handler bus.Handler) error
	Publish(topic string, env envelope.Envelope) error
}

const systemPrompt = `You are the facilitator of a multi-agent operations room. ` +
	`Given the conversation so far and the list of available agents, either ` +
	`delegate concrete work by calling one or more assign_to_* tools, or, if ` +
	`no delegation is needed, reply directly with a short answer and no tool calls.`

// Facilitator runs the room's dispatch loop.
type Facilitator struct {
	cfg      config.Facilitator
	bus      Bus
	llm      llm.ChatCaller
	registry *registry.Registry
	memory   *memory.History

	nextTaskID int
}

// New returns a Facilitator with an empty registry and conversation memory.
func New(cfg config.Facilitator, busClient Bus, llmClient llm.ChatCaller) *Facilitator {
	return &Facilitator{
		cfg:      cfg,
		bus:      busClient,
		llm:      llmClient,
		registry: registry.New(time.Duration(cfg.AgentHeartbeatTimeoutSecs) * time.Second),
		memory:   memory.New(cfg.MemoryCapacity),
	}
}

// Run subscribes to the public and heartbeat topics and blocks until ctx is
// cancelled. Matches original_source/crates/facilitator/src/main.rs's
// subscription set, with the per-trigger behaviour changed per the
// non-reentrant dispatch decision recorded in DESIGN.md.
func (f *Facilitator) Run(ctx context.Context) error {
	if err := f.bus.Subscribe(envelope.Public(f.cfg.RoomID), func(_ string, env envelope.Envelope) {
		f.handlePublicMessage(ctx, env)
	}); err != nil {
		return fmt.Errorf("facilitator: subscribe public: %w", err)
	}
	if err := f.bus.Subscribe(envelope.AllAgentHeartbeats(f.cfg.RoomID), func(topic string, env envelope.Envelope) {
		f.handleHeartbeat(topic, env)
	}); err != nil {
		return fmt.Errorf("facilitator: subscribe heartbeats: %w", err)
	}

	<-ctx.Done()
	return nil
}

func (f *Facilitator) handleHeartbeat(topic string, env envelope.Envelope) {
	if env.Type != envelope.TypeHeartbeat {
		return
	}
	agentID, ok := envelope.AgentIDFromHeartbeatTopic(topic)
	if !ok {
		return
	}
	var hb envelope.HeartbeatPayload
	if err := env.DecodePayload(&hb); err != nil {
		log.Printf("[facilitator] malformed heartbeat on %s: %v", topic, err)
		return
	}
	description := ""
	if hb.Description != nil {
		description = *hb.Description
	}
	f.registry.Observe(agentID, description)
}

// handlePublicMessage stores every public envelope in conversation memory,
// then reacts to the two kinds of trigger: a user's "say" starts a dispatch,
// a terminal worker result closes out its task's mic grant.
func (f *Facilitator) handlePublicMessage(ctx context.Context, env envelope.Envelope) {
	f.memory.Add(env)

	switch {
	case env.Type == envelope.TypeSay && env.From.Kind == envelope.SenderUser:
		var say envelope.SayPayload
		if err := env.DecodePayload(&say); err != nil {
			log.Printf("[facilitator] malformed say %s: %v", env.ID, err)
			return
		}
		f.emitAck()
		f.dispatch(ctx, say)

	case env.Type == envelope.TypeResult && env.From.Kind == envelope.SenderAgent && env.From.ID != "facilitator":
		var result envelope.ResultPayload
		if err := env.DecodePayload(&result); err != nil {
			log.Printf("[facilitator] malformed result %s: %v", env.ID, err)
			return
		}
		if result.MessageType == envelope.ResultResult {
			f.revokeGrant(env.From.ID, result.TaskID)
		}
	}
}

func (f *Facilitator) emitAck() {
	env := envelope.Envelope{
		ID:     uuid.NewString(),
		Type:   envelope.TypeResult,
		RoomID: f.cfg.RoomID,
		From:   envelope.Sender{Kind: envelope.SenderAgent, ID: "facilitator"},
		TS:     time.Now().Unix(),
	}
	payload, err := envelope.NewAckResult("", "processing…")
	if err != nil {
		log.Printf("[facilitator] encode ack: %v", err)
		return
	}
	env, err = env.WithPayload(payload)
	if err != nil {
		log.Printf("[facilitator] encode ack envelope: %v", err)
		return
	}
	if err := f.bus.Publish(envelope.Public(f.cfg.RoomID), env); err != nil {
		log.Printf("[facilitator] publish ack: %v", err)
	}
}

// revokeGrant closes out a finished task: the moderator deletes the
// (agent_id, task_id) grant so any further candidate fails with
// no_mic_grant.
func (f *Facilitator) revokeGrant(agentID, taskID string) {
	env := envelope.Envelope{
		ID:     uuid.NewString(),
		Type:   envelope.TypeMicRevoke,
		RoomID: f.cfg.RoomID,
		From:   envelope.Sender{Kind: envelope.SenderAgent, ID: "facilitator"},
		TS:     time.Now().Unix(),
	}
	env, err := env.WithPayload(envelope.RevokePayload{TaskID: taskID, AgentID: agentID})
	if err != nil {
		log.Printf("[facilitator] encode mic_revoke: %v", err)
		return
	}
	if err := f.bus.Publish(envelope.Control(f.cfg.RoomID), env); err != nil {
		log.Printf("[facilitator] publish mic_revoke: %v", err)
	}
}

// dispatch makes exactly one LLM call for this trigger and applies whatever
// it returns: either one or more task assignments, or a direct reply. It
// never re-enters the model for a second round within the same trigger (see
// DESIGN.md, Open Question 1).
func (f *Facilitator) dispatch(ctx context.Context, say envelope.SayPayload) {
	activeAgents := f.registry.ActiveAgentDescriptions()
	if len(activeAgents) == 0 {
		log.Printf("[facilitator] no active agents; cannot act on %q", say.Text)
		return
	}

	chatContext := append([]llm.Message{{Role: "system", Content: systemPrompt}}, f.memory.ToChatMessages()...)
	tools := buildAssignTools(activeAgents)

	resp, err := f.llm.Chat(ctx, llm.ChatRequest{Messages: chatContext, Tools: tools})
	if err != nil {
		log.Printf("[facilitator] llm call failed: %v", err)
		return
	}

	if len(resp.ToolCalls) == 0 {
		if resp.Content != "" {
			f.publishDirectReply(resp.Content)
		}
		return
	}

	for _, call := range resp.ToolCalls {
		f.applyAssignment(call)
	}
}

func (f *Facilitator) applyAssignment(call llm.ToolCall) {
	agentID, ok := toolNameToAgentID(call.Function.Name)
	if !ok {
		log.Printf("[facilitator] unknown tool %q", call.Function.Name)
		return
	}

	var args struct {
		Goal string `json:"goal"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil || args.Goal == "" {
		log.Printf("[facilitator] empty or malformed goal for %s", agentID)
		return
	}

	taskID := fmt.Sprintf("task_%d", f.nextTaskID)
	f.nextTaskID++
	now := time.Now().Unix()
	deadline := now + 300

	taskEnv := envelope.Envelope{
		ID:     uuid.NewString(),
		Type:   envelope.TypeTask,
		RoomID: f.cfg.RoomID,
		From:   envelope.Sender{Kind: envelope.SenderAgent, ID: "facilitator"},
		TS:     now,
	}
	taskEnv, err := taskEnv.WithPayload(envelope.TaskPayload{TaskID: taskID, Goal: args.Goal, Deadline: &deadline})
	if err != nil {
		log.Printf("[facilitator] encode task: %v", err)
		return
	}
	if err := f.bus.Publish(envelope.AgentInbox(f.cfg.RoomID, agentID), taskEnv); err != nil {
		log.Printf("[facilitator] publish task: %v", err)
		return
	}

	grantEnv := envelope.Envelope{
		ID:     uuid.NewString(),
		Type:   envelope.TypeMicGrant,
		RoomID: f.cfg.RoomID,
		From:   envelope.Sender{Kind: envelope.SenderAgent, ID: "facilitator"},
		TS:     now,
	}
	grantEnv, err = grantEnv.WithPayload(envelope.MicGrantPayload{
		TaskID:      taskID,
		AgentID:     agentID,
		MaxMessages: f.cfg.DefaultMaxMessages,
		AllowedMessageTypes: []envelope.ResultMessageType{
			envelope.ResultAck,
			envelope.ResultClarifyingQuestion,
			envelope.ResultProgress,
			envelope.ResultFinding,
			envelope.ResultRisk,
			envelope.ResultResult,
			envelope.ResultArtifactLink,
		},
		ExpiresAt: now + f.cfg.DefaultMicDurationSecs,
	})
	if err != nil {
		log.Printf("[facilitator] encode mic_grant: %v", err)
		return
	}
	if err := f.bus.Publish(envelope.Control(f.cfg.RoomID), grantEnv); err != nil {
		log.Printf("[facilitator] publish mic_grant: %v", err)
	}

	log.Printf("[facilitator] assigned %s to %s: %s", taskID, agentID, args.Goal)
}

func (f *Facilitator) publishDirectReply(text string) {
	env := envelope.Envelope{
		ID:     uuid.NewString(),
		Type:   envelope.TypeResult,
		RoomID: f.cfg.RoomID,
		From:   envelope.Sender{Kind: envelope.SenderAgent, ID: "facilitator"},
		TS:     time.Now().Unix(),
	}
	payload, err := envelope.NewFinalResult("direct_reply", text)
	if err != nil {
		log.Printf("[facilitator] encode direct reply: %v", err)
		return
	}
	env, err = env.WithPayload(payload)
	if err != nil {
		log.Printf("[facilitator] encode direct reply envelope: %v", err)
		return
	}
	if err := f.bus.Publish(envelope.Public(f.cfg.RoomID), env); err != nil {
		log.Printf("[facilitator] publish direct reply: %v", err)
	}
}
