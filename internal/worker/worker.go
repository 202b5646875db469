// Package worker implements a specialist agent: it waits for tasks in its
// inbox, runs a tool-calling chat loop against an LLM to complete them, and
// reports progress and results as candidate messages for the moderator to
// validate.
package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/igoryan-dao/agent-ops-room/internal/bus"
	"github.com/igoryan-dao/agent-ops-room/internal/config"
	"github.com/igoryan-dao/agent-ops-room/internal/envelope"
	"github.com/igoryan-dao/agent-ops-room/internal/llm"
)

// Bus is the subset of *bus.Client the worker needs; declared here so tests
// can supply a fake without talking to a broker.
type Bus interface {
	Subscribe(topic string, handler bus.Handler) error
	Publish(topic string, env envelope.Envelope) error
}

// Worker runs one specialist agent's inbox loop.
type Worker struct {
	cfg   config.Worker
	bus   Bus
	llm   llm.ChatCaller
	tools []Tool
}

// New returns a Worker ready to Run.
func New(cfg config.Worker, busClient Bus, llmClient llm.ChatCaller, tools []Tool) *Worker {
	return &Worker{cfg: cfg, bus: busClient, llm: llmClient, tools: tools}
}

// Run subscribes to the agent's inbox, starts its heartbeat ticker, and
// blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.bus.Subscribe(envelope.AgentInbox(w.cfg.RoomID, w.cfg.AgentID), func(_ string, env envelope.Envelope) {
		if env.Type != envelope.TypeTask {
			return
		}
		var task envelope.TaskPayload
		if err := env.DecodePayload(&task); err != nil {
			log.Printf("[worker:%s] malformed task envelope %s: %v", w.cfg.AgentID, env.ID, err)
			return
		}
		w.handleTask(ctx, task)
	}); err != nil {
		return fmt.Errorf("worker: subscribe inbox: %w", err)
	}

	go w.heartbeatLoop(ctx)

	<-ctx.Done()
	return nil
}

func (w *Worker) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(w.cfg.HeartbeatIntervalSecs) * time.Second)
	defer ticker.Stop()

	var beat int
	emit := func() {
		beat++
		w.emitHeartbeat(beat%3 == 0)
	}

	emit()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emit()
		}
	}
}

// emitHeartbeat sends a liveness beat, including the agent's capability
// description only on every third beat to keep routine heartbeats small.
func (w *Worker) emitHeartbeat(includeDescription bool) {
	var desc *string
	if includeDescription && w.cfg.Description != "" {
		d := w.cfg.Description
		desc = &d
	}
	env := envelope.Envelope{
		ID:     uuid.NewString(),
		Type:   envelope.TypeHeartbeat,
		RoomID: w.cfg.RoomID,
		From:   envelope.Sender{Kind: envelope.SenderAgent, ID: w.cfg.AgentID},
		TS:     time.Now().Unix(),
	}
	env, err := env.WithPayload(envelope.HeartbeatPayload{AgentID: w.cfg.AgentID, Description: desc})
	if err != nil {
		log.Printf("[worker:%s] encode heartbeat: %v", w.cfg.AgentID, err)
		return
	}
	if err := w.bus.Publish(envelope.AgentHeartbeat(w.cfg.RoomID, w.cfg.AgentID), env); err != nil {
		log.Printf("[worker:%s] publish heartbeat: %v", w.cfg.AgentID, err)
	}
}

// handleTask runs the tool-calling completion loop until the model returns
// no more tool calls, then publishes the final text as a terminal result.
// If maxRounds rounds all end in tool calls, it publishes a fixed terminal
// result saying so instead.
// Matches original_source/crates/specialist-agent/src/main.rs's
// execute-then-report shape.
func (w *Worker) handleTask(ctx context.Context, task envelope.TaskPayload) {
	log.Printf("[worker:%s] task %s: %s", w.cfg.AgentID, task.TaskID, task.Goal)

	w.publishCandidate(envelope.NewAckResult, task.TaskID, "starting task")

	llmTools := make([]llm.Tool, len(w.tools))
	for i, t := range w.tools {
		llmTools[i] = t.ToLLMTool()
	}

	messages := []llm.Message{
		{Role: "system", Content: "You are a specialist agent. Use the available tools to accomplish the goal, then reply with a concise final answer and no further tool calls."},
		{Role: "user", Content: task.Goal},
	}

	const maxRounds = 8
	for round := 0; round < maxRounds; round++ {
		resp, err := w.llm.Chat(ctx, llm.ChatRequest{Messages: messages, Tools: llmTools})
		if err != nil {
			log.Printf("[worker:%s] task %s: llm call failed: %v", w.cfg.AgentID, task.TaskID, err)
			w.publishResult(task.TaskID, fmt.Sprintf("task failed: %v", err))
			return
		}

		if len(resp.ToolCalls) == 0 {
			w.publishResult(task.TaskID, resp.Content)
			return
		}

		messages = append(messages, resp)

		for _, call := range resp.ToolCalls {
			tool := w.findTool(call.Function.Name)
			if tool == nil {
				messages = append(messages, llm.Message{Role: "tool", ToolCallID: call.ID, Content: fmt.Sprintf("unknown tool %q", call.Function.Name)})
				continue
			}

			args, err := decodeArgs(call.Function.Arguments)
			if err != nil {
				messages = append(messages, llm.Message{Role: "tool", ToolCallID: call.ID, Content: err.Error()})
				continue
			}

			w.publishFinding(task.TaskID, fmt.Sprintf("running %s", tool.Schema.Name))
			out, err := tool.Run(ctx, args)
			if err != nil {
				out = fmt.Sprintf("tool error: %v", err)
			}
			w.publishFinding(task.TaskID, fmt.Sprintf("%s finished", tool.Schema.Name))

			messages = append(messages, llm.Message{Role: "tool", ToolCallID: call.ID, Content: out})
		}
	}

	w.publishResult(task.TaskID, "reached the maximum number of tool-call rounds without a final answer")
}

func (w *Worker) findTool(name string) *Tool {
	for i := range w.tools {
		if w.tools[i].Schema.Name == name {
			return &w.tools[i]
		}
	}
	return nil
}

func (w *Worker) publishFinding(taskID, text string) {
	w.publishCandidate(envelope.NewFindingResult, taskID, text)
}

func (w *Worker) publishResult(taskID, text string) {
	w.publishCandidate(envelope.NewFinalResult, taskID, text)
}

func (w *Worker) publishCandidate(build func(taskID, text string) (envelope.ResultPayload, error), taskID, text string) {
	payload, err := build(taskID, text)
	if err != nil {
		log.Printf("[worker:%s] encode result: %v", w.cfg.AgentID, err)
		return
	}

	env := envelope.Envelope{
		ID:     uuid.NewString(),
		Type:   envelope.TypeResult,
		RoomID: w.cfg.RoomID,
		From:   envelope.Sender{Kind: envelope.SenderAgent, ID: w.cfg.AgentID},
		TS:     time.Now().Unix(),
	}
	env, err = env.WithPayload(payload)
	if err != nil {
		log.Printf("[worker:%s] encode envelope: %v", w.cfg.AgentID, err)
		return
	}
	if err := w.bus.Publish(envelope.PublicCandidates(w.cfg.RoomID), env); err != nil {
		log.Printf("[worker:%s] publish candidate: %v", w.cfg.AgentID, err)
	}
}
