// Package moderator wires a micgrant.Tracker to the bus: it is the only
// consumer of public_candidates and the only subscriber that may mutate
// grants, so every decision it makes is deterministic given the same
// sequence of inputs.
package moderator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/igoryan-dao/agent-ops-room/internal/bus"
	"github.com/igoryan-dao/agent-ops-room/internal/config"
	"github.com/igoryan-dao/agent-ops-room/internal/envelope"
	"github.com/igoryan-dao/agent-ops-room/internal/micgrant"
)

// Bus is the subset of *bus.Client the moderator needs.
type Bus interface {
	Subscribe(topic string, handler bus.Handler) error
	Publish(topic string, env envelope.Envelope) error
}

// Moderator validates candidate messages against live mic grants and
// republishes the ones that pass.
type Moderator struct {
	cfg     config.Gateway
	bus     Bus
	tracker *micgrant.Tracker
}

// New returns a Moderator with an empty grant tracker.
func New(cfg config.Gateway, busClient Bus) *Moderator {
	return &Moderator{cfg: cfg, bus: busClient, tracker: micgrant.NewTracker()}
}

// Run subscribes to public_candidates and control, and starts the
// self-heartbeat ticker, grounded on
// original_source/crates/gateway/src/main.rs. It blocks until ctx is
// cancelled.
func (m *Moderator) Run(ctx context.Context) error {
	if err := m.bus.Subscribe(envelope.PublicCandidates(m.cfg.RoomID), m.handleCandidate); err != nil {
		return fmt.Errorf("moderator: subscribe candidates: %w", err)
	}
	if err := m.bus.Subscribe(envelope.Control(m.cfg.RoomID), m.handleControl); err != nil {
		return fmt.Errorf("moderator: subscribe control: %w", err)
	}

	go m.heartbeatLoop(ctx)

	<-ctx.Done()
	return nil
}

func (m *Moderator) handleControl(_ string, env envelope.Envelope) {
	switch env.Type {
	case envelope.TypeMicGrant:
		var grant envelope.MicGrantPayload
		if err := env.DecodePayload(&grant); err != nil {
			log.Printf("[moderator] malformed mic_grant %s: %v", env.ID, err)
			return
		}
		m.tracker.Grant(grant)
		log.Printf("[moderator] granted %s up to %d message(s) for task %s, expires %d", grant.AgentID, grant.MaxMessages, grant.TaskID, grant.ExpiresAt)
	case envelope.TypeMicRevoke:
		var revoke envelope.RevokePayload
		if err := env.DecodePayload(&revoke); err != nil {
			log.Printf("[moderator] malformed mic_revoke %s: %v", env.ID, err)
			return
		}
		m.tracker.Revoke(revoke.AgentID, revoke.TaskID)
		log.Printf("[moderator] revoked %s for task %s", revoke.AgentID, revoke.TaskID)
	}
}

func (m *Moderator) handleCandidate(_ string, env envelope.Envelope) {
	if env.Type != envelope.TypeResult {
		log.Printf("[moderator] rejected %s: candidate type %q is not result", env.ID, env.Type)
		m.publishRejection(env, envelope.ResultPayload{}, envelope.ReasonMessageTypeNotAllowed)
		return
	}
	var result envelope.ResultPayload
	if err := env.DecodePayload(&result); err != nil {
		log.Printf("[moderator] malformed candidate %s: %v", env.ID, err)
		m.publishRejection(env, result, envelope.ReasonMessageTypeNotAllowed)
		return
	}

	ok, reason := m.tracker.Validate(env.From.ID, result.TaskID, result.MessageType)
	if !ok {
		log.Printf("[moderator] rejected %s/%s (%s): %s", env.From.ID, result.TaskID, result.MessageType, reason)
		m.publishRejection(env, result, reason)
		return
	}

	if err := m.bus.Publish(envelope.Public(m.cfg.RoomID), env); err != nil {
		log.Printf("[moderator] republish failed: %v", err)
	}
}

func (m *Moderator) publishRejection(original envelope.Envelope, result envelope.ResultPayload, reason envelope.RejectedReason) {
	rej := envelope.Envelope{
		ID:     uuid.NewString(),
		Type:   envelope.TypeReject,
		RoomID: m.cfg.RoomID,
		From:   envelope.Sender{Kind: envelope.SenderSystem, ID: "gateway"},
		TS:     time.Now().Unix(),
	}
	rej, err := rej.WithPayload(envelope.RejectPayload{
		MessageID: original.ID,
		TaskID:    result.TaskID,
		Reason:    reason,
	})
	if err != nil {
		log.Printf("[moderator] encode rejection: %v", err)
		return
	}
	if err := m.bus.Publish(envelope.Control(m.cfg.RoomID), rej); err != nil {
		log.Printf("[moderator] publish rejection: %v", err)
	}
}

func (m *Moderator) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(m.cfg.HeartbeatIntervalSecs) * time.Second)
	defer ticker.Stop()

	var beat int
	emit := func() {
		beat++
		var desc *string
		if beat%3 == 0 {
			d := "validates mic grants and republishes authorized messages"
			desc = &d
		}
		env := envelope.Envelope{
			ID:     uuid.NewString(),
			Type:   envelope.TypeHeartbeat,
			RoomID: m.cfg.RoomID,
			From:   envelope.Sender{Kind: envelope.SenderSystem, ID: "gateway"},
			TS:     time.Now().Unix(),
		}
		env, err := env.WithPayload(envelope.HeartbeatPayload{AgentID: "gateway", Description: desc})
		if err != nil {
			log.Printf("[moderator] encode self-heartbeat: %v", err)
			return
		}
		if err := m.bus.Publish(envelope.AgentHeartbeat(m.cfg.RoomID, "gateway"), env); err != nil {
			log.Printf("[moderator] publish self-heartbeat: %v", err)
		}
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
