// Package micgrant implements the moderator's deterministic speaking-rights
// bookkeeping: a bounded, time-limited authorization per (agent, task) that
// gates which candidate messages reach the public topic.
package micgrant

import (
	"time"

	"github.com/igoryan-dao/agent-ops-room/internal/envelope"
)

// Grant is the moderator-local authorization state for one (agentID,
// taskID) pair, mirroring envelope.MicGrantPayload plus the counters the
// validator mutates as messages are accepted.
type Grant struct {
	TaskID              string
	AgentID             string
	MaxMessages         int
	MessagesSent        int
	AllowedMessageTypes []envelope.ResultMessageType
	ExpiresAt           time.Time
}

func (g *Grant) allows(mt envelope.ResultMessageType) bool {
	for _, allowed := range g.AllowedMessageTypes {
		if allowed == mt {
			return true
		}
	}
	return false
}

// Tracker owns every live grant in a room. It is not safe for concurrent
// use by design: spec.md's determinism requirement is satisfied by a single
// goroutine (the moderator's event loop) owning the Tracker outright, the
// same way the moderator owns its single MQTT event loop, so no mutex is
// needed here.
type Tracker struct {
	grants map[key]*Grant
	now    func() time.Time
}

type key struct {
	agentID string
	taskID  string
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{grants: make(map[key]*Grant), now: time.Now}
}

// Grant installs or replaces the authorization for (agentID, taskID),
// mirroring original_source/crates/gateway/src/mic_grant.rs::grant.
func (t *Tracker) Grant(p envelope.MicGrantPayload) {
	t.grants[key{p.AgentID, p.TaskID}] = &Grant{
		TaskID:              p.TaskID,
		AgentID:             p.AgentID,
		MaxMessages:         p.MaxMessages,
		AllowedMessageTypes: p.AllowedMessageTypes,
		ExpiresAt:           time.Unix(p.ExpiresAt, 0),
	}
}

// Revoke removes the authorization for (agentID, taskID) immediately; any
// candidate validated afterward is rejected with no drain grace period.
func (t *Tracker) Revoke(agentID, taskID string) {
	delete(t.grants, key{agentID, taskID})
}

// Reason enumerates why Validate refused a candidate message.
type Reason = envelope.RejectedReason

// Validate checks whether the agent may publish one more message of type mt
// for taskID, and if so records the send against the grant's remaining
// budget. The check order — existence, expiry, type, count — matches
// original_source/crates/gateway/src/validator.rs exactly, so the same
// candidate always fails for the same reason regardless of evaluation order
// elsewhere in the system.
func (t *Tracker) Validate(agentID, taskID string, mt envelope.ResultMessageType) (bool, Reason) {
	g, ok := t.grants[key{agentID, taskID}]
	if !ok {
		return false, envelope.ReasonNoMicGrant
	}
	if t.now().After(g.ExpiresAt) {
		return false, envelope.ReasonMicGrantExpired
	}
	if !g.allows(mt) {
		return false, envelope.ReasonMessageTypeNotAllowed
	}
	if g.MessagesSent >= g.MaxMessages {
		return false, envelope.ReasonMessageLimitExceeded
	}
	g.MessagesSent++
	return true, ""
}
