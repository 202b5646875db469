package micgrant

import (
	"testing"
	"time"

	"github.com/igoryan-dao/agent-ops-room/internal/envelope"
)

func grantPayload(expiresAt int64) envelope.MicGrantPayload {
	return envelope.MicGrantPayload{
		TaskID:              "task-1",
		AgentID:             "math",
		MaxMessages:         2,
		AllowedMessageTypes: []envelope.ResultMessageType{envelope.ResultFinding, envelope.ResultResult},
		ExpiresAt:           expiresAt,
	}
}

func TestValidateOrderedFailureModes(t *testing.T) {
	tr := NewTracker()
	fakeNow := time.Unix(1000, 0)
	tr.now = func() time.Time { return fakeNow }

	if ok, reason := tr.Validate("math", "task-1", envelope.ResultFinding); ok || reason != envelope.ReasonNoMicGrant {
		t.Fatalf("got (%v, %q), want (false, no_mic_grant)", ok, reason)
	}

	tr.Grant(grantPayload(1500))

	if ok, reason := tr.Validate("math", "task-1", envelope.ResultRisk); ok || reason != envelope.ReasonMessageTypeNotAllowed {
		t.Fatalf("got (%v, %q), want (false, message_type_not_allowed)", ok, reason)
	}

	if ok, _ := tr.Validate("math", "task-1", envelope.ResultFinding); !ok {
		t.Fatalf("expected first finding to be accepted")
	}
	if ok, _ := tr.Validate("math", "task-1", envelope.ResultResult); !ok {
		t.Fatalf("expected second message (at the cap) to be accepted")
	}
	if ok, reason := tr.Validate("math", "task-1", envelope.ResultFinding); ok || reason != envelope.ReasonMessageLimitExceeded {
		t.Fatalf("got (%v, %q), want (false, message_limit_exceeded)", ok, reason)
	}

	tr.Grant(grantPayload(1500))
	fakeNow = time.Unix(1600, 0)
	if ok, reason := tr.Validate("math", "task-1", envelope.ResultFinding); ok || reason != envelope.ReasonMicGrantExpired {
		t.Fatalf("got (%v, %q), want (false, mic_grant_expired)", ok, reason)
	}
}

func TestRevokeIsImmediate(t *testing.T) {
	tr := NewTracker()
	tr.now = func() time.Time { return time.Unix(1000, 0) }
	tr.Grant(grantPayload(2000))

	if ok, _ := tr.Validate("math", "task-1", envelope.ResultFinding); !ok {
		t.Fatalf("expected grant to validate before revoke")
	}

	tr.Revoke("math", "task-1")
	if ok, reason := tr.Validate("math", "task-1", envelope.ResultFinding); ok || reason != envelope.ReasonNoMicGrant {
		t.Fatalf("got (%v, %q), want (false, no_mic_grant) immediately after revoke", ok, reason)
	}
}
