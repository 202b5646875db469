package registry

import (
	"testing"
	"time"
)

func TestActivenessWindow(t *testing.T) {
	r := New(30 * time.Second)
	fakeNow := time.Unix(1000, 0)
	r.now = func() time.Time { return fakeNow }

	r.Observe("math", "does arithmetic")
	if active := r.ActiveAgents(); len(active) != 1 || active[0] != "math" {
		t.Fatalf("got %v, want [math]", active)
	}

	fakeNow = fakeNow.Add(29 * time.Second)
	if active := r.ActiveAgents(); len(active) != 1 {
		t.Fatalf("expected still active at 29s, got %v", active)
	}

	fakeNow = fakeNow.Add(2 * time.Second)
	if active := r.ActiveAgents(); len(active) != 0 {
		t.Fatalf("expected stale past timeout, got %v", active)
	}
}

func TestDescribeUnknownAgent(t *testing.T) {
	r := New(30 * time.Second)
	desc, active := r.Describe("nobody")
	if desc != "" || active {
		t.Fatalf("got (%q, %v), want (\"\", false)", desc, active)
	}
}

func TestDescriptionPreservedAcrossBareHeartbeats(t *testing.T) {
	r := New(30 * time.Second)
	r.Observe("math", "does arithmetic")
	r.Observe("math", "")

	desc, active := r.Describe("math")
	if !active || desc != "does arithmetic" {
		t.Fatalf("got (%q, %v), want (\"does arithmetic\", true)", desc, active)
	}
}
