package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRoomDefaultsFallsBackWhenFileMissing(t *testing.T) {
	got := loadRoomDefaults("")
	want := builtinRoomDefaults()
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestLoadRoomDefaultsReadsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "room.yaml")
	contents := "default_mic_duration_secs: 600\ndefault_max_messages: 5\nmemory_capacity: 100\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got := loadRoomDefaults(path)
	want := RoomDefaults{DefaultMicDurationSecs: 600, DefaultMaxMessages: 5, MemoryCapacity: 100}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestEnvOrIntPrefersEnv(t *testing.T) {
	t.Setenv("AOR_TEST_INT", "42")
	if got := envOrInt("AOR_TEST_INT", 7); got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
	if got := envOrInt("AOR_TEST_INT_UNSET", 7); got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}
