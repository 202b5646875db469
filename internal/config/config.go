// Package config builds the per-component cobra command lines this
// repository's three daemons share, binding every flag to an AOR_*
// environment variable default the way the original clap-based prototype
// did.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

// RoomDefaults holds the handful of mic-grant and memory settings an
// operator may want to fix for a room without repeating flags across every
// component's invocation.
type RoomDefaults struct {
	DefaultMicDurationSecs int64 `yaml:"default_mic_duration_secs"`
	DefaultMaxMessages     int   `yaml:"default_max_messages"`
	MemoryCapacity         int   `yaml:"memory_capacity"`
}

func builtinRoomDefaults() RoomDefaults {
	return RoomDefaults{
		DefaultMicDurationSecs: 300,
		DefaultMaxMessages:     20,
		MemoryCapacity:         50,
	}
}

// loadRoomDefaults reads path as YAML, falling back to the built-in
// defaults for any field the file omits, or entirely if path is empty or
// unreadable.
func loadRoomDefaults(path string) RoomDefaults {
	defaults := builtinRoomDefaults()
	if path == "" {
		return defaults
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("config: could not read room defaults file %q: %v", path, err)
		return defaults
	}
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		log.Printf("config: could not parse room defaults file %q: %v", path, err)
		return builtinRoomDefaults()
	}
	return defaults
}

// Bus holds the MQTT connection parameters shared by every component.
type Bus struct {
	Host           string
	Port           int
	ClientIDPrefix string
	KeepAliveSecs  int
}

// KeepAlive returns Bus.KeepAliveSecs as a time.Duration.
func (b Bus) KeepAlive() time.Duration {
	return time.Duration(b.KeepAliveSecs) * time.Second
}

// BindBusFlags registers the shared bus flags on cmd, defaulting from
// AOR_MQTT_*.
func BindBusFlags(cmd *cobra.Command, b *Bus) {
	cmd.PersistentFlags().StringVar(&b.Host, "mqtt-host", envOr("AOR_MQTT_HOST", "localhost"), "MQTT broker host")
	cmd.PersistentFlags().IntVar(&b.Port, "mqtt-port", envOrInt("AOR_MQTT_PORT", 1883), "MQTT broker port")
	cmd.PersistentFlags().StringVar(&b.ClientIDPrefix, "mqtt-client-id-prefix", envOr("AOR_MQTT_CLIENT_ID_PREFIX", "aor"), "MQTT client id prefix")
	cmd.PersistentFlags().IntVar(&b.KeepAliveSecs, "mqtt-keep-alive-secs", envOrInt("AOR_MQTT_KEEP_ALIVE_SECS", 60), "MQTT keepalive interval in seconds")
}

// Facilitator is the facilitator daemon's configuration, grounded on
// original_source/crates/facilitator/src/config.rs.
type Facilitator struct {
	Bus
	RoomID                    string
	OpenAIAPIKey              string
	OpenAIModel               string
	OpenAIBaseURL             string
	AgentHeartbeatTimeoutSecs int
	DefaultMicDurationSecs    int64
	DefaultMaxMessages        int
	MemoryCapacity            int
}

// NewFacilitatorCommand returns a cobra command whose flags populate cfg
// when Execute parses args; run is invoked once flags are bound. Room-level
// defaults for the mic grant shape and memory capacity are loaded first
// from the file named by AOR_CONFIG_FILE, if set, so an operator can check
// one YAML file into a room's ops repo instead of repeating flags across
// every component's invocation; env vars and explicit flags still win.
func NewFacilitatorCommand(cfg *Facilitator, run func(cmd *cobra.Command, args []string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facilitator",
		Short: "Coordinates the room: interprets user intent and assigns tasks to agents",
		RunE:  run,
	}
	defaults := loadRoomDefaults(envOr("AOR_CONFIG_FILE", ""))

	BindBusFlags(cmd, &cfg.Bus)
	f := cmd.PersistentFlags()
	f.StringVar(&cfg.RoomID, "room-id", envOr("AOR_ROOM_ID", "default"), "room identifier")
	f.StringVar(&cfg.OpenAIAPIKey, "openai-api-key", envOr("AOR_OPENAI_API_KEY", ""), "OpenAI-compatible API key")
	f.StringVar(&cfg.OpenAIModel, "openai-model", envOr("AOR_OPENAI_MODEL", "gpt-oss-120b"), "model name")
	f.StringVar(&cfg.OpenAIBaseURL, "openai-base-url", envOr("AOR_OPENAI_BASE_URL", "https://api.openai.com/v1"), "OpenAI-compatible base URL")
	f.IntVar(&cfg.AgentHeartbeatTimeoutSecs, "agent-heartbeat-timeout-secs", envOrInt("AOR_AGENT_HEARTBEAT_TIMEOUT_SECS", 30), "seconds since last heartbeat before an agent is considered inactive")
	f.Int64Var(&cfg.DefaultMicDurationSecs, "default-mic-duration-secs", envOrInt64("AOR_FACILITATOR_DEFAULT_MIC_DURATION_SECS", defaults.DefaultMicDurationSecs), "default mic grant duration in seconds")
	f.IntVar(&cfg.DefaultMaxMessages, "default-max-messages", envOrInt("AOR_FACILITATOR_DEFAULT_MAX_MESSAGES", defaults.DefaultMaxMessages), "default mic grant message cap")
	f.IntVar(&cfg.MemoryCapacity, "memory-capacity", envOrInt("AOR_FACILITATOR_MEMORY_CAPACITY", defaults.MemoryCapacity), "conversation history capacity in envelopes")
	return cmd
}

// Gateway is the moderator daemon's configuration, grounded on
// original_source/crates/gateway/src/config.rs.
type Gateway struct {
	Bus
	RoomID              string
	HeartbeatIntervalSecs int
}

// NewGatewayCommand returns a cobra command whose flags populate cfg.
func NewGatewayCommand(cfg *Gateway, run func(cmd *cobra.Command, args []string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Validates mic grants and republishes authorized candidate messages to the public topic",
		RunE:  run,
	}
	BindBusFlags(cmd, &cfg.Bus)
	f := cmd.PersistentFlags()
	f.StringVar(&cfg.RoomID, "room-id", envOr("AOR_ROOM_ID", "default"), "room identifier")
	f.IntVar(&cfg.HeartbeatIntervalSecs, "heartbeat-interval-secs", envOrInt("AOR_GATEWAY_HEARTBEAT_INTERVAL_SECS", 10), "self-heartbeat emission interval in seconds")
	return cmd
}

// Worker is a specialist worker daemon's configuration, grounded on
// original_source/crates/specialist-agent/src/config.rs.
type Worker struct {
	Bus
	RoomID                string
	AgentID               string
	Description           string
	OpenAIAPIKey          string
	OpenAIModel           string
	OpenAIBaseURL         string
	HeartbeatIntervalSecs int
}

// NewWorkerCommand returns a cobra command whose flags populate cfg.
func NewWorkerCommand(cfg *Worker, run func(cmd *cobra.Command, args []string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Runs one specialist agent: executes assigned tasks and reports results",
		RunE:  run,
	}
	BindBusFlags(cmd, &cfg.Bus)
	f := cmd.PersistentFlags()
	f.StringVar(&cfg.RoomID, "room-id", envOr("AOR_ROOM_ID", "default"), "room identifier")
	f.StringVar(&cfg.AgentID, "agent-id", envOr("AOR_AGENT_ID", ""), "this agent's unique id")
	f.StringVar(&cfg.Description, "description", envOr("AOR_AGENT_DESCRIPTION", ""), "one-line description advertised in heartbeats")
	f.StringVar(&cfg.OpenAIAPIKey, "openai-api-key", envOr("AOR_OPENAI_API_KEY", ""), "OpenAI-compatible API key")
	f.StringVar(&cfg.OpenAIModel, "openai-model", envOr("AOR_OPENAI_MODEL", "gpt-oss-120b"), "model name")
	f.StringVar(&cfg.OpenAIBaseURL, "openai-base-url", envOr("AOR_OPENAI_BASE_URL", "https://api.openai.com/v1"), "OpenAI-compatible base URL")
	f.IntVar(&cfg.HeartbeatIntervalSecs, "heartbeat-interval-secs", envOrInt("AOR_AGENT_HEARTBEAT_INTERVAL_SECS", 10), "heartbeat emission interval in seconds")
	return cmd
}
