// Command worker runs one specialist agent daemon.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/igoryan-dao/agent-ops-room/internal/bus"
	"github.com/igoryan-dao/agent-ops-room/internal/config"
	"github.com/igoryan-dao/agent-ops-room/internal/llm"
	"github.com/igoryan-dao/agent-ops-room/internal/worker"
)

func main() {
	var cfg config.Worker
	cmd := config.NewWorkerCommand(&cfg, func(cmd *cobra.Command, args []string) error {
		return run(cfg)
	})

	if err := cmd.Execute(); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func run(cfg config.Worker) error {
	if cfg.AgentID == "" {
		log.Fatal("worker: AOR_AGENT_ID (or --agent-id) is required")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Fatal("worker: AOR_OPENAI_API_KEY (or --openai-api-key) is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("worker:%s: shutting down", cfg.AgentID)
		cancel()
	}()

	busClient, err := bus.Connect(ctx, bus.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		ClientIDPrefix: cfg.ClientIDPrefix,
		KeepAlive:      cfg.KeepAlive(),
	}, cfg.AgentID)
	if err != nil {
		log.Fatalf("worker:%s: bus connect: %v", cfg.AgentID, err)
	}
	defer busClient.Disconnect(250)

	llmClient := llm.NewClient(llm.Config{
		BaseURL: cfg.OpenAIBaseURL,
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
	})

	w := worker.New(cfg, busClient, llmClient, worker.DefaultTools())
	log.Printf("worker:%s: running in room %q", cfg.AgentID, cfg.RoomID)
	if err := w.Run(ctx); err != nil {
		log.Fatalf("worker:%s: %v", cfg.AgentID, err)
	}
	return nil
}
