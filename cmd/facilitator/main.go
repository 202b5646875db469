// Command facilitator runs the room's coordinator daemon.
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
	"github.com/igoryan-dao/agent-ops-room/internal/facilitator"
	"github.com/igoryan-dao/agent-ops-room/internal/llm"
)

func main() {
	var cfg config.Facilitator
	cmd := config.NewFacilitatorCommand(&cfg, func(cmd *cobra.Command, args []string) error {
		return run(cfg)
	})

	if err := cmd.Execute(); err != nil {
		log.Fatalf("facilitator: %v", err)
	}
}

func run(cfg config.Facilitator) error {
	if cfg.OpenAIAPIKey == "" {
		log.Fatal("facilitator: AOR_OPENAI_API_KEY (or --openai-api-key) is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("facilitator: shutting down")
		cancel()
	}()

	busClient, err := bus.Connect(ctx, bus.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		ClientIDPrefix: cfg.ClientIDPrefix,
		KeepAlive:      cfg.KeepAlive(),
	}, "facilitator")
	if err != nil {
		log.Fatalf("facilitator: bus connect: %v", err)
	}
	defer busClient.Disconnect(250)

	llmClient := llm.NewClient(llm.Config{
		BaseURL: cfg.OpenAIBaseURL,
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
	})

	f := facilitator.New(cfg, busClient, llmClient)
	log.Printf("facilitator: running in room %q", cfg.RoomID)
	if err := f.Run(ctx); err != nil {
		log.Fatalf("facilitator: %v", err)
	}
	return nil
}
