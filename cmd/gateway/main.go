// Command gateway runs the room's moderator daemon.
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
	"github.com/igoryan-dao/agent-ops-room/internal/moderator"
)

func main() {
	var cfg config.Gateway
	cmd := config.NewGatewayCommand(&cfg, func(cmd *cobra.Command, args []string) error {
		return run(cfg)
	})

	if err := cmd.Execute(); err != nil {
		log.Fatalf("gateway: %v", err)
	}
}

func run(cfg config.Gateway) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("gateway: shutting down")
		cancel()
	}()

	busClient, err := bus.Connect(ctx, bus.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		ClientIDPrefix: cfg.ClientIDPrefix,
		KeepAlive:      cfg.KeepAlive(),
	}, "gateway")
	if err != nil {
		log.Fatalf("gateway: bus connect: %v", err)
	}
	defer busClient.Disconnect(250)

	m := moderator.New(cfg, busClient)
	log.Printf("gateway: running in room %q", cfg.RoomID)
	if err := m.Run(ctx); err != nil {
		log.Fatalf("gateway: %v", err)
	}
	return nil
}
