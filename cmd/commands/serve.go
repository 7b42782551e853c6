package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wayfarer-ai/wayfarer/internal/agents"
	"github.com/wayfarer-ai/wayfarer/internal/config"
	"github.com/wayfarer-ai/wayfarer/internal/conversation"
	"github.com/wayfarer-ai/wayfarer/internal/events"
	"github.com/wayfarer-ai/wayfarer/internal/graph"
	"github.com/wayfarer-ai/wayfarer/internal/models"
	"github.com/wayfarer-ai/wayfarer/internal/server"
	"github.com/wayfarer-ai/wayfarer/internal/sessions"
)

// NewServeCommand returns the serve subcommand.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the Wayfarer HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
			&cli.BoolFlag{
				Name:  "memory-store",
				Usage: "Use the in-memory session store instead of Redis",
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	configPath := cmd.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Warn("config not found, using defaults", "path", configPath, "error", err)
		cfg = config.Default()
	}

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = cmd.Int("port")
	}
	if cmd.IsSet("memory-store") {
		cfg.Redis.Enabled = false
	}

	bus := events.NewBus(cfg.Events.BufferSize)

	// Session store — explicit instance, injected all the way down
	var store sessions.Store
	if cfg.Redis.Enabled {
		redisStore, err := sessions.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("init session store: %w", err)
		}
		defer redisStore.Close()
		store = redisStore
		slog.Info("session store ready", "backend", "redis", "addr", cfg.Redis.Addr)
	} else {
		store = sessions.NewMemoryStore()
		slog.Info("session store ready", "backend", "memory")
	}

	chatModel, err := models.NewOpenAI(ctx, cfg.Model)
	if err != nil {
		return fmt.Errorf("init chat model: %w", err)
	}

	destinations, err := agents.NewDestinationAgent(ctx, chatModel)
	if err != nil {
		return fmt.Errorf("init destination agent: %w", err)
	}
	weatherPacking := agents.NewWeatherPackingAgent(
		agents.NewWeatherClient(cfg.Weather.APIKey, cfg.Weather.BaseURL),
		chatModel,
	)

	orch, err := graph.New(ctx, destinations, weatherPacking, bus)
	if err != nil {
		return fmt.Errorf("compile orchestration graphs: %w", err)
	}

	svc := conversation.NewService(store, orch, bus)
	srv := server.NewServer(svc, bus, cfg.Server.Host, cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
