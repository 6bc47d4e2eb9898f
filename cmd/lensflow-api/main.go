package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/lensflow/lensflow/pkg/cmd"
	"github.com/lensflow/lensflow/pkg/eventbus"
	"github.com/lensflow/lensflow/pkg/gateway"
	"github.com/lensflow/lensflow/pkg/jobs"
	"github.com/lensflow/lensflow/pkg/log"
	"github.com/lensflow/lensflow/pkg/pipeline"
	"github.com/lensflow/lensflow/pkg/registry"
	"github.com/lensflow/lensflow/pkg/schedule"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort        = 9090
	defaultGatewayPort = 9092
	defaultWorkers     = 4
	shutdownTimeout    = 30 * time.Second
)

func main() {
	command := &cli.Command{
		Name:                  "lensflow-api",
		Usage:                 "Register pipelines and run them as asynchronous jobs",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.IntFlag{
				Name:    "gateway-port",
				Usage:   "Port to run the WebSocket gateway on",
				Value:   defaultGatewayPort,
				Sources: cli.EnvVars("GATEWAY_PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Pipeline store location (directory or postgres:// URL)",
				Value:   "./data/pipelines",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "manifests-path",
				Usage:   "Path to the directory containing tool manifests",
				Value:   "./manifests",
				Sources: cli.EnvVars("MANIFESTS_PATH"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Number of job workers",
				Value:   defaultWorkers,
				Sources: cli.EnvVars("WORKERS"),
			},
			&cli.StringFlag{
				Name:    "queue",
				Usage:   "Job queue provider (memory, redis)",
				Value:   "memory",
				Sources: cli.EnvVars("QUEUE_PROVIDER"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the redis queue provider",
				Value:   "redis://localhost:6379",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "schedules-path",
				Usage:   "Path to the JSON file with scheduled pipeline runs",
				Value:   "./schedules.json",
				Sources: cli.EnvVars("SCHEDULES_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing Lensflow API")

	cat, err := cmd.NewCatalog(ctx, logger, command.String("manifests-path"))
	if err != nil {
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}

	st, err := cmd.NewStore(ctx, command.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	defer func() {
		if err := st.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close store", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), "lensflow-api", logger)
	if err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	emitter := eventbus.NewEmitter(logger, eventBus)
	defer emitter.Close()

	reg, err := registry.NewRegistry(ctx, logger, st, cat)
	if err != nil {
		return fmt.Errorf("failed to initialize registry: %w", err)
	}

	queue, err := newQueue(ctx, command)
	if err != nil {
		return fmt.Errorf("failed to initialize job queue: %w", err)
	}

	executor := pipeline.NewExecutor(logger, cat, emitter)
	manager := jobs.NewManager(logger, reg, executor, queue, emitter)

	manager.Start(command.Int("workers"))

	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := manager.Stop(stopCtx); err != nil {
			logger.Error("Failed to stop job manager", "error", err)
		}
	}()

	gw := gateway.NewGateway(logger, cat, manager)

	err = gw.RegisterHandlers(eventBus)
	if err != nil {
		return fmt.Errorf("failed to register gateway handlers: %w", err)
	}

	err = eventBus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	scheduler, err := newScheduler(logger, manager, command.String("schedules-path"))
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	scheduler.Start()
	defer scheduler.Stop()

	go serveGateway(logger, gw, command.Int("gateway-port"))

	api := NewAPI(logger, reg, manager, cat)

	return api.Start(command.Int("port"))
}

func newQueue(ctx context.Context, command *cli.Command) (jobs.Queue, error) {
	switch command.String("queue") {
	case "redis":
		return jobs.NewRedisQueue(ctx, command.String("redis-url"), "")
	case "memory", "":
		return jobs.NewMemoryQueue(0), nil
	default:
		return nil, fmt.Errorf("unsupported queue provider: %s", command.String("queue"))
	}
}

func newScheduler(logger *slog.Logger, manager *jobs.Manager, path string) (*schedule.Scheduler, error) {
	scheduler := schedule.NewScheduler(logger, manager)

	entries, err := schedule.LoadEntries(path)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		err = scheduler.Add(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule entry %s: %w", entry.ID, err)
		}
	}

	return scheduler, nil
}

func serveGateway(logger *slog.Logger, gw *gateway.Gateway, port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.Handler)

	addr := ":" + strconv.Itoa(port)
	logger.Info("Starting WebSocket gateway", "addr", addr)

	err := http.ListenAndServe(addr, mux)
	if err != nil {
		logger.Error("Gateway server stopped", "error", err)
	}
}
