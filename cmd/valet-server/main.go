package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	server "github.com/valethq/valet/internal"
	"github.com/valethq/valet/internal/agent"
	"github.com/valethq/valet/internal/capability"
	"github.com/valethq/valet/internal/config"
	"github.com/valethq/valet/internal/engine"
	"github.com/valethq/valet/internal/eventbus"
	"github.com/valethq/valet/internal/netprobe"
	"github.com/valethq/valet/internal/recovery"
	"github.com/valethq/valet/internal/settings"
	"github.com/valethq/valet/internal/task"
	taskrepo "github.com/valethq/valet/internal/task/repositoryimpl"
	"github.com/valethq/valet/pkg/clog"
	"github.com/valethq/valet/pkg/panicerr"
	"github.com/valethq/valet/pkg/storage"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup storage
	var store storage.Storage
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		store, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}

	// Setup event bus and repositories
	bus := eventbus.New()
	taskRepo := taskrepo.NewYAMLRepository(store)

	// Setup connectivity probe and external capability clients
	prober := netprobe.NewDialProber(env.ProbeAddr, env.ProbeTimeout)
	llm := capability.NewOllamaClient(env.LLMBaseURL, env.LLMTimeout)
	calendar := capability.NewGoogleCalendar(env.GoogleBaseURL, env.AccessToken)
	mail := capability.NewGoogleMail(env.GoogleBaseURL, env.AccessToken)
	meetings := capability.NewGoogleMeet(env.MeetBaseURL, env.AccessToken)
	classroom := capability.NewGoogleClassroom(env.GoogleBaseURL, env.AccessToken)

	// Setup agent registry
	registry := agent.NewRegistry(
		agent.NewCalendarCard(calendar, llm, prober, env.FastModel),
		agent.NewMailCard(mail, llm, prober, env.FastModel, env.SmartModel),
		agent.NewMeetCard(meetings, llm, prober, env.FastModel),
		agent.NewClassroomCard(classroom, llm, prober, env.FastModel),
	)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Setup settings, engine, recovery monitor
	settingsService := settings.NewService(env.SettingsPath)
	eng := engine.New(ctx, taskRepo, registry, prober, bus, llm, settingsService, env.FastModel, env.SmartModel)
	monitor := recovery.New(taskRepo, prober, eng, env.RecoveryInterval)

	// Setup servers
	taskServer := task.NewServer(taskRepo, eng)
	settingsServer := settings.NewServer(settingsService)
	srv := server.NewServer(env, taskServer, settingsServer)

	go func() {
		if err := panicerr.SafeContext(func(ctx context.Context) error {
			return eventbus.RunLogger(ctx, bus)
		})(ctx); err != nil && err != context.Canceled {
			slog.Error("event logger error", "error", err)
		}
	}()
	go func() {
		if err := panicerr.SafeContext(monitor.Run)(ctx); err != nil && err != context.Canceled {
			slog.Error("recovery monitor error", "error", err)
		}
	}()
	go func() {
		if err := panicerr.SafeContext(settingsService.Watch)(ctx); err != nil && err != context.Canceled {
			slog.Error("settings watcher error", "error", err)
		}
	}()
	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	// Give in-flight requests and task executions time to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	eng.Wait()
}
