package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"lan-chat/auth"
	"lan-chat/infrastructure/http/server"
	"lan-chat/internal"
	"lan-chat/moderation"
	"lan-chat/observability"
	"lan-chat/repositories"
	"lan-chat/runtime"
	"lan-chat/runtime/workers"
	"lan-chat/services"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes
// error reporting, so every defer executes before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := observability.LoggerFromString(config.LogLevel)

	ctx := context.Background()

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	if err := os.MkdirAll(config.UploadDir, 0o755); err != nil {
		return exitRuntime, fmt.Errorf("failed to create upload dir: %w", err)
	}

	monitoring := observability.NewMonitoringManager()

	if logger.Enabled(ctx, slog.LevelDebug) && config.DebugPort > 0 {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		internal.StartDebugServer(db, config.DebugPort, endpoint, internal.MessageMapper, statsProvider(monitoring))
	}

	// 3. Room engine
	messageRepository, err := repositories.NewMessageRepository(db, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to init message repository: %w", err)
	}
	defer func() { _ = messageRepository.Close() }()

	credentialRepository := repositories.NewCredentialRepository(db)
	searchIndex := repositories.NewSearchIndex(blugeWriter, logger)

	censored, err := runtime.LoadEmbeddedCensoredWords()
	if err != nil {
		return exitConfig, fmt.Errorf("failed to load censored words: %w", err)
	}
	logger.Info(fmt.Sprintf("%d unique censored words loaded", len(censored.Words)), "languages", censored.Languages)

	moderator, err := moderation.NewModerator(censored.Words, charReplacement)
	if err != nil {
		return exitConfig, fmt.Errorf("failed to build moderator: %w", err)
	}

	registry := runtime.NewRegistry()
	hub := runtime.NewHub(logger, registry, messageRepository, searchIndex, &moderator, monitoring,
		config.BufferSize, config.LimitMessages)

	sup := workers.NewSupervisor(logger, config.RestartInterval).
		Add(hub, workers.NewHeartbeatWorker(logger, monitoring, config.MetricInterval))

	// 4. Services & HTTP surface
	issuer := auth.NewTokenIssuer([]byte(config.SessionKey), config.AuthTokenDuration)
	authService := services.NewAuthService(credentialRepository, issuer, logger)
	chatService := services.NewChatService(hub, messageRepository, searchIndex)

	handler := server.NewHandler(logger, authService, chatService, monitoring,
		config.UploadDir, config.AuthTokenDuration, config.LimitMessages)
	wsHandler := server.NewWsHandler(logger, authService, chatService, config.ConnectionBufferSize)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           server.NewRouter(handler, wsHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 2)

	go func() {
		logger.Info("Starting room engine...")
		sup.Run(ctx)
	}()

	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 7. Graceful Shutdown
	// Active connections get a bounded window to drain before the stores close.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "err", err)
	}
	sup.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

func statsProvider(monitoring *observability.MonitoringManager) internal.StatsProvider {
	return func() map[string]any {
		stats := monitoring.GetLatest()
		return map[string]any{
			"online_sessions":    stats.OnlineSessions,
			"messages_persisted": stats.MessagesPersisted,
			"events_fanned":      stats.EventsFanned,
			"events_dropped":     stats.EventsDropped,
			"storage_errors":     stats.StorageErrors,
			"files_shared":       stats.FilesShared,
		}
	}
}
