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

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/infrastructure/httpapi"
	"chat-relay/infrastructure/ws"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/projection"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/search"
	"chat-relay/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// The pattern keeps every defer (database close, index close) on the exit path
// and makes the wiring testable without touching os.Exit.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := config.CharacterRune()
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Search Index (Bluge)
	index, err := search.Open(config.BlugeFilepath, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open search index: %w", err)
	}
	defer func() {
		logger.Info("Closing search index...")
		_ = index.Close()
	}()

	// 4. Moderation
	var moderator *moderation.Moderator
	if config.EnableModeration {
		wordlists, err := moderation.LoadWordlists()
		if err != nil {
			return exitRuntime, fmt.Errorf("wordlist loading failed: %w", err)
		}
		moderator, err = moderation.NewModerator(wordlists.Words, charReplacement)
		if err != nil {
			return exitRuntime, fmt.Errorf("moderator init failed: %w", err)
		}
		logger.Info("Moderation enabled", "words", len(wordlists.Words), "languages", wordlists.Languages)
	}

	// 5. Repositories & Auth
	userRepository := repositories.NewUserRepository(db)
	channelRepository := repositories.NewChannelRepository(db)
	membershipRepository := repositories.NewMembershipRepository(db)
	messageRepository := repositories.NewMessageRepository(db, logger, config.PageSize)

	tokens := auth.NewTokenManager([]byte(config.AuthSecret), config.AuthIssuer, config.AuthTokenDuration)
	verifier := auth.NewIdentityVerifier(tokens, userRepository, logger)

	if err := bootstrapChannels(ctx, logger, channelRepository, config.ChannelNames()); err != nil {
		return exitRuntime, fmt.Errorf("channel bootstrap failed: %w", err)
	}

	// 6. Runtime Core
	stats := observability.NewStats()
	timeline := projection.NewTimeline(config.TimelineCapacity)
	registry := runtime.NewRegistry(verifier, logger)
	presence := runtime.NewPresenceTracker()
	coordinator := runtime.NewCoordinator(
		logger, registry, presence,
		membershipRepository, messageRepository,
		moderator, stats,
		timeline, search.NewSink(index, logger),
	)

	// 7. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 8. Supervised Workers
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(workers.NewHeartbeatWorker(logger, config.MetricInterval, coordinator.StatsSnapshot))
	go sup.Run(ctx)

	// 9. HTTP & Websocket Server
	authService := services.NewAuthService(userRepository, tokens)
	channelService := services.NewChannelService(channelRepository, membershipRepository)
	chatService := services.NewChatService(messageRepository, timeline, index)

	router := mux.NewRouter()
	api := httpapi.NewServer(logger, tokens, authService, channelService, chatService, coordinator)
	api.Register(router)
	router.Handle("/ws", ws.NewHandler(logger, coordinator, ws.Config{
		MaxMessageSize:  config.MaxMessageSize,
		AuthDeadline:    config.AuthDeadline,
		PongWait:        config.PongWait,
		WriteWait:       config.WriteWait,
		SendBufferSize:  config.SendBufferSize,
		DeliveryTimeout: config.DeliveryTimeout,
		AllowedOrigins:  config.AllowedOrigins,
	}))

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:    address,
		Handler: router,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 10. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 11. Final Cleanup (Graceful Shutdown)
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "err", err)
	}
	if sup.Cancel != nil {
		sup.Cancel()
	}
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

// bootstrapChannels creates the public default channels on first start.
// Existing channels are left alone, so the operation is idempotent.
func bootstrapChannels(ctx context.Context, logger *slog.Logger, channels repositories.IChannelRepository, names []string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		_, found, err := channels.FindByName(ctx, name)
		if err != nil {
			return err
		}
		if found {
			continue
		}
		channel, err := channels.Create(ctx, name, false, domain.UserID("system"))
		if err != nil {
			return err
		}
		logger.Info("Default channel created", "name", name, "id", channel.ID)
	}
	return nil
}
