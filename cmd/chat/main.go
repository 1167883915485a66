package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"vanish-chat/auth"
	"vanish-chat/internal"
	"vanish-chat/moderation"
	"vanish-chat/repositories"
	"vanish-chat/runtime"
	"vanish-chat/runtime/workers"
	"vanish-chat/search"
	"vanish-chat/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires all components and owns the process lifecycle, so deferred
// cleanups (database close, index close) execute on every exit path.
func run() error {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories & services
	messageRepository := repositories.NewMessageRepository(db, log)
	userRepository := repositories.NewUserRepository(db)

	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(userRepository, tokens)
	defer authService.Sessions().Close()

	censorRune, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	redactor, err := moderation.NewRedactor(config.RedactedWordList(), censorRune)
	if err != nil {
		return fmt.Errorf("redactor setup failed: %w", err)
	}
	chatService := services.NewChatService(log, messageRepository, redactor, config.VanishAfter)

	index, err := search.NewMessageIndex(log)
	if err != nil {
		return fmt.Errorf("search index setup failed: %w", err)
	}
	defer func() { _ = index.Close() }()

	// 4. Context & signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Sync machinery under the root supervisor
	view := NewConsoleView(os.Stdout)
	coordinator := runtime.NewCoordinator(
		log, messageRepository, authService.Sessions(),
		config.SinkTimeout, config.RestartInterval,
		config.DeleteRetryMax, config.DeleteRetryBase,
		view, index,
	)

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(coordinator, workers.NewTelemetryWorker(log, config.TelemetryInterval))
	go sup.Run(ctx)

	// 6. Interactive client loop (blocks until /quit or signal)
	cli := NewCLI(log, authService, chatService, index, config.SearchLimit)
	cli.Run(ctx)

	sup.Stop()
	return nil
}
