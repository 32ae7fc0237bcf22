package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"chat-relay/auth"
	"chat-relay/internal"
	"chat-relay/relay"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/server"
)

// Exit codes to provide meaningful status to the operating system or
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper. Its only responsibility
	// is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (like database cleanup)
// executes before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := internal.NewLogger(config.LogLevel)

	// 2. Durable stores
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("badger open: %w", err)
	}
	defer db.Close()

	userRepository := repositories.NewUserRepository(db)
	messageRepository := repositories.NewMessageRepository(db, logger)

	// 3. Live routing core
	registry := relay.NewRegistry()
	dispatcher := relay.NewDispatcher(logger, registry)
	router := relay.NewRouter(logger, registry, userRepository, messageRepository, dispatcher)

	validator := auth.NewTokenValidator(config.JWTSecret)
	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	httpServer := server.New(logger, addr, validator, router, userRepository,
		config.ConnectionBufferSize)

	// 4. Context & Signals
	// NotifyContext captures OS signals and cancels the context to
	// trigger a shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervision
	sup := runtime.NewSupervisor(logger)
	sup.Add(httpServer, runtime.NewStorageGCWorker(logger, db, config.StorageGCInterval))

	logger.Info("Starting relay", "addr", addr)
	sup.Run(ctx)
	logger.Info("Relay stopped")
	return exitOK, nil
}
