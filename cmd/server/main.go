package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/manpreetbhatti/sketchrooms/internal/api"
	"github.com/manpreetbhatti/sketchrooms/internal/db"
	"github.com/manpreetbhatti/sketchrooms/internal/reclaim"
	"github.com/manpreetbhatti/sketchrooms/internal/room"
	"github.com/manpreetbhatti/sketchrooms/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine, the environment may be set directly
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	journal, err := db.New(config.JournalPath)
	if err != nil {
		return fmt.Errorf("journal opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing journal...")
		_ = journal.Close()
	}()

	registry := room.NewRegistry(room.Config{
		DefaultMaxUsers: config.DefaultMaxUsers,
		UndoBatchSize:   config.UndoBatchSize,
		ColorAttempts:   config.ColorAttempts,
		IDLength:        config.RoomIDLength,
	}, log, room.WithJournal(journal))

	origins := config.Origins()
	hub := ws.NewHub(registry, ws.Config{
		AllowedOrigins:    origins,
		MessagesPerSecond: config.MessagesPerSecond,
		MessageBurst:      config.MessageBurst,
	}, log)

	reclaimer := reclaim.New(registry, reclaim.Config{
		Interval: config.ReclaimInterval,
		MaxAge:   config.ReclaimMaxAge,
	}, func([]string) { hub.RefreshLobby() }, log)
	reclaimer.Start()
	defer reclaimer.Stop()

	router := api.CreateServer(origins)
	api.New(hub, registry, journal, log).Routes(router)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:    address,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Sketch rooms server listening", "address", address, "origins", origins, "journal", config.JournalPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to serve on %s: %w", address, err)
		}
	case <-ctx.Done():
		log.Info("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	hub.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("Server stopped")
	return nil
}
