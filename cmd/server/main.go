package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"github.com/Sirco-web/ttls/httpapi"
	"github.com/Sirco-web/ttls/moderation"
	"github.com/Sirco-web/ttls/observability"
	"github.com/Sirco-web/ttls/runtime"
	"github.com/Sirco-web/ttls/runtime/workers"
	"github.com/Sirco-web/ttls/speech"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle and
// centralizes error reporting, so defers execute on every exit path.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Core state
	monitor := observability.NewMonitor(log)
	registry := runtime.NewRegistry()
	orchestrator := runtime.NewOrchestrator(log, registry, monitor,
		config.PollTimeout, config.ClientTimeout,
		config.MaxNameLength, config.MaxMessageLength)

	if config.CensoredWordsFile != "" {
		words, err := loadWordlist(config.CensoredWordsFile)
		if err != nil {
			return fmt.Errorf("wordlist error: %w", err)
		}
		moderator, err := moderation.NewModerator(words, config.ModerationCharReplacement)
		if err != nil {
			return fmt.Errorf("moderation error: %w", err)
		}
		orchestrator.WithModerator(moderator)
		log.Info("moderation enabled", "words", len(words))
	}

	// 3. Speech collaborators
	converter := speech.NewConverter(config.FfmpegPath)
	transcriber := speech.NewTranscriber(log, converter,
		config.SttScript, config.SttLanguage, config.SttTimeout, int(config.MaxAudioBytes))
	synthesizer := speech.NewSynthesizer(log, config.TtsCommand, config.TtsTimeout, config.TtsMaxText)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Background workers
	sup := workers.NewSupervisor(log)
	sup.Add(
		workers.NewReaper(log, orchestrator, config.ReapInterval),
		workers.NewTelemetry(log, monitor, config.TelemetryInterval),
	)
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 6. HTTP server
	api := httpapi.NewServer(log, orchestrator, monitor,
		transcriber, synthesizer, config.StaticDir, config.MaxAudioBytes)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv := &http.Server{
		Addr:              address,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup: release parked polls first so in-flight requests
	// finish inside the shutdown window.
	orchestrator.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}

// loadWordlist reads one censored word per line, skipping blanks and
// '#' comments.
func loadWordlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words, scanner.Err()
}
