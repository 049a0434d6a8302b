// Package main provides an interactive terminal client for agent runs.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/term"

	"github.com/tianyehedashu/ai-agent-sub002/internal/adapter/cache"
	"github.com/tianyehedashu/ai-agent-sub002/internal/adapter/stream"
	"github.com/tianyehedashu/ai-agent-sub002/internal/config"
	"github.com/tianyehedashu/ai-agent-sub002/internal/policy"
	"github.com/tianyehedashu/ai-agent-sub002/internal/repository"
	"github.com/tianyehedashu/ai-agent-sub002/internal/service"
	"github.com/tianyehedashu/ai-agent-sub002/internal/telemetry"
	uihttp "github.com/tianyehedashu/ai-agent-sub002/internal/transport/http"
)

func main() {
	sessionID := flag.String("session", "", "Session ID to continue (overrides SESSION_ID)")
	flag.Parse()

	log.SetFlags(log.Ltime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *sessionID != "" {
		cfg.SessionID = *sessionID
	}

	log.Printf("Backend: %s (transport=%s)", cfg.BackendURL, cfg.Transport)

	// Initialize timeline store
	db, err := store.NewSQLiteStore(cfg.TimelineDSN)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize transport
	var transport stream.Transport
	switch cfg.Transport {
	case config.TransportWS:
		transport = stream.NewWSClient(cfg.WSURL, cfg.WSHandshakeTimeout)
	default:
		transport = stream.NewSSEClient(cfg.BackendURL, cfg.RequestTimeout)
	}

	// Initialize cache invalidation
	var invalidator cache.Invalidator = cache.NewMemory()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse redis url: %v", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		invalidator = cache.NewRedis(client, "agentchat:", cfg.RedisChannel)
	}

	opts := service.Options{
		SessionID: cfg.SessionID,
		Cache:     invalidator,
		Telemetry: telemetry.New(),
	}

	// Initialize policy engine
	if cfg.InterruptPolicyFile != "" {
		engine, err := policy.LoadEngine(context.Background(), cfg.InterruptPolicyFile)
		if err != nil {
			log.Fatalf("Failed to initialize policy engine: %v", err)
		}
		opts.Decider = engine
	}

	out := newPrinter(os.Stdout)
	opts.Hooks = out.hooks()

	// Initialize service
	svc := service.New(transport, db, opts)

	// Start UI bridge
	var server *echo.Echo
	if cfg.UIPort > 0 {
		server = uihttp.NewServer(svc)
		go func() {
			addr := fmt.Sprintf(":%d", cfg.UIPort)
			if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start UI bridge: %v", err)
			}
		}()
		log.Printf("UI bridge started on port %d", cfg.UIPort)
	}

	// Handle Ctrl+C
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Println("Type a message and press Enter to send.")
		fmt.Println("Commands: /cancel /approve /reject /modify {json} /clear /session /quit")
	}

	r := &repl{svc: svc, out: out}
loop:
	for {
		if interactive {
			fmt.Print("> ")
		}
		select {
		case <-quit:
			fmt.Println("\nInterrupted")
			break loop
		case line, ok := <-lines:
			if !ok || !r.handle(line) {
				break loop
			}
		}
	}

	svc.CancelRequest()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Failed to shutdown UI bridge gracefully: %v", err)
		}
	}
}
