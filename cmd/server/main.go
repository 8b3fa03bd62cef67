/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the hours bank server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Wire domain services (ledger, approvals, aggregator, identity, reports)
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port        HTTP server port (default: 8080)
  -db          SQLite database path (default: hoursbank.db)
               Use ":memory:" for an in-memory database
  -jwt-secret  HS256 signing secret for the bundled token verifier
  -genai-key   Generative-language API key (reports return 502 without it)
  -github-token  Optional GitHub token for commit prefill

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/hoursbank.db" -jwt-secret="change-me"

  # Run with in-memory database
  ./server -db=":memory:" -jwt-secret="dev"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/hours-bank/api"
	"github.com/warp/hours-bank/hours"
	"github.com/warp/hours-bank/identity"
	"github.com/warp/hours-bank/reports"
	"github.com/warp/hours-bank/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "hoursbank.db", "SQLite database path")
	jwtSecret := flag.String("jwt-secret", "", "HS256 signing secret for dev tokens")
	genaiKey := flag.String("genai-key", "", "Generative-language API key")
	githubToken := flag.String("github-token", "", "GitHub token for commit prefill")
	flag.Parse()

	if *jwtSecret == "" {
		log.Fatal("A -jwt-secret is required")
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Domain services
	ledger := hours.NewTimeLedger(store)
	aggregator := hours.NewAggregator(store)
	approvals := hours.NewApprovalService(store, aggregator, store)

	tokens := identity.NewTokenService(*jwtSecret, 24*time.Hour)
	idService := identity.NewService(store, tokens)

	reportService := reports.NewService(store, aggregator, store,
		reports.NewGenAIClient(*genaiKey, ""), store)
	prefill := &reports.CommitPrefill{
		Source:   reports.NewGitHubClient(*githubToken),
		Settings: store,
	}

	// HTTP layer
	handler := &api.Handler{
		Ledger:     ledger,
		Approvals:  approvals,
		Aggregator: aggregator,
		Identity:   idService,
		Tokens:     tokens,
		Users:      store,
		Reports:    reportService,
		Prefill:    prefill,
		Settings:   store,
	}
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
