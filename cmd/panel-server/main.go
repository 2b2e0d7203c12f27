package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/insightmill/panelcraft/internal/httpapi"
	"github.com/insightmill/panelcraft/internal/oracle"
	"github.com/insightmill/panelcraft/internal/store"
	"github.com/insightmill/panelcraft/internal/telemetry"
)

func main() {
	dbFlag := flag.String("db", "", "path to SQLite database file (overrides DB_PATH env var)")
	panelSize := flag.Int("panel-size", 0, "respondent count per published panel (default 500)")
	flag.Parse()

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	dbPath := *dbFlag
	if dbPath == "" {
		dbPath = os.Getenv("DB_PATH")
	}
	if dbPath == "" {
		dbPath = "./data/panelcraft.db"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "panel-server")
	if err != nil {
		log.Fatalf("telemetry setup: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	st, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("failed to initialize store (%s): %v", dbPath, err)
	}
	defer st.Close()
	log.Printf("using sqlite store at %s", dbPath)

	caller, err := oracle.NewAnthropicCallerFromEnv()
	if err != nil {
		log.Printf("oracle disabled, panels will use default distributions: %v", err)
	}

	var llm oracle.LLMCaller
	if caller != nil {
		llm = caller
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: httpapi.NewServer(st, llm, *panelSize),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("panel-server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
}
