// README: Entry point; loads config, wires services and serves the HTTP API until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"farebox/internal/app"
	"farebox/internal/config"
	httptransport "farebox/internal/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer a.Close()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	deps := httptransport.ServerDeps{
		Journey: a.Journey,
		Ledger:  a.Ledger,
		Admin:   a.Admin,
		Metrics: a.Metrics,
	}
	if a.History != nil {
		deps.History = a.History
	}
	handler := httptransport.NewServer(deps)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown err=%v", err)
		}
	}()

	log.Printf("farebox api listening addr=%s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
