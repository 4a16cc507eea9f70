// README: Kiosk entry point; runs the console session against the configured stores and devices.
package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"farebox/internal/app"
	"farebox/internal/config"
	"farebox/internal/modules/location"
	"farebox/internal/reader"
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

	k := newKiosk(a, os.Stdin, os.Stdout)
	if cfg.Reader.Device != "" {
		f, err := os.Open(cfg.Reader.Device)
		if err != nil {
			log.Fatalf("open reader: %v", err)
		}
		defer f.Close()
		k.tags = reader.NewFromReader(f, cfg.Reader.Timeout)
	}

	if err := k.Run(ctx); err != nil {
		log.Printf("kiosk stopped err=%v", err)
	}
}

// newKiosk reads prompts from in; tags come from the same input unless a
// reader device replaces them.
func newKiosk(a *app.App, in io.Reader, out io.Writer) *Kiosk {
	input := location.NewReaderSource(in)
	return &Kiosk{
		input:   input,
		tags:    reader.New(input, a.Config.Reader.Timeout),
		out:     out,
		journey: a.Journey,
		ledger:  a.Ledger,
		admin:   a.Admin,
	}
}
