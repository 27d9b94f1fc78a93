package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hirableedge/go-auth"
	"github.com/hirableedge/go-auth/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	var logger auth.Logger = auth.NewLevelLogger("hirable-auth", cfg.Log.Level, cfg.Log.Format)
	logger.Debug("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger auth.Logger) error {
	srv, err := newServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTP.Addr, "driver", cfg.DB.Driver)
		errc <- srv.http.Serve(cfg.HTTP.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	grace := time.Duration(cfg.HTTP.ShutdownGrace) * time.Second
	logger.Info("shutting down", "grace", grace.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return srv.http.Shutdown(shutdownCtx)
}
