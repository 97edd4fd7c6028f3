package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rudransh-shrivastava/peer-drop/internal/config"
	"github.com/rudransh-shrivastava/peer-drop/internal/coordinator"
	"github.com/rudransh-shrivastava/peer-drop/internal/logger"
)

func main() {
	log := logger.NewLogger()

	cfg, err := config.Load(".")
	if err != nil {
		log.Error("loading config", "err", err)
		os.Exit(1)
	}

	state := coordinator.NewState(
		coordinator.WithChallengeTimeout(cfg.Coordinator.ChallengeTimeout),
	)

	srv, err := coordinator.NewServer(cfg.Coordinator, state, log)
	if err != nil {
		log.Error("starting coordinator", "err", err)
		os.Exit(1)
	}

	api := coordinator.NewAPI(state, cfg.Coordinator.PublicURL, log)
	go func() {
		log.Info("http api listening", "addr", cfg.Coordinator.HTTPAddr)
		if err := http.ListenAndServe(cfg.Coordinator.HTTPAddr, api.Router()); err != nil {
			log.Error("http api stopped", "err", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down")
		cancel()
		srv.Shutdown()
	}()

	if err := srv.Start(ctx); err != nil {
		log.Error("coordinator stopped", "err", err)
		os.Exit(1)
	}
}
