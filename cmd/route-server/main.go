package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/natevvv/snaproute/internal/config"
	"github.com/natevvv/snaproute/internal/network"
	"github.com/natevvv/snaproute/pkg/server/openapi_server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configFile := flag.String("config", "", "YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatal(err)
	}
	logger := cfg.Log.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service := openapi_server.NewDefaultApiService(logger)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      openapi_server.NewHandler(logger, cfg.Server.AllowedOrigins, openapi_server.NewDefaultApiController(service)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	group, ctx := errgroup.WithContext(ctx)

	// the server answers 503 until the network is published
	group.Go(func() error {
		n, err := network.Open(cfg, logger)
		if err != nil {
			return err
		}
		return service.SetNetwork(&openapi_server.Network{Router: n.Router, Search: n.Search})
	})

	group.Go(func() error {
		logger.WithField("addr", cfg.Server.Addr).Info("route server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.WithError(err).Fatal("route server stopped")
	}
	logger.Info("route server stopped")
}
