package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	"github.com/filedrop/filedrop/pkg/api"
	"github.com/filedrop/filedrop/pkg/catalog"
	"github.com/filedrop/filedrop/pkg/config"
	"github.com/filedrop/filedrop/pkg/host"
	"github.com/filedrop/filedrop/pkg/logging"
	"github.com/filedrop/filedrop/pkg/pipeline"
	"github.com/filedrop/filedrop/pkg/store"
)

func main() {
	fs := afero.NewOsFs()
	logger := logging.New()
	cfg := config.Load(fs, logger)

	cat, err := catalog.Open(fs, cfg.DatabasePath(), logger)
	if err != nil {
		logger.Fatal("failed to open catalog", "error", err)
	}

	st := store.New(fs, cfg.StorageDir(), logger)
	pipe := pipeline.New(st, cat, logger)
	gateway := api.New(pipe, host.NewZenityDialog(logger), host.NewDesktopNotifier(logger), logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	gateway.RegisterRoutes(router)

	// the gateway serves the local shell only
	srv := &http.Server{
		Addr:    net.JoinHostPort("127.0.0.1", cfg.API.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("gateway listening", "addr", srv.Addr, "storage", cfg.StorageDir())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("gateway failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("gateway shutdown failed", "error", err)
	}

	if err := cat.Close(); err != nil {
		logger.Error("catalog close failed", "error", err)
	}
}
