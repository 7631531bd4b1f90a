package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/zgsm-ai/llm-bridge/internal/bootstrap"
	"github.com/zgsm-ai/llm-bridge/internal/config"
	"github.com/zgsm-ai/llm-bridge/internal/handler"
	"github.com/zgsm-ai/llm-bridge/internal/logger"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP bridge",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	loader, c, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	svcCtx, err := bootstrap.NewServiceContext(c)
	if err != nil {
		return err
	}
	defer svcCtx.Stop()

	loader.Watch(func(updated config.Config) {
		if err := logger.SetLevel(updated.Log.Level); err != nil {
			logger.Warn("failed to apply log level", zap.Error(err))
		}
		if updated.Log.FilePath != c.Log.FilePath {
			logger.Warn("log file changes take effect after restart")
		}
		if updated.Provider != c.Provider || updated.Server != c.Server {
			logger.Warn("provider and server changes take effect after restart")
		}
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler.RegisterHandlers(router, svcCtx)

	server := &http.Server{
		Addr:              c.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
