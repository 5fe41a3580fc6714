package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/isq-cli/internal/server"
	"github.com/sells-group/isq-cli/internal/workflow"
)

const (
	pruneInterval   = time.Hour
	shutdownTimeout = 30 * time.Second
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for the ISQ web UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port

		env, err := initService(ctx, "serve", false)
		if err != nil {
			return err
		}
		defer env.Close()

		api := server.New(ctx, env.Service, server.Config{CORSOrigins: cfg.Server.CORSOrigins})
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go pruneLoop(ctx, env.Service)

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		api.Wait()
		return nil
	},
}

// pruneLoop clears expired cached pages until ctx is done.
func pruneLoop(ctx context.Context, svc *workflow.Service) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		if _, err := svc.PruneCache(ctx); err != nil {
			zap.L().Warn("page cache prune failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
