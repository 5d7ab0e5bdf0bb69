package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain/variant"
	chiTransport "github.com/kailas-cloud/newsdex/internal/transport/chi"
	"github.com/kailas-cloud/newsdex/internal/version"
)

func newServeCmd(c *cli) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search and collection API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port > 0 {
				c.cfg.HTTP.Port = port
			}
			return c.serve(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Override http.port")
	return cmd
}

func (c *cli) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.logger.Info("Starting newsdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", c.env),
		zap.Int("http_port", c.cfg.HTTP.Port),
		zap.String("store", c.cfg.Store.Driver),
	)

	a, err := newApp(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.fit(ctx, a.embedders.Variants()...); err != nil {
		return err
	}

	server := chiTransport.NewServer(a.search, a.collections, a.health, chiTransport.Options{
		DefaultVariant:   variant.Variant(c.cfg.Search.DefaultVariant),
		SimilarThreshold: c.cfg.Search.SimilarThreshold,
	}, c.logger)

	addr := fmt.Sprintf(":%d", c.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, c.cfg.Auth.APIKeys, c.logger),
		ReadTimeout:  time.Duration(c.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(c.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		c.logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(c.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.logger.Error("Error during shutdown", zap.Error(err))
	}
	c.logger.Info("Server stopped gracefully")
	return nil
}
