package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/dqcheck/internal/server"
)

var (
	serveAddr    string
	serveNoLimit bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload UI and JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		opt, err := baseOptions(c)
		if err != nil {
			return err
		}
		sink, err := newSink(true)
		if err != nil {
			return err
		}
		defer sink.Close()

		addr := c.HTTPAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		rl := server.RateLimitConfig{RequestsPerSecond: c.RateLimitRPS, Burst: c.RateLimitBurst}
		if serveNoLimit {
			rl = server.RateLimitConfig{}
		}
		srv := server.New(server.Config{
			Addr:           addr,
			MaxUploadBytes: int64(c.MaxUploadMB) << 20,
			RateLimit:      rl,
		}, newAnalyzer(opt, true), sink, logger)

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")
			timeout := time.Duration(c.ShutdownTimeoutSec) * time.Second
			if timeout <= 0 {
				timeout = 10 * time.Second
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
			return nil
		})
		err = g.Wait()
		logger.Info("shutdown complete")
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config http_addr, :7860)")
	serveCmd.Flags().BoolVar(&serveNoLimit, "no-rate-limit", false, "disable per-client rate limiting")
}
