// Command catalog-proxy serves catalog reads and hover prefetches over HTTP,
// backed by the query cache and, optionally, a shared Redis.
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

	"github.com/dummy26/clothify/internal/config"
	"github.com/dummy26/clothify/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "catalog-proxy",
		Short: "Catalog read and prefetch proxy",
		Long: `catalog-proxy fronts the storefront catalog API.

GET /clothes reads the results of a full filter set through the query cache.
GET|POST /prefetch warms the results of the filter set a hovered option
would produce, so the following click is served from cache.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile, v)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logging.Setup(logging.FromStrings(cfg.LogLevel, cfg.LogPretty))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	flags.String("listen", "", "listen address (default :8080)")
	flags.String("api-url", "", "catalog API base url")
	flags.String("redis-addr", "", "Redis address for the shared cache; empty disables Redis")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.Bool("log-pretty", false, "human-readable console logs")

	v.BindPFlag("listen_addr", flags.Lookup("listen"))
	v.BindPFlag("api_base_url", flags.Lookup("api-url"))
	v.BindPFlag("redis_addr", flags.Lookup("redis-addr"))
	v.BindPFlag("log_level", flags.Lookup("log-level"))
	v.BindPFlag("log_pretty", flags.Lookup("log-pretty"))

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.NewLogger(logging.ComponentProxy)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	}

	srv, err := newServer(cfg, redisClient)
	if err != nil {
		return err
	}
	go srv.collectLoop(ctx, cfg.GCTime)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.ListenAddr).
			Str("api", cfg.APIBaseURL).
			Bool("redis", redisClient != nil).
			Msg("Starting catalog proxy")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
