package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"stationery-storefront/internal/config"
	"stationery-storefront/internal/logger"
	"stationery-storefront/internal/storefront"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

type globalOptions struct {
	apiURL   string
	token    string
	timeout  time.Duration
	logLevel string

	// CHECKOUT_* settings shared with the API server.
	checkout config.Checkout
}

func (o *globalOptions) pollPolicy() storefront.PollPolicy {
	return storefront.PollPolicy{
		Interval:    o.checkout.PollInterval,
		MaxAttempts: o.checkout.PollMaxAttempts,
		MaxElapsed:  o.checkout.PollMaxElapsed,
	}
}

func (o *globalOptions) client() *storefront.Client {
	c := storefront.NewClient(o.apiURL, o.timeout)
	if o.token != "" {
		c = c.WithToken(o.token)
	}
	return c
}

func (o *globalOptions) logger() *slog.Logger {
	return logger.NewWithWriter(config.Log{Level: o.logLevel, Format: "text"}, os.Stderr)
}

func main() {
	_ = godotenv.Load()

	opts := &globalOptions{}
	if err := env.ParseWithOptions(&opts.checkout, env.Options{Prefix: "CHECKOUT_"}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse checkout config: %v\n", err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:           "storefrontctl",
		Short:         "Buyer-side checkout tool for the stationery storefront API",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api", envOr("STOREFRONT_API", "http://localhost:8080"), "Storefront API base url")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("STOREFRONT_TOKEN"), "Bearer token for buyer routes")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "Per-request timeout")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(productsCmd(opts))
	rootCmd.AddCommand(checkoutCmd(opts))
	rootCmd.AddCommand(statusCmd(opts))
	rootCmd.AddCommand(verifyPayPalCmd(opts))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
