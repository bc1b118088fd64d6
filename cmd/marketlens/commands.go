package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"MarketLens/internal/api"
	"MarketLens/internal/config"
	"MarketLens/internal/model"
)

func newRootCmd() *cobra.Command {
	var cfgPath string
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:   "marketlens",
		Short: "MarketLens - indicator and returns engine for daily market data",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath == "" {
				cfgPath = "configs/config.yaml"
				if v := os.Getenv("CONFIG_PATH"); v != "" {
					cfgPath = v
				}
			}
			var err error
			if cfg, err = config.Load(cfgPath); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Configuration file path (default configs/config.yaml or $CONFIG_PATH)")

	rootCmd.AddCommand(newServeCmd(func() *config.Config { return cfg }))
	rootCmd.AddCommand(newAnalyzeCmd(func() *config.Config { return cfg }))
	rootCmd.AddCommand(newRefreshCmd(func() *config.Config { return cfg }))
	return rootCmd
}

func newServeCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled watchlist refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg())
		},
	}
}

func runServe(cfg *config.Config) error {
	log.Println("[INFO] MarketLens starting...")
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := a.newScheduler(ctx)
	if len(cfg.Watchlist.Symbols) > 0 {
		if err := sched.RegisterAll(cfg.Watchlist.RefreshCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		if os.Getenv("RUN_ON_START") == "true" {
			log.Println("[INFO] RUN_ON_START enabled, refreshing watchlist now")
			go sched.RunRefreshNow()
		}
	} else {
		log.Println("[WARN] watchlist is empty, scheduled refresh disabled")
	}

	if a.notifier != nil {
		go a.notifier.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	var an api.Analyzer
	if a.analyst != nil {
		an = a.analyst
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.SetupRoutes(api.NewHandler(a.collector, an, a.recorder, a.metrics)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] HTTP API listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Println("[INFO] shutdown signal received, stopping...")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] http shutdown: %v", err)
	}
	log.Println("[INFO] MarketLens stopped")
	return nil
}

func newAnalyzeCmd(cfg func() *config.Config) *cobra.Command {
	var start, end string
	var window, tail int

	cmd := &cobra.Command{
		Use:   "analyze SYMBOL [SYMBOL...]",
		Short: "Print indicators and relative returns for one or more symbols",
		Long: `Fetch daily bars, compute SMA, EMA, Bollinger bands and RSI, and print the newest rows.
Example: marketlens analyze AAPL MSFT --start=2024-01-01 --end=2024-06-28`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			endDate := time.Now()
			if end != "" {
				t, err := time.Parse(model.DateLayout, end)
				if err != nil {
					return fmt.Errorf("--end: %w", err)
				}
				endDate = t
			}
			startDate := endDate.AddDate(-api.DefaultLookbackYears, 0, 0)
			if start != "" {
				t, err := time.Parse(model.DateLayout, start)
				if err != nil {
					return fmt.Errorf("--start: %w", err)
				}
				startDate = t
			}

			a, err := buildApp(cfg())
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.collector.Collect(cmd.Context(), args, startDate, endDate, window)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderReport(rep, tail))
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Start date YYYY-MM-DD (default two years before end)")
	cmd.Flags().StringVar(&end, "end", "", "End date YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&window, "window", 0, "Indicator window (default from config)")
	cmd.Flags().IntVar(&tail, "tail", 10, "Number of newest rows to print")
	return cmd
}

func newRefreshCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the configured watchlist once: record, publish and notify",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cfg())
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.newScheduler(cmd.Context()).Refresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderReport(rep, 1))
			return nil
		},
	}
}
