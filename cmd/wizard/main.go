package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"whatswizard/internal/adapters/console"
	"whatswizard/internal/adapters/media"
	"whatswizard/internal/broadcast"
	"whatswizard/internal/config"
	"whatswizard/internal/core/domain"
	"whatswizard/internal/core/ports"
	"whatswizard/internal/qr"
	"whatswizard/internal/queue"
	"whatswizard/internal/service"
	"whatswizard/internal/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Chat bot that downloads social media behind shared links",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; environment variables may be set directly
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found")
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		return run(cfg)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue depth and recent downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		return status(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to YAML config (optional)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if err := os.MkdirAll(cfg.PublicDir, 0o755); err != nil {
		return fmt.Errorf("create public directory: %w", err)
	}

	recordStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer recordStore.Close()

	jobQueue, err := openQueue(cfg)
	if err != nil {
		return err
	}
	defer jobQueue.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// this process owns the single consumer, so it alone may return
	// crash-stranded jobs to the pending pool
	if sq, ok := jobQueue.(*queue.SQLiteQueue); ok {
		if err := sq.Recover(ctx); err != nil {
			return err
		}
	}

	executor := media.NewDefaultExecutor(cfg.YtDlpPath, cfg.MediaDir)
	worker := queue.NewWorker(jobQueue, executor, recordStore, logger, cfg.DownloadTimeout)

	bus := broadcast.New[domain.StatusEvent]()
	qrWriter := qr.NewWriter(cfg.QRCodePath)
	defer func() {
		if err := qrWriter.Remove(); err != nil {
			logger.Printf("cleanup: %v", err)
		}
	}()

	client := console.New(os.Stdin, os.Stdout, logger)
	ingest := service.NewIngest(jobQueue, logger)
	session := service.NewSession(client, bus, qrWriter, ingest, logger, cfg.PollInterval)
	correlator := service.NewCorrelator(client, logger)

	// log status broadcasts the way an external observer would see them
	sub, unsubscribe := bus.Subscribe()
	defer unsubscribe()
	go func() {
		for ev := range sub {
			switch ev.Type {
			case domain.StatusQR:
				logger.Printf("[STATUS] qr updated (%d bytes)", len(ev.QR))
			default:
				logger.Printf("[STATUS] %s: auth=%t unread=%d", ev.Type, ev.Stats.IsAuthenticated, ev.Stats.UnreadChats)
			}
		}
	}()

	go worker.Run(ctx)
	go correlator.Run(ctx, worker.Events())
	go client.Run(ctx)

	logger.Printf("wizard running, queue backend %s, store backend %s", cfg.QueueBackend, cfg.StoreBackend)
	session.Run(ctx)
	logger.Println("shutting down")
	return nil
}

func status(ctx context.Context, cfg config.Config) error {
	recordStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer recordStore.Close()

	if cfg.QueueBackend != config.BackendMemory {
		jobQueue, err := openQueue(cfg)
		if err != nil {
			return err
		}
		defer jobQueue.Close()
		n, err := jobQueue.Count(ctx)
		if err != nil {
			return fmt.Errorf("queue count: %w", err)
		}
		fmt.Printf("Queued jobs:   %d\n", n)
	} else {
		fmt.Println("Queued jobs:   n/a (memory queue is per-process)")
	}

	recs, err := recordStore.RecentRecords(ctx, 10)
	if err != nil {
		return err
	}
	fmt.Printf("Recent downloads (%d):\n", len(recs))
	for _, rec := range recs {
		fmt.Printf("  %s  %-10s  %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Platform, rec.URL)
	}
	return nil
}

func openStore(cfg config.Config) (ports.RecordStore, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return store.NewPostgresStore(context.Background(), cfg.PostgresURL)
	default:
		return store.NewSQLiteStore(cfg.SQLitePath)
	}
}

func openQueue(cfg config.Config) (ports.JobQueue, error) {
	switch cfg.QueueBackend {
	case config.BackendSQLite:
		return queue.NewSQLiteQueue(cfg.SQLitePath)
	case config.BackendRedis:
		return queue.NewRedisQueue(cfg.RedisAddr, "wizard:downloads"), nil
	default:
		return queue.NewMemoryQueue(0), nil
	}
}
