package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-clover-pos/app/service"
	"github.com/vibast-solutions/ms-go-clover-pos/config"
)

var (
	workerMode bool
)

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Run expiration-related commands",
}

var expirePendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Mark transaction logs stuck in pending as timed out",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"expire_pending",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ExpirePendingInterval },
			func(s *service.TerminalService, ctx context.Context) error {
				expired, err := s.RunExpirePendingBatch(ctx)
				logrus.WithField("job", "expire_pending").WithField("expired", expired).Debug("batch finished")
				return err
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(expireCmd)
	expireCmd.AddCommand(expirePendingCmd)

	expireCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.TerminalService, ctx context.Context) error,
) {
	cfg, svcs, cleanup := mustCreateServices()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), svcs.terminalService, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(svcs.terminalService, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	terminalService *service.TerminalService,
	fn func(s *service.TerminalService, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SkipIfStillRunning keeps a slow batch from overlapping the next tick.
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc("@every "+interval.String(), func() {
		runJob(name, func() error { return fn(terminalService, ctx) })
	}); err != nil {
		logrus.WithError(err).WithField("job", name).Fatal("invalid worker schedule")
	}

	runJob(name, func() error { return fn(terminalService, ctx) })
	scheduler.Start()
	logrus.WithField("job", name).WithField("interval", interval.String()).Info("Worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.WithField("job", name).Info("Worker shutdown requested")

	cancel()
	<-scheduler.Stop().Done()
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
