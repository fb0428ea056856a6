package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/cloudpanel/config"
	"example.com/cloudpanel/internal/cache"
	"example.com/cloudpanel/internal/cloudstack"
	"example.com/cloudpanel/internal/database"
	"example.com/cloudpanel/internal/messaging"
	"example.com/cloudpanel/internal/repository"
	"example.com/cloudpanel/internal/search"
	"example.com/cloudpanel/internal/service"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long: `Starts the background worker that drains platform job callbacks from
the service bus queue, reconciles async events stuck in flight, and
archives old inactive events into the audit index.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	// Connect to the database
	log.Info("Connecting to database...")
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	// Initialize Redis cache client
	log.Info("Connecting to Redis...")
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// Initialize messaging client
	log.Info("Connecting to message broker...")
	msgClient, err := messaging.NewClient(cfg.ServiceBus, "cloudpanel-worker")
	if err != nil {
		return err
	}
	defer msgClient.Close()

	// Initialize the audit indexer. The worker runs without it if
	// Elasticsearch is unreachable; archival retries on the next sweep.
	var indexer search.AuditIndexer
	elasticClient, err := search.NewElasticClient(cfg.Elastic, log)
	if err != nil {
		log.WithError(err).Warn("Failed to initialize Elasticsearch client, continuing without audit indexing")
	} else {
		indexer = elasticClient
	}

	// Create repositories
	repo, err := repository.NewRepository(db)
	if err != nil {
		return err
	}

	// Create the orchestration platform client
	platform := cloudstack.NewClient(cfg.CloudStack)

	// Create service with configuration
	svc, err := service.NewService(service.ServiceConfig{
		Repository:      repo,
		Cache:           redisClient,
		MessagingClient: msgClient,
		Platform:        platform,
		Logger:          log,
		JobQueueName:    cfg.ServiceBus.JobQueueName,
		EmailQueueName:  cfg.ServiceBus.EmailQueueName,
		WorkerCount:     cfg.Worker.Count,
		QueueSize:       cfg.Worker.QueueSize,
	})
	if err != nil {
		return err
	}

	reconcileEvery := time.Duration(cfg.Worker.ReconcileMinutes) * time.Minute
	archiveAfter := time.Duration(cfg.Worker.ArchiveAfterDays) * 24 * time.Hour
	sweepEvery := time.Duration(cfg.Worker.ArchiveSweepHours) * time.Hour

	// Replays go through the service's own correlator so reconciled outcomes
	// take the same path as queue-delivered callbacks
	reconciler := service.NewReconciler(repo, svc.Correlator(), platform, indexer, log, reconcileEvery, archiveAfter)

	// Start the job callback processor
	g.Go(func() error {
		log.WithField("queue", cfg.ServiceBus.JobQueueName).Info("Starting job callback processor")
		return svc.RunProcessor(ctx)
	})

	// Start the reconciliation and archival cron jobs as a fallback mechanism
	g.Go(func() error {
		log.Info("Starting reconciliation scheduler")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		// Re-poll stuck async jobs. Push delivery can miss; this is what
		// makes the ledger converge.
		_, err = scheduler.NewJob(
			gocron.DurationJob(reconcileEvery),
			gocron.NewTask(func() {
				log.Info("Running in-flight job reconciliation")
				if err := reconciler.ReconcileInFlight(ctx); err != nil {
					log.WithError(err).Error("Failed to reconcile in-flight jobs")
				}
			}),
		)
		if err != nil {
			return err
		}

		// Archive old inactive events into the audit index
		_, err = scheduler.NewJob(
			gocron.DurationJob(sweepEvery),
			gocron.NewTask(func() {
				log.Info("Running event archival sweep")
				if err := reconciler.ArchiveSweep(ctx); err != nil {
					log.WithError(err).Error("Failed to run archival sweep")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()

		return scheduler.Shutdown()
	})

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil && err != context.Canceled {
		log.WithError(err).Error("Worker error")
		return err
	}

	log.Info("Worker shutting down gracefully")
	return nil
}
