package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/billifyhq/billify-backend/internal/billing"
	"github.com/billifyhq/billify-backend/internal/cron"
	"github.com/billifyhq/billify-backend/internal/directory"
	"github.com/billifyhq/billify-backend/internal/invoices"
	"github.com/billifyhq/billify-backend/internal/notify"
	"github.com/billifyhq/billify-backend/internal/payments"
	"github.com/billifyhq/billify-backend/pkg/config"
	"github.com/billifyhq/billify-backend/pkg/kv"
	"github.com/billifyhq/billify-backend/pkg/logger"
	"github.com/billifyhq/billify-backend/pkg/metrics"
)

const lockKeyFormat = "billify:cron-worker:lock:%s:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	store, err := kv.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap record store", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(context.Background(), "error closing record store", err)
		}
	}()

	directoryClient, err := directory.NewClient(cfg.Directory, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create directory client", err)
		os.Exit(1)
	}
	notifyClient, err := notify.NewClient(cfg.Notifications, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification client", err)
		os.Exit(1)
	}
	invoiceClient, err := invoices.NewClient(cfg.Invoices, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice client", err)
		os.Exit(1)
	}

	paymentRepo, err := payments.NewRepository(store)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment repository", err)
		os.Exit(1)
	}
	paymentService, err := payments.NewService(payments.ServiceParams{
		Repository: paymentRepo,
		Gateway:    payments.NewAutoApproveGateway(),
		Reporter:   invoiceClient,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	billingJob, err := billing.NewJob(billing.JobParams{
		Logger:    logg,
		Directory: directoryClient,
		Invoices:  invoiceClient,
		Notifier:  notifyClient,
		Locker:    store,
		Metrics:   metricsCollector,
		Workers:   cfg.Billing.Workers,
		LockTTL:   cfg.Billing.CustomerLockTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing job", err)
		os.Exit(1)
	}
	retryJob, err := payments.NewRetryJob(payments.RetryJobParams{
		Logger:    logg,
		Invoices:  invoiceClient,
		History:   paymentService,
		Processor: paymentService,
		Metrics:   metricsCollector,
		Workers:   cfg.PaymentRetry.Workers,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment retry job", err)
		os.Exit(1)
	}

	billingLock, err := cron.NewStoreLock(store, lockKey(cfg.App.Env, billingJob.Name()), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create billing lock", err)
		os.Exit(1)
	}
	retryLock, err := cron.NewStoreLock(store, lockKey(cfg.App.Env, retryJob.Name()), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create retry lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(
		cron.Entry{Job: billingJob, Interval: cfg.Billing.Interval, Lock: billingLock},
		cron.Entry{Job: retryJob, Interval: cfg.PaymentRetry.Interval, Lock: retryLock},
	)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env, job string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env, job)
}
