package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/billifyhq/billify-backend/api/routes"
	"github.com/billifyhq/billify-backend/internal/invoices"
	"github.com/billifyhq/billify-backend/internal/payments"
	"github.com/billifyhq/billify-backend/pkg/config"
	"github.com/billifyhq/billify-backend/pkg/kv"
	"github.com/billifyhq/billify-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	invoiceRepo, err := invoices.NewRepository(store)
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice repository", err)
		os.Exit(1)
	}
	invoiceService, err := invoices.NewService(invoiceRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice service", err)
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
		Reporter:   invoiceService,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, store, invoiceService, paymentService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
