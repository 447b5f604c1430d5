package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dwcshop/order-engine/internal/config"
	kafkax "github.com/dwcshop/order-engine/internal/kafka"
	"github.com/dwcshop/order-engine/internal/lifecycle"
	"github.com/dwcshop/order-engine/internal/logging"
	"github.com/dwcshop/order-engine/internal/orders"
	"github.com/dwcshop/order-engine/internal/postgres"
	"github.com/dwcshop/order-engine/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logging.New(cfg.ServiceName + "-lifecycle")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &lifecycle.Service{
		Store:       &orders.Repo{DB: db},
		Redis:       rdb,
		Log:         log,
		ServiceName: cfg.ServiceName + "-lifecycle",
	}

	group := getenv("LIFECYCLE_GROUP", "order-lifecycle")
	workers := mustAtoi(os.Getenv("LIFECYCLE_WORKERS"), 4)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicPaymentResult, workers, log)

	go func() {
		log.Info("lifecycle consumer started",
			zap.String("group", group),
			zap.String("topic", orders.TopicPaymentResult),
			zap.Int("workers", workers),
		)
		if err := cons.Start(ctx, svc.HandlePaymentResult); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
