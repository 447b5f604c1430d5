package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dwcshop/order-engine/internal/cart"
	"github.com/dwcshop/order-engine/internal/config"
	"github.com/dwcshop/order-engine/internal/httpx"
	kafkax "github.com/dwcshop/order-engine/internal/kafka"
	"github.com/dwcshop/order-engine/internal/logging"
	"github.com/dwcshop/order-engine/internal/orders"
	"github.com/dwcshop/order-engine/internal/payment"
	"github.com/dwcshop/order-engine/internal/postgres"
	"github.com/dwcshop/order-engine/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logging.New(cfg.ServiceName)
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

	createdProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, log)
	createdProd.Start(ctx)
	paymentProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentResult, 1024, log)
	paymentProd.Start(ctx)

	repo := &orders.Repo{DB: db}
	router := httpx.NewRouter(log)

	oh := &httpx.OrdersHandler{
		Store:    repo,
		Cart:     &cart.Repo{DB: db},
		Producer: createdProd,
		Redis:    rdb,
		Log:      log,
		Service:  cfg.ServiceName,
	}
	oh.Register(router)

	ph := &httpx.PaymentHandler{
		Store:     repo,
		Gateway:   payment.NewHTTPGateway(cfg.PaymentGatewayURL, cfg.PaymentAPIKey),
		Producer:  paymentProd,
		Redis:     rdb,
		Log:       log,
		Service:   cfg.ServiceName,
		ReturnURL: cfg.PaymentReturnURL,
		Currency:  cfg.PaymentCurrency,
	}
	ph.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	createdProd.Close()
	paymentProd.Close()
	cancel()
	createdProd.WaitClosed()
	paymentProd.WaitClosed()
}
