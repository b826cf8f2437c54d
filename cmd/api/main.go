package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-takeout/internal/address"
	"github.com/ariefcatur/go-takeout/internal/cart"
	"github.com/ariefcatur/go-takeout/internal/catalog"
	"github.com/ariefcatur/go-takeout/internal/config"
	"github.com/ariefcatur/go-takeout/internal/httpx"
	kafkax "github.com/ariefcatur/go-takeout/internal/kafka"
	"github.com/ariefcatur/go-takeout/internal/logx"
	"github.com/ariefcatur/go-takeout/internal/orders"
	"github.com/ariefcatur/go-takeout/internal/postgres"
	"github.com/ariefcatur/go-takeout/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logx.New(cfg.ServiceName, cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
	if err != nil {
		log.Error("db connect", "action", "startup", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	blobs := redisx.NewStore(rdb)

	// Kafka producers, one per topic
	submitted := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderSubmitted, 1024, log)
	submitted.Start(ctx)
	statuses := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatus, 1024, log)
	statuses.Start(ctx)

	// Services
	catalogStore := catalog.NewStore(db)
	menu := catalog.NewCache(blobs, catalogStore, cfg.CatalogTTL, log)
	orderSvc := orders.NewService(orders.NewStore(db), log)
	orderSvc.Submitted, orderSvc.StatusEvents = submitted, statuses
	orderSvc.Statuses = blobs
	orderSvc.Producer = cfg.ServiceName

	router := httpx.NewRouter()
	api := &httpx.API{
		Cart:      cart.NewService(cart.NewStore(db), log),
		Orders:    orderSvc,
		Menu:      menu,
		Addresses: address.NewService(address.NewStore(db), log),
		Catalog:   catalog.NewService(catalogStore, menu, log),
		Log:       log,
	}
	api.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("http listening", "action", "startup", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "action", "startup", "error", err)
			os.Exit(1)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down", "action", "shutdown")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	submitted.Close() // close inbox -> flush & close writer
	statuses.Close()
	submitted.WaitClosed()
	statuses.WaitClosed()
	cancel()
}
