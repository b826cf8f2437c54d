package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-takeout/internal/config"
	kafkax "github.com/ariefcatur/go-takeout/internal/kafka"
	"github.com/ariefcatur/go-takeout/internal/kitchen"
	"github.com/ariefcatur/go-takeout/internal/logx"
	"github.com/ariefcatur/go-takeout/internal/orders"
	"github.com/ariefcatur/go-takeout/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logx.New(cfg.KitchenGroup, cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	projector := kitchen.NewProjector(rdb, cfg.KitchenGroup, log)

	// Consumer
	topics := []string{orders.TopicOrderSubmitted, orders.TopicOrderStatus}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.KitchenGroup, topics, cfg.KitchenWorkers, log)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("kitchen consumer started", "action", "startup", "group", cfg.KitchenGroup,
			"topics", topics, "workers", cfg.KitchenWorkers)
		if err := cons.Start(ctx, projector.Handle); err != nil {
			log.Error("consumer exit", "action", "consume", "error", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info("shutting down consumer", "action", "shutdown")
	case <-ctx.Done():
	}
	cancel()
	<-done
}
