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

	"github.com/ariefcatur/go-order-events/internal/config"
	"github.com/ariefcatur/go-order-events/internal/httpx"
	kafkax "github.com/ariefcatur/go-order-events/internal/kafka"
	"github.com/ariefcatur/go-order-events/internal/logger"
	"github.com/ariefcatur/go-order-events/internal/metrics"
	"github.com/ariefcatur/go-order-events/internal/tracking"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Printf("orders service: %v", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so the consumer leaves its group and the
// logger is flushed.
func run() error {
	cfg, err := config.Load("orders-service", ":8081")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	lg, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = lg.Sync() }()
	lg = lg.With(zap.String("service", cfg.ServiceName))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewRegistry("orders")
	topics := cfg.Kafka.Topics()
	store := tracking.NewStore(topics, lg)
	cons := kafkax.NewConsumer(cfg.Kafka, cfg.Consume.Policy(), store, lg, m)

	health := func() (bool, map[string]string) {
		s := cons.State()
		return s != kafkax.StateStopped, map[string]string{"consumer": s.String()}
	}
	router := httpx.NewRouter(lg, m.Handler(), health)
	httpx.NewOrdersHandler(store, topics, lg).Register(router)
	srv := httpx.NewServer(cfg.HTTPAddr, router, httpx.DefaultRequestTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("order consumer started",
			zap.String("group", cfg.Kafka.ConsumerGroup),
			zap.Strings("topics", topics.All()),
		)
		return cons.Run(gctx)
	})
	g.Go(func() error {
		lg.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		lg.Error("orders service stopped with error", zap.Error(err))
		return err
	}
	return nil
}
