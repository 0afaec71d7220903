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

	"github.com/ariefcatur/go-order-events/internal/cart"
	"github.com/ariefcatur/go-order-events/internal/config"
	"github.com/ariefcatur/go-order-events/internal/httpx"
	kafkax "github.com/ariefcatur/go-order-events/internal/kafka"
	"github.com/ariefcatur/go-order-events/internal/logger"
	"github.com/ariefcatur/go-order-events/internal/metrics"
	"github.com/ariefcatur/go-order-events/internal/redisx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Printf("cart service: %v", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so every deferred Close runs.
func run() error {
	cfg, err := config.Load("cart-service", ":8080")
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

	m := metrics.NewRegistry("cart")

	// Kafka producer
	pub, err := kafkax.NewPublisher(cfg.Kafka, cfg.Publish.Policy(), lg, m)
	if err != nil {
		return fmt.Errorf("kafka publisher: %w", err)
	}
	defer pub.Close()

	// Redis (opsional)
	var cache httpx.StatusCache
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		sc := redisx.NewStatusCache(rdb, cfg.StatusCacheTTL)
		if err := sc.Ping(ctx); err != nil {
			lg.Warn("redis not reachable, status cache may miss", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cache = sc
	}

	budget := cfg.PublishBudget()
	svc := cart.NewService(cart.NewStore(lg), pub, lg, cart.WithPublishTimeout(budget))
	router := httpx.NewRouter(lg, m.Handler(), nil)
	h := httpx.NewCartHandler(svc, cache, budget, lg)
	h.Register(router)
	srv := httpx.NewServer(cfg.HTTPAddr, router, h.MutationTimeout())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.Duration("publish_budget", budget))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down...")
		// in-flight publishes may need their whole budget
		shutdownCtx, cancel := context.WithTimeout(context.Background(), budget+5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		lg.Error("cart service stopped with error", zap.Error(err))
		return err
	}
	return nil
}
