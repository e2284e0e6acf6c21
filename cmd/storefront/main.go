package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopcore/storefront/internal/cache"
	"github.com/shopcore/storefront/internal/cart"
	"github.com/shopcore/storefront/internal/catalog"
	"github.com/shopcore/storefront/internal/checkout"
	"github.com/shopcore/storefront/internal/config"
	"github.com/shopcore/storefront/internal/db"
	"github.com/shopcore/storefront/internal/events"
	httpapi "github.com/shopcore/storefront/internal/http"
	"github.com/shopcore/storefront/internal/order"
	"github.com/shopcore/storefront/internal/stock"
)

func main() {
	cfg := config.Load()

	logger := log.New(os.Stdout, "["+cfg.ServiceName+"] ", log.LstdFlags|log.Lshortfile)

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatalf("migrations: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	// RabbitMQ is optional; without it orders are placed but no events go out.
	var publisher order.EventPublisher
	if cfg.RabbitURL != "" {
		conn, err := events.Dial(cfg.RabbitURL)
		if err != nil {
			logger.Fatalf("connect rabbitmq: %v", err)
		}
		defer conn.Close()

		pub, err := events.NewPublisher(conn)
		if err != nil {
			logger.Fatalf("init publisher: %v", err)
		}
		publisher = pub
	}

	// Redis is optional; without it status reads always hit Postgres.
	var statusCache order.StatusCache
	if cfg.RedisAddr != "" {
		sc := cache.NewStatusCache(cfg.RedisAddr)
		defer sc.Close()
		statusCache = sc
	}

	products := catalog.NewRepository(pool)
	ledger := stock.NewLedger(pool)
	carts := cart.NewPostgresRepository(pool)
	orders := order.NewPostgresRepository(pool, ledger)
	placer := checkout.NewRepository(pool, carts, products, ledger, orders)

	cartSvc := cart.NewService(carts, products, logger)
	orderSvc := order.NewService(placer, orders, publisher, statusCache, logger)

	router := httpapi.NewRouter(
		httpapi.NewCatalogHandler(products, ledger),
		httpapi.NewCartHandler(cartSvc),
		httpapi.NewOrderHandler(orderSvc),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		logger.Printf("%s listening on %s", cfg.ServiceName, cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
