package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lanepos/backend/internal/catalog"
	"lanepos/backend/internal/checkout"
	"lanepos/backend/internal/config"
	"lanepos/backend/internal/events"
	"lanepos/backend/internal/httpapi"
	"lanepos/backend/internal/journal"
	jmemory "lanepos/backend/internal/journal/memory"
	jpostgres "lanepos/backend/internal/journal/postgres"
	"lanepos/backend/internal/salesapi"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var jrnl journal.Store
	closers := make([]func() error, 0, 3)

	if cfg.DatabaseURL != "" {
		pg, err := jpostgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		jrnl = pg
		closers = append(closers, pg.Close)
		log.Println("journal: postgres")
	} else {
		jrnl = jmemory.NewSeeded()
		log.Println("journal: in-memory")
	}

	var gateway catalog.Gateway
	if cfg.CatalogBaseURL != "" {
		gateway = catalog.NewHTTPClient(cfg.CatalogBaseURL, 5*time.Second)
		log.Println("catalog: http")
	} else {
		gateway = catalog.NewSeeded()
		log.Println("catalog: in-memory seed")
	}

	productCache := catalog.ProductCache(catalog.NoopProductCache{})
	if cfg.RedisAddr != "" {
		redisCache := catalog.NewRedisProductCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			productCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("product cache: redis")
		}
	} else {
		log.Println("product cache: noop")
	}
	gateway = catalog.NewCachedGateway(gateway, productCache, time.Duration(cfg.CatalogCacheTTLSecs)*time.Second)

	var sales salesapi.Client
	if cfg.SalesBaseURL != "" {
		sales = salesapi.NewHTTPClient(cfg.SalesBaseURL, 10*time.Second)
		log.Println("sale store: http")
	} else {
		sales = salesapi.NewMemoryClient()
		log.Println("sale store: in-memory")
	}

	publisher := events.Publisher(events.NoopPublisher{})
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaSaleTopic)
		publisher = kafkaPub
		closers = append(closers, kafkaPub.Close)
		log.Println("sale events: kafka")
	} else {
		log.Println("sale events: noop")
	}

	engine := checkout.NewEngine(gateway, sales, jrnl, publisher, time.Duration(cfg.ScanCooldownMS)*time.Millisecond)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, jrnl)
	api := httpapi.New(engine, gateway, sales, jrnl, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("checkout backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
