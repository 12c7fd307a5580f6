package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assent/internal/admin"
	"assent/internal/audit"
	"assent/internal/catalog"
	"assent/internal/geolocation"
	idstore "assent/internal/identity/store"
	"assent/internal/overlay"
	"assent/internal/platform/config"
	"assent/internal/platform/httpserver"
	"assent/internal/platform/logger"
	"assent/internal/platform/metrics"
	platformredis "assent/internal/platform/redis"
	"assent/internal/recorder"
	"assent/internal/session"
	httptransport "assent/internal/transport/http"
)

// main wires configuration, storage backends and the HTTP surface, then owns
// the server lifecycle. Business logic lives in the internal packages.
func main() {
	configPath := flag.String("config", os.Getenv("ASSENT_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging)
	m := metrics.New()

	ctx := context.Background()

	// Device identity backend. The cookie backend keeps records on the
	// client and needs no server state; the redis backend keys them by an
	// opaque device token.
	var sharedSlot idstore.Slot
	var redisClient *platformredis.Client
	switch cfg.Identity.Backend {
	case "cookie":
	case "redis":
		redisClient, err = platformredis.New(cfg.Redis)
		if err != nil {
			log.Error("redis connect failed", "error", err)
			os.Exit(1)
		}
		if redisClient == nil {
			log.Error("identity backend \"redis\" requires redis.url")
			os.Exit(1)
		}
		sharedSlot = idstore.NewRedisSlot(redisClient.Client)
	default:
		log.Error("unknown identity backend", "backend", cfg.Identity.Backend)
		os.Exit(1)
	}

	trail, auditDB, err := openAuditStore(ctx, cfg, log)
	if err != nil {
		log.Error("audit store init failed", "error", err)
		os.Exit(1)
	}

	auditOpts := []audit.Option{audit.WithAsyncBuffer(cfg.Audit.BufferSize)}
	var sink *audit.KafkaSink
	if cfg.Kafka.Enabled {
		sink, err = audit.NewKafkaSink(cfg.Kafka, log)
		if err != nil {
			log.Error("kafka sink init failed", "error", err)
			os.Exit(1)
		}
		if err := sink.EnsureTopic(ctx, 1, 1); err != nil {
			log.Error("kafka topic init failed", "topic", cfg.Kafka.Topic, "error", err)
			os.Exit(1)
		}
		auditOpts = append(auditOpts, audit.WithSink(sink))
	}
	publisher := audit.NewPublisher(trail, log, m, auditOpts...)

	flows := session.NewRegistry(cfg.Session.TTL(), cfg.Session.SweepInterval(), log, m)

	regions := geolocation.NewClient(cfg.Geolocation, log, m)
	notices := catalog.NewClient(cfg.Platform, log, m)
	preferences := recorder.NewClient(cfg.Platform, log, m)

	overlayHandler := overlay.New(flows, regions, notices, preferences, publisher, sharedSlot, cfg.Identity, log, m)
	adminHandler := admin.New(trail, admin.NewTokenService(cfg.Admin.JWTSigningKey), log, m)

	router := httptransport.NewRouter(cfg.Server, overlayHandler, adminHandler)
	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("server listening",
			"addr", cfg.Server.Addr,
			"identity_backend", cfg.Identity.Backend,
			"audit_backend", cfg.Audit.Backend,
			"kafka_enabled", cfg.Kafka.Enabled,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	// In-flight requests are done; drain remaining state in dependency
	// order so buffered audit events reach the store and the sink.
	flows.Close()
	publisher.Close()
	if sink != nil {
		sink.Close()
	}
	if auditDB != nil {
		auditDB.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	log.Info("server stopped")
}
