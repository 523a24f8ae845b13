package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lucasfdcampos/influencer-api/internal/api"
	"github.com/lucasfdcampos/influencer-api/internal/cache"
	"github.com/lucasfdcampos/influencer-api/internal/enrichment"
	"github.com/lucasfdcampos/influencer-api/internal/insights"
	"github.com/lucasfdcampos/influencer-api/internal/logging"
	"github.com/lucasfdcampos/influencer-api/internal/pipeline"
	"github.com/lucasfdcampos/influencer-api/internal/rapid"
	"github.com/lucasfdcampos/influencer-api/internal/store"
)

func main() {
	_ = godotenv.Load()

	log := logging.New(getEnv("LOG_LEVEL", "info"), os.Getenv("LOG_PRETTY") == "1")

	// ─── RapidAPI upstream ───────────────────────────────────────────────────
	rapidHost := getEnv("RAPIDAPI_HOST", "instagram-best-experience.p.rapidapi.com")
	rapidKey := os.Getenv("RAPIDAPI_KEY")
	if rapidKey == "" {
		log.Warn().Msg("RAPIDAPI_KEY not set — upstream calls will be rejected")
	}
	upstream := rapid.New(rapid.Config{
		Host:   rapidHost,
		Key:    rapidKey,
		Logger: log.With().Str("component", "rapid").Logger(),
	})

	// ─── Redis (L1, optional) ────────────────────────────────────────────────
	var redisClient *cache.Client
	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	rc := cache.New(redisAddr, os.Getenv("REDIS_PASSWORD"), redisDB)
	ctx5s, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rc.Ping(ctx5s); err != nil {
		log.Warn().Err(err).Msg("Redis not available — searches will not be cached in Redis")
	} else {
		redisClient = rc
		log.Info().Str("addr", redisAddr).Msg("Redis connected")
	}
	cancel()

	// ─── MongoDB (L2, optional) ──────────────────────────────────────────────
	var mongoClient *store.Client
	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017")

	ctx10s, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	mc, err := store.New(ctx10s, mongoURI)
	cancel2()
	if err != nil {
		log.Warn().Err(err).Msg("MongoDB not available — searches will not be persisted")
	} else {
		mongoClient = mc
		log.Info().Str("uri", mongoURI).Msg("MongoDB connected")
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = mc.Disconnect(ctx)
			cancel()
		}()
	}

	// ─── Core wiring ─────────────────────────────────────────────────────────
	resolver := insights.NewResolver(upstream, nil, log.With().Str("component", "insights").Logger())
	enricher := enrichment.New(upstream, resolver, nil, log.With().Str("component", "enrichment").Logger())

	cfg := pipeline.Config{
		Redis:    redisClient,
		Upstream: upstream,
		Enricher: enricher,
		Logger:   log.With().Str("component", "pipeline").Logger(),
	}
	if mongoClient != nil {
		cfg.Store = mongoClient
	}
	pipe := pipeline.New(cfg)

	// ─── HTTP server ─────────────────────────────────────────────────────────
	addr := getEnv("ADDR", ":8080")
	handler := api.NewHandler(pipe, upstream, resolver, redisClient)
	srv := api.NewServer(addr, handler, log.With().Str("component", "http").Logger())

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	}()

	<-quit
	log.Info().Msg("shutting down...")
	ctx, cancel3 := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel3()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("bye")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
