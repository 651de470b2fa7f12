package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/softrate-ats/internal/adapter/ai"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/ai/gemini"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/ai/real"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/auth"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/events"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/events/redpanda"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/lock"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/repo/memory"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/textextractor/pdf"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/softrate-ats/internal/app"
	"github.com/fairyhunter13/softrate-ats/internal/config"
	"github.com/fairyhunter13/softrate-ats/internal/domain"
	"github.com/fairyhunter13/softrate-ats/internal/service/ratelimiter"
)

// deps are the adapters behind the usecases.
type deps struct {
	Store     domain.Store
	Locker    domain.Locker
	Hasher    domain.PasswordHasher
	Screener  domain.Screener
	Oracle    domain.Oracle
	Generator domain.QuestionGenerator
	Extractor domain.TextExtractor
	Events    domain.EventPublisher
	Readiness app.Deps

	closers []func()
}

// Close releases connections in reverse order of creation.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func buildDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	d := &deps{Hasher: auth.NewArgon2Hasher()}

	switch strings.ToLower(cfg.Store) {
	case config.StoreMemory:
		d.Store = memory.New()
		slog.Warn("using in-memory store, data is lost on restart")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, pool.Close)
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			d.Close()
			return nil, err
		}
		d.Store = postgres.NewStore(pool)
		d.Readiness.DB = pool
	}

	var rdb redis.UniversalClient
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("op=main.redis: %w", err)
		}
		client := redis.NewClient(opts)
		d.closers = append(d.closers, func() { _ = client.Close() })
		rdb = client
		d.Locker = lock.NewRedisLocker(client, cfg.GetLockRetryConfig())
		d.Readiness.Redis = client
	} else {
		d.Locker = lock.NewLocalLocker()
		slog.Warn("REDIS_URL not set, candidate locks are process-local")
	}

	if err := d.buildLLM(ctx, cfg, rdb); err != nil {
		d.Close()
		return nil, err
	}

	if strings.EqualFold(cfg.Extractor, "tika") {
		tc := tika.New(cfg.TikaURL)
		d.Extractor = tc
		d.Readiness.Tika = tc
	} else {
		d.Extractor = pdf.New()
	}

	if len(cfg.KafkaBrokers) > 0 {
		pub, err := redpanda.NewPublisher(ctx, cfg.KafkaBrokers, cfg.EventsTopic)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.closers = append(d.closers, pub.Close)
		d.Events = pub
		d.Readiness.Broker = pub
	} else {
		d.Events = events.Noop{}
	}
	return d, nil
}

// buildLLM chains provider, shared rate limit, circuit breaker and the
// evaluator. Without a provider the pipeline runs on keyword scoring.
func (d *deps) buildLLM(ctx context.Context, cfg config.Config, rdb redis.UniversalClient) error {
	var (
		chat  ai.ChatClient
		model string
	)
	switch strings.ToLower(cfg.LLMProvider) {
	case config.LLMGemini:
		gc, err := gemini.New(ctx, cfg)
		if err != nil {
			return err
		}
		chat, model = gc, cfg.GeminiModel
	case config.LLMOpenRouter:
		if cfg.OpenRouterAPIKey == "" {
			slog.Warn("OPENROUTER_API_KEY not set, using keyword scoring")
			break
		}
		chat, model = real.New(cfg), cfg.OpenRouterModel
	}
	if chat == nil {
		d.Oracle = ai.KeywordOracle{}
		return nil
	}

	key := "llm:" + strings.ToLower(cfg.LLMProvider)
	var limiter ai.Limiter
	if l := ratelimiter.NewRedisLuaLimiter(rdb, nil); l != nil {
		l.SetBucketConfig(key, ratelimiter.NewBucketConfigFromPerMinute(cfg.LLMRateLimitPerMin))
		limiter = l
	}
	chat = ai.LimitedClient{Next: chat, Limiter: limiter, Key: key}
	chat = ai.BreakerClient{Next: chat, Breaker: ai.NewCircuitBreaker(cfg.LLMProvider, 5, 0)}

	ev := ai.NewEvaluator(chat, model, cfg.LLMMaxPromptTokens)
	d.Screener, d.Oracle, d.Generator = ev, ev, ev
	slog.Info("llm configured", slog.String("provider", cfg.LLMProvider), slog.String("model", model))
	return nil
}
