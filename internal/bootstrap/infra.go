package bootstrap

import (
	"context"
	"log"
	"time"

	"cv-rag/internal/config"
	"cv-rag/internal/repository/contract"
	"cv-rag/internal/repository/memory"
	redisrepo "cv-rag/internal/repository/redis"
	"cv-rag/pkg/events"
	"cv-rag/pkg/loader"
	pktNats "cv-rag/pkg/nats"

	"github.com/redis/go-redis/v9"
)

// newHistoryRepository uses Redis when REDIS_URL is set and reachable and
// falls back to process memory otherwise.
func newHistoryRepository(ctx context.Context, cfg *config.Config) (contract.HistoryRepository, func()) {
	if cfg.App.RedisURL == "" {
		log.Println("[INFO] REDIS_URL not set, keeping conversation history in memory")
		return memory.NewHistoryRepository(redisrepo.DefaultMaxEntries), func() {}
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Keeping conversation history in memory", err)
		_ = rdb.Close()
		return memory.NewHistoryRepository(redisrepo.DefaultMaxEntries), func() {}
	}

	log.Println("[INFO] Conversation history stored in Redis")
	return redisrepo.NewHistoryRepository(rdb, redisrepo.ConversationKey, redisrepo.DefaultMaxEntries), func() {
		if err := rdb.Close(); err != nil {
			log.Printf("[WARN] Failed to close Redis client: %v", err)
		}
	}
}

// newEventBus connects to NATS JetStream when NATS_URL is set. Without it
// events are dropped and no subscriber is returned.
func newEventBus(cfg *config.Config) (events.Publisher, *pktNats.Subscriber, func()) {
	if cfg.App.NatsURL == "" {
		log.Println("[INFO] NATS_URL not set, domain events are disabled")
		return events.NopPublisher{}, nil, func() {}
	}

	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		return events.NopPublisher{}, nil, func() {}
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		return natsPub, nil, natsPub.Close
	}
	return natsPub, natsSub, func() {
		natsSub.Close()
		natsPub.Close()
	}
}

// newLoader enables s3:// sources when an object storage endpoint is set.
func newLoader(cfg *config.Config) (*loader.Loader, error) {
	if cfg.Storage.Endpoint == "" {
		return loader.New(nil), nil
	}
	objects, err := loader.NewObjectStore(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.UseSSL)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Object storage enabled at %s", cfg.Storage.Endpoint)
	return loader.New(objects), nil
}
