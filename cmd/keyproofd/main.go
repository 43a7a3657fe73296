package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"log"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/keyproof/keyproof/adapters/events"
	"github.com/keyproof/keyproof/adapters/keys"
	"github.com/keyproof/keyproof/adapters/store"
	"github.com/keyproof/keyproof/adapters/tokenizer"
	"github.com/keyproof/keyproof/config"
	"github.com/keyproof/keyproof/service"
	"github.com/keyproof/keyproof/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Generate a session signing key pair (you would normally load this
	// from somewhere secure)
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatalf("Failed to generate signing key: %v", err)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opts)

	logger := watermill.NewStdLogger(false, false)
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to create Redis publisher: %v", err)
	}

	challengeStore := store.NewRedisStore(redisClient)
	registry := keys.NewMemoryRegistry()
	jwtTokenizer := tokenizer.NewJWTTokenizer(signKey)
	eventPub := events.NewWatermillPublisher(publisher)

	recovery := service.NewRecoveryService(
		challengeStore,
		registry,
		jwtTokenizer,
		eventPub,
		service.WithChallengeTTL(cfg.ChallengeTTL),
		service.WithSessionTTL(cfg.SessionTTL),
		service.WithAccountPreamble(cfg.AccountPreamble),
		service.WithLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil))),
	)

	router := http.SetupRouter(recovery)

	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
