package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/EAniwa/legacylancers-sub002/internal/auth"
	"github.com/EAniwa/legacylancers-sub002/internal/config"
	"github.com/EAniwa/legacylancers-sub002/internal/delivery"
	"github.com/EAniwa/legacylancers-sub002/internal/domain"
	"github.com/EAniwa/legacylancers-sub002/internal/infrastructure/kafka"
	"github.com/EAniwa/legacylancers-sub002/internal/infrastructure/redis"
	"github.com/EAniwa/legacylancers-sub002/internal/notify"
	"github.com/EAniwa/legacylancers-sub002/internal/pipeline"
	"github.com/EAniwa/legacylancers-sub002/internal/profile"
	"github.com/EAniwa/legacylancers-sub002/internal/repository"
	"github.com/EAniwa/legacylancers-sub002/internal/repository/memory"
)

func main() {
	// Keep a panic from taking the process down without a trace.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Application recovered from panic: %v", r)
			os.Exit(1)
		}
	}()

	_ = godotenv.Load()

	cfg := config.LoadConfig()

	log.Printf("Starting Messaging WebSocket Server")
	log.Printf("Environment: %s", cfg.Environment)
	log.Printf("Port: %s", cfg.Port)
	log.Printf("Redis: %s:%s", cfg.RedisHost, cfg.RedisPort)
	log.Printf("Kafka Brokers: %v", cfg.KafkaBrokers)

	// Stores
	conversations := memory.NewConversationStore()
	messages := memory.NewMessageStore()

	var presence repository.Presence = memory.NewPresenceStore()
	redisClient := redis.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	if err := redisClient.Ping(context.Background()); err != nil {
		log.Printf("Warning: Redis connection failed, presence mirror disabled: %v", err)
	} else {
		log.Println("Redis connection successful")
		presence = redis.NewMirroredPresence(presence, redisClient)
	}

	// Offline-fallback dispatcher: Kafka when brokers are configured,
	// otherwise the process log in development.
	var dispatcher notify.Dispatcher
	var producer *kafka.NotificationProducer
	if os.Getenv("KAFKA_BROKERS") == "" && cfg.IsDevelopment() {
		dispatcher = notify.LogDispatcher{}
		log.Println("No Kafka brokers configured, logging offline notifications")
	} else {
		producer = kafka.NewNotificationProducer(cfg.KafkaBrokers, cfg.NotifyTopic)
		dispatcher = producer
	}

	// Pipeline stages, cheapest and most protective first.
	limiter := pipeline.NewRateLimiter(pipeline.Budgets{
		domain.EventSendMessage:      cfg.SendBudget,
		domain.EventTypingStart:      cfg.TypingBudget,
		domain.EventTypingStop:       cfg.TypingBudget,
		domain.EventJoinConversation: cfg.JoinBudget,
	}, cfg.DefaultBudget, 5*time.Minute)

	filter, err := pipeline.NewContentFilter(pipeline.DefaultBlockedPatterns, 10*time.Second, 3)
	if err != nil {
		log.Fatalf("Content filter configuration invalid: %v", err)
	}

	chain := pipeline.NewChain(
		pipeline.IdentityStage{},
		limiter,
		pipeline.NewValidator(),
		filter,
		pipeline.NewMembershipAuthorizer(conversations),
	)

	manager := delivery.NewManager()
	profiles := profile.NewStaticSource()
	router := delivery.NewDeliveryRouter(manager, presence, profiles, dispatcher)
	handlers := delivery.NewHandlers(conversations, messages, presence, manager, router, chain)

	verifier := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTDuration)
	server := delivery.NewServer(cfg, verifier, handlers, manager, presence)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reaper := delivery.NewReaper(presence, router, cfg.TypingTimeout, cfg.SweepInterval)
	go reaper.Run(ctx)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutting down...")
		cancel()
		limiter.Stop()
		if producer != nil {
			if err := producer.Close(); err != nil {
				log.Printf("Error closing Kafka producer: %v", err)
			}
		}
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}()

	// Start server (blocking)
	log.Fatal(server.Start())
}
