package bootstrap

import (
	"log"
	"time"

	"ai-therapist-be/internal/config"
	"ai-therapist-be/internal/controller"
	"ai-therapist-be/internal/pkg/logger"
	"ai-therapist-be/internal/repository/memory"
	"ai-therapist-be/internal/repository/unitofwork"
	"ai-therapist-be/internal/service"
	"ai-therapist-be/pkg/llm/factory"

	pkgNats "ai-therapist-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// Background Services (Exposed for main.go to run)
	EventRelayService service.IEventRelayService
	AnalyticsService  service.IAnalyticsService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	eventLogger := logger.NewIsolatedLogger(cfg.App.EventLogFilePath)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// NATS
	natsPub, err := pkgNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pkgNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// 3. LLM Provider
	llmProvider, err := factory.NewLLMProvider(factory.ProviderConfig{
		Provider:      cfg.Ai.LLMProvider,
		Model:         cfg.Ai.LLMModel,
		GroqAPIKey:    cfg.Keys.Groq,
		GroqBaseURL:   cfg.Ai.GroqBaseURL,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		Timeout:       time.Duration(cfg.Ai.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Services
	userCache := memory.NewUserCache()

	publisherService := service.NewEventPublisherService(cfg.App.EventTopic, pubSub)
	relayService := service.NewEventRelayService(pubSub, cfg.App.EventTopic, natsPub, eventLogger)

	chatService := service.NewChatService(
		uowFactory,
		llmProvider,
		publisherService,
		userCache,
		sysLogger,
		time.Duration(cfg.Ai.TimeoutSeconds)*time.Second,
		cfg.Ai.HistoryWindow,
	)

	var analyticsService service.IAnalyticsService
	if natsSub != nil {
		analyticsService = service.NewAnalyticsService(natsSub, uowFactory, eventLogger)
	}

	// 5. Controllers
	return &Container{
		ChatController: controller.NewChatController(chatService),

		EventRelayService: relayService,
		AnalyticsService:  analyticsService,
	}
}
