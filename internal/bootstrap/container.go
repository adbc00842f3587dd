package bootstrap

import (
	"context"
	"log"
	"os"
	"time"

	"rag-orchestrator-be/internal/config"
	"rag-orchestrator-be/internal/controller"
	"rag-orchestrator-be/internal/pkg/logger"
	"rag-orchestrator-be/internal/repository/unitofwork"
	"rag-orchestrator-be/internal/service"
	"rag-orchestrator-be/internal/websocket"
	"rag-orchestrator-be/pkg/embedding"
	"rag-orchestrator-be/pkg/llm/factory"
	pkgNats "rag-orchestrator-be/pkg/nats"
	"rag-orchestrator-be/pkg/rag"
	"rag-orchestrator-be/pkg/routing"
	"rag-orchestrator-be/pkg/utils"
	"rag-orchestrator-be/pkg/vectorindex"
	"rag-orchestrator-be/pkg/workflow"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DocumentController controller.IDocumentController
	SessionController  controller.ISessionController
	WorkflowController controller.IWorkflowController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	embeddingProvider, err := embedding.NewProvider(embedding.Config{
		Provider: cfg.Ai.EmbeddingProvider,
		Model:    cfg.Ai.EmbeddingModel,
		APIKey:   cfg.Ai.EmbeddingAPIKey,
		BaseURL:  cfg.Ai.EmbeddingBaseURL,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize embedding provider: %v", err)
	}
	log.Printf("[INFO] Using Embedding Provider: %s (%s)", cfg.Ai.EmbeddingProvider, cfg.Ai.EmbeddingModel)

	if dims := embeddingProvider.Dimensions(); dims != vectorindex.Dimensions {
		log.Fatalf("[FATAL] Embedding provider %s produces %d-dim vectors but the vector index stores %d",
			cfg.Ai.EmbeddingProvider, dims, vectorindex.Dimensions)
	}

	llmProvider, err := factory.NewProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.LLMBaseURL,
		cfg.Ai.LLMAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	natsPub, err := pkgNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	redisAvailable := true
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		redisAvailable = false
	}

	wsLogger := logger.NewIsolatedLogger("logs/workflow.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 5. RAG Core
	vectorIndex := vectorindex.NewPgVectorIndex(db)
	splitter := utils.NewTextSplitter(cfg.Splitter.ChunkSize, cfg.Splitter.ChunkOverlap)
	router := routing.NewEngine()

	ragLogger := log.New(os.Stdout, "[rag] ", log.LstdFlags)
	pipeline := rag.NewPipeline(embeddingProvider, vectorIndex, llmProvider, rag.Config{
		TopK:                  cfg.Rag.TopK,
		ScoreThreshold:        cfg.Rag.ScoreThreshold,
		GradingEnabled:        cfg.Rag.GradingEnabled,
		GroundednessEnabled:   cfg.Rag.GroundednessEnabled,
		GroundednessThreshold: cfg.Rag.GroundednessThreshold,
		IncludeSources:        true,
	}, ragLogger)

	// Checkpoints never expire: a pending interruption must survive until
	// someone resolves it.
	var checkpoints workflow.CheckpointStore
	if redisAvailable {
		checkpoints = workflow.NewRedisCheckpointStore(rdb, 0)
	} else {
		checkpoints = workflow.NewMemoryCheckpointStore()
	}

	workflowLogger := log.New(os.Stdout, "[workflow] ", log.LstdFlags)
	eventSink := workflow.EventSinkFunc(func(evt workflow.Event) {
		sysLogger.Info("Workflow", "Event", map[string]interface{}{
			"type":      string(evt.Type),
			"thread_id": evt.ThreadID,
			"step":      evt.Step,
			"status":    string(evt.Status),
		})
	})
	executor := workflow.NewExecutor(router, pipeline, checkpoints, eventSink, workflowLogger)

	// 6. Services
	publisherService := service.NewPublisherService(pubSub, cfg.Topics.ProcessDocument)
	documentService := service.NewDocumentService(
		uowFactory,
		publisherService,
		embeddingProvider,
		vectorIndex,
		splitter,
		natsPub,
		sysLogger,
	)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Topics.ProcessDocument,
		documentService,
	)
	sessionService := service.NewSessionService(uowFactory)
	workflowService := service.NewWorkflowService(
		uowFactory,
		executor,
		checkpoints,
		sessionService,
		natsPub,
		wsHub,
		sysLogger,
		time.Duration(cfg.Rag.RunTimeoutSeconds)*time.Second,
	)

	// 7. Controllers
	return &Container{
		DocumentController: controller.NewDocumentController(documentService),
		SessionController:  controller.NewSessionController(sessionService),
		WorkflowController: controller.NewWorkflowController(workflowService),

		ConsumerService: consumerService,
		WebSocketHub:    wsHub,
	}
}
