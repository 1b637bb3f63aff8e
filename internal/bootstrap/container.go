package bootstrap

import (
	"context"
	"log"
	"os"

	"cv-rag/internal/config"
	"cv-rag/internal/controller"
	"cv-rag/internal/handler"
	"cv-rag/internal/pkg/logger"
	"cv-rag/internal/repository/memory"
	"cv-rag/internal/service"
	"cv-rag/pkg/chunker"
	"cv-rag/pkg/embedding"
	pktNats "cv-rag/pkg/nats"
	"cv-rag/pkg/rag/executor"
	"cv-rag/pkg/rag/prompt"
	"cv-rag/pkg/rag/search"
	"cv-rag/pkg/retry"
	"cv-rag/pkg/vectorindex"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	// Controllers
	DocumentController  controller.IDocumentController
	AnswerController    controller.IAnswerController
	NamespaceController controller.INamespaceController

	// Services, exposed for the command line tools
	IngestionService service.IIngestionService
	AnswerService    service.IAnswerService
	NamespaceService service.INamespaceService

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	EventHandler    *handler.EventHandler
	EventSubscriber *pktNats.Subscriber

	Logger *logger.ZapLogger

	closers []func()
}

// NewContainer wires every component from cfg. Configuration problems and
// a namespace that conflicts with the configured embedding model are
// returned as errors; optional infrastructure (Redis, NATS) degrades with
// a warning instead.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{}

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c.Logger = sysLogger
	c.closers = append(c.closers, func() { _ = sysLogger.Sync() })
	stdLogger := log.New(os.Stdout, "", log.LstdFlags)

	policy := retry.DefaultPolicy()
	policy.MaxAttempts = uint(cfg.Rag.MaxRetries) + 1

	// 2. Retrieval components
	provider, err := NewEmbeddingProvider(cfg)
	if err != nil {
		return nil, c.fail(err)
	}
	embedOpts := embedding.DefaultOptions(cfg.Ai.EmbeddingDimension)
	embedOpts.Concurrency = cfg.Rag.EmbedConcurrency
	embedOpts.RateLimit = cfg.Rag.EmbedRateLimit
	embedOpts.MaxInputChars = cfg.Rag.MaxInputChars
	embedOpts.Timeout = cfg.Rag.CallTimeout
	embedder, err := embedding.NewEmbedder(provider, embedOpts)
	if err != nil {
		return nil, c.fail(err)
	}

	vectorStore, closeStore, err := NewVectorStore(ctx, cfg)
	if err != nil {
		return nil, c.fail(err)
	}
	c.closers = append(c.closers, closeStore)

	metric, err := vectorindex.ParseMetric(cfg.VectorStore.Metric)
	if err != nil {
		return nil, c.fail(err)
	}
	index, err := vectorindex.NewIndex(vectorStore, vectorindex.NamespaceSpec{
		Name:      cfg.VectorStore.Namespace,
		Dimension: cfg.Ai.EmbeddingDimension,
		Metric:    metric,
	}, vectorindex.Options{
		BatchSize: cfg.VectorStore.BatchSize,
		Timeout:   cfg.Rag.CallTimeout,
		Cloud:     cfg.VectorStore.Cloud,
		Region:    cfg.VectorStore.Region,
		Backend:   cfg.VectorStore.Backend,
	})
	if err != nil {
		return nil, c.fail(err)
	}
	if err := index.EnsureNamespace(ctx); err != nil {
		return nil, c.fail(err)
	}

	strategy, err := chunker.ParseStrategy(cfg.Rag.ChunkStrategy)
	if err != nil {
		return nil, c.fail(err)
	}
	chk, err := chunker.New(chunker.Options{
		Strategy:  strategy,
		ChunkSize: cfg.Rag.ChunkSize,
		Overlap:   cfg.Rag.ChunkOverlap,
	})
	if err != nil {
		return nil, c.fail(err)
	}

	generator, err := NewGenerator(cfg)
	if err != nil {
		return nil, c.fail(err)
	}

	pipeline := executor.NewPipelineExecutor(
		search.NewOrchestrator(embedder, index, policy, stdLogger),
		prompt.NewBuilder("", cfg.Rag.MaxContextLength),
		generator,
		policy,
		executor.Config{
			TopK:        cfg.Rag.TopK,
			MinScore:    cfg.Rag.MinScore,
			Temperature: cfg.Ai.Temperature,
			MaxTokens:   cfg.Ai.MaxTokens,
			CallTimeout: cfg.Rag.CallTimeout,
		},
		stdLogger,
	)

	docLoader, err := newLoader(cfg)
	if err != nil {
		return nil, c.fail(err)
	}

	// 3. Infrastructure
	historyRepo, closeHistory := newHistoryRepository(ctx, cfg)
	c.closers = append(c.closers, closeHistory)

	eventPublisher, eventSubscriber, closeBus := newEventBus(cfg)
	c.closers = append(c.closers, closeBus)
	c.EventSubscriber = eventSubscriber

	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })
	jobRepo := memory.NewIngestJobRepository()

	// 4. Services
	c.IngestionService = service.NewIngestionService(chk, embedder, index, docLoader, eventPublisher, policy, sysLogger)
	c.AnswerService = service.NewAnswerService(pipeline, historyRepo, sysLogger)
	c.NamespaceService = service.NewNamespaceService(index, eventPublisher, sysLogger)
	publisherService := service.NewPublisherService(cfg.App.IngestTopic, pubSub, jobRepo)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.App.IngestTopic, c.IngestionService, jobRepo, sysLogger)
	c.EventHandler = handler.NewEventHandler(historyRepo, sysLogger)

	// 5. Controllers
	c.DocumentController = controller.NewDocumentController(c.IngestionService, publisherService)
	c.AnswerController = controller.NewAnswerController(c.AnswerService)
	c.NamespaceController = controller.NewNamespaceController(c.NamespaceService)

	sysLogger.Info("BOOTSTRAP", "Container ready", map[string]interface{}{
		"embedding_provider": cfg.Ai.EmbeddingProvider,
		"llm_provider":       cfg.Ai.LLMProvider,
		"vector_backend":     cfg.VectorStore.Backend,
		"namespace":          cfg.VectorStore.Namespace,
		"chunk_strategy":     string(strategy),
	})
	return c, nil
}

// StartBackground starts the ingest job consumer and, when a broker is
// configured, the domain event subscriptions.
func (c *Container) StartBackground(ctx context.Context) error {
	log.Println("Background: Starting Consumer Service...")
	if err := c.ConsumerService.Consume(ctx); err != nil {
		return err
	}
	if c.EventSubscriber != nil {
		log.Println("Background: Subscribing to domain events...")
		if err := c.EventHandler.Register(ctx, c.EventSubscriber); err != nil {
			return err
		}
	}
	return nil
}

// Close releases connections in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func (c *Container) fail(err error) error {
	c.Close()
	return err
}
