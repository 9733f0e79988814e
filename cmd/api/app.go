package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"

	"github.com/insightflow/hub/internal/api"
	"github.com/insightflow/hub/internal/api/handlers"
	"github.com/insightflow/hub/internal/api/middleware"
	"github.com/insightflow/hub/internal/bedrock"
	"github.com/insightflow/hub/internal/config"
	"github.com/insightflow/hub/internal/googleai"
	"github.com/insightflow/hub/internal/observability"
	"github.com/insightflow/hub/internal/openai"
	"github.com/insightflow/hub/internal/repository"
	"github.com/insightflow/hub/internal/service"
	"github.com/insightflow/hub/internal/workers"
)

const (
	serviceName             = "insightflow-hub"
	riverQueueDepthInterval = 15 * time.Second

	enqueueMaxRetries     = 3
	enqueueInitialBackoff = 200 * time.Millisecond
	enqueueMaxBackoff     = 2 * time.Second
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	db             *pgxpool.Pool
	server         *http.Server
	river          *river.Client[pgx.Tx]
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	metrics        *observability.Metrics
}

// newGenerator returns the configured text generation client, or nil when its credentials are
// missing. Ingestion and chat then fail with a configuration error instead of the server refusing to start.
func newGenerator(ctx context.Context, cfg *config.Config) (service.TextGenerator, error) {
	switch cfg.GenerationProvider {
	case config.ProviderOpenAI:
		if cfg.GenerationAPIKey == "" {
			return nil, nil //nolint:nilnil // generation disabled
		}

		return openai.NewClient(cfg.GenerationAPIKey, openai.WithChatModel(cfg.GenerationModel)), nil
	case config.ProviderGoogle:
		if cfg.GenerationAPIKey == "" {
			return nil, nil //nolint:nilnil // generation disabled
		}

		client, err := googleai.NewClient(ctx, cfg.GenerationAPIKey, googleai.WithChatModel(cfg.GenerationModel))
		if err != nil {
			return nil, fmt.Errorf("create google generation client: %w", err)
		}

		return client, nil
	case config.ProviderBedrock:
		// Credentials come from the default AWS chain.
		client, err := bedrock.NewClient(ctx, cfg.AWSRegion, bedrock.WithModel(cfg.GenerationModel))
		if err != nil {
			return nil, fmt.Errorf("create bedrock client: %w", err)
		}

		return client, nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.GenerationProvider)
	}
}

// newEmbeddingClient returns the configured embedding client, or nil when no key is set.
func newEmbeddingClient(ctx context.Context, cfg *config.Config) (service.EmbeddingClient, error) {
	if cfg.EmbeddingAPIKey == "" {
		return nil, nil //nolint:nilnil // embeddings disabled
	}

	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		return openai.NewClient(cfg.EmbeddingAPIKey,
			openai.WithEmbeddingModel(cfg.EmbeddingModel),
			openai.WithDimensions(cfg.EmbeddingDimensions),
		), nil
	case config.ProviderGoogle:
		client, err := googleai.NewClient(ctx, cfg.EmbeddingAPIKey,
			googleai.WithEmbeddingModel(cfg.EmbeddingModel),
			googleai.WithDimensions(cfg.EmbeddingDimensions),
		)
		if err != nil {
			return nil, fmt.Errorf("create google embedding client: %w", err)
		}

		return client, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbeddingProvider)
	}
}

// NewApp builds and wires all components. It does not start the HTTP server or River;
// call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool) (app *App, err error) {
	var (
		meterProvider  *sdkmetric.MeterProvider
		tracerProvider *sdktrace.TracerProvider
		metricsHandler http.Handler
		metrics        *observability.Metrics
	)

	// Release whatever observability was set up if a later step fails.
	defer func() {
		if err != nil {
			if err2 := shutdownObservability(context.Background(), tracerProvider, meterProvider); err2 != nil {
				slog.Error("shutdown observability after startup error", "error", err2)
			}
		}
	}()

	if cfg.MetricsEnabled {
		meterProvider, metricsHandler, metrics, err = observability.NewMeterProvider(ctx,
			observability.MeterProviderConfig{ServiceName: serviceName})
		if err != nil {
			return nil, fmt.Errorf("create meter provider: %w", err)
		}

		otel.SetMeterProvider(meterProvider)
	} else {
		slog.Warn("metrics not enabled (METRICS_ENABLED=false)")
	}

	tracerProvider, err = observability.NewTracerProvider(ctx, observability.TracerProviderConfig{
		Exporter:    cfg.OtelTracesExporter,
		ServiceName: serviceName,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("create tracer provider: %w", err)
	}

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	} else {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unknown)")
	}

	// Install TraceContextHandler unconditionally so request_id and tenant_id (and trace_id/span_id when tracing is on) appear in logs.
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(slog.Default().Handler())))
	logger := slog.Default()

	var (
		ingestionMetrics observability.IngestionMetrics
		indexingMetrics  observability.IndexingMetrics
		chatMetrics      observability.ChatMetrics
		cacheMetrics     observability.QueryCacheMetrics
		httpMetrics      observability.HubMetrics
		bodyLimitMetrics observability.BodyLimitMetrics
	)
	if metrics != nil {
		ingestionMetrics = metrics.Ingestion
		indexingMetrics = metrics.Indexing
		chatMetrics = metrics.Chat
		cacheMetrics = metrics.Cache
		httpMetrics = metrics.HTTP
		bodyLimitMetrics = metrics.BodyLimit
	}

	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	embeddingClient, err := newEmbeddingClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if generator == nil {
		slog.Warn("text generation disabled: no API key for GENERATION_PROVIDER", "provider", cfg.GenerationProvider)
	}

	if embeddingClient == nil {
		slog.Warn("embeddings disabled: no API key for EMBEDDING_PROVIDER", "provider", cfg.EmbeddingProvider)
	}

	feedbackRecordsRepo := repository.NewFeedbackRecordsRepository(db)
	documentsRepo := repository.NewEmbeddedDocumentsRepository(db)
	keywordTagsRepo := repository.NewKeywordTagsRepository(db)

	tags := service.NewTagAggregator(keywordTagsRepo, cfg.TagMaxConcurrency, logger)
	indexer := service.NewEmbeddingIndexer(embeddingClient, documentsRepo)
	search := service.NewSimilaritySearch(documentsRepo, cfg.ChatRetrievalLimit)

	queryEmbedder, err := service.NewQueryEmbedder(indexer, cfg.SearchQueryCacheSize, cacheMetrics)
	if err != nil {
		return nil, err
	}

	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, workers.NewDocumentIndexingWorker(workers.DocumentIndexingWorkerParams{
		Records:   feedbackRecordsRepo,
		Documents: documentsRepo,
		Indexer:   indexer,
		Limiter:   rate.NewLimiter(rate.Limit(cfg.IndexingRateLimit), 1),
		Metrics:   indexingMetrics,
		Logger:    logger,
	}))

	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			service.IndexingQueueName: {MaxWorkers: cfg.IndexingMaxConcurrent},
		},
		Workers:      riverWorkers,
		ErrorHandler: &workers.ErrorHandler{Logger: logger},
		MaxAttempts:  cfg.IndexingMaxAttempts,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create River client: %w", err)
	}

	inserter := service.NewRetryingJobInserter(riverClient, service.RetryingJobInserterConfig{
		MaxRetries:     enqueueMaxRetries,
		InitialBackoff: enqueueInitialBackoff,
		MaxBackoff:     enqueueMaxBackoff,
		Logger:         logger,
	})

	ingestionParams := service.IngestionServiceParams{
		Records:         feedbackRecordsRepo,
		Tags:            tags,
		Indexer:         indexer,
		Inserter:        inserter,
		Metrics:         ingestionMetrics,
		IndexingMetrics: indexingMetrics,
		Timeout:         cfg.IngestTimeout,
		Logger:          logger,
	}
	if generator != nil {
		ingestionParams.Classifier = service.NewSentimentClassifier(generator, cfg.ClassifyTemperature, logger)
		ingestionParams.Summarizer = service.NewResponseSummarizer(generator, cfg.SummarizeTemperature)
	}

	ingestionService := service.NewIngestionService(ingestionParams)
	feedbackRecordsService := service.NewFeedbackRecordsService(feedbackRecordsRepo, cfg.ChatAllowGlobalSearch)
	statsService := service.NewStatsService(feedbackRecordsRepo, tags)
	searchService := service.NewSearchService(queryEmbedder, search, cfg.ChatAllowGlobalSearch, logger)
	chatService := service.NewChatService(service.ChatServiceParams{
		Generator:         generator,
		Embedder:          queryEmbedder,
		Search:            search,
		RetrievalLimit:    cfg.ChatRetrievalLimit,
		AllowGlobalSearch: cfg.ChatAllowGlobalSearch,
		Temperature:       cfg.ChatTemperature,
		Timeout:           cfg.ChatTimeout,
		Metrics:           chatMetrics,
		Logger:            logger,
	})

	router := api.NewRouter(api.RouterParams{
		APIKey:           cfg.APIKey,
		MaxBodyBytes:     cfg.MaxRequestBodyBytes,
		Health:           handlers.NewHealthHandler(db),
		Feedback:         handlers.NewFeedbackRecordsHandler(ingestionService, feedbackRecordsService),
		Search:           handlers.NewSearchHandler(searchService),
		Chat:             handlers.NewChatHandler(chatService),
		Tenants:          handlers.NewTenantsHandler(statsService),
		Metrics:          httpMetrics,
		BodyLimitMetrics: bodyLimitMetrics,
		MetricsHandler:   metricsHandler,
		Logger:           logger,
	})

	return &App{
		cfg:            cfg,
		db:             db,
		server:         newHTTPServer(cfg, router, meterProvider, tracerProvider),
		river:          riverClient,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
		metrics:        metrics,
	}, nil
}

// newHTTPServer wraps the router as RequestID -> otelhttp -> router, so access logs written
// inside the router carry request_id and trace_id/span_id.
func newHTTPServer(
	cfg *config.Config,
	router http.Handler,
	meterProvider *sdkmetric.MeterProvider,
	tracerProvider *sdktrace.TracerProvider,
) *http.Server {
	otelOpts := []otelhttp.Option{
		// Skip tracing and HTTP metrics for probes and scrapes to reduce noise.
		otelhttp.WithFilter(func(r *http.Request) bool {
			switch r.URL.Path {
			case "/health", "/ready", "/metrics":
				return false
			default:
				return true
			}
		}),
	}
	if meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(meterProvider))
	}

	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	handler := otelhttp.NewHandler(router, serviceName, otelOpts...)
	handler = middleware.RequestID(handler)

	const (
		readTimeout = 15 * time.Second
		idleTimeout = 60 * time.Second
		// Leave headroom over the slowest request path for writing the response.
		writeHeadroom = 10 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: max(cfg.IngestTimeout, cfg.ChatTimeout) + writeHeadroom,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server and River, then blocks until ctx is cancelled (e.g. signal)
// or a component fails. When ctx is cancelled or a component fails, it cancels the internal
// River context so River and the queue depth poller stop before Run returns. Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	riverCtx, cancelRiver := context.WithCancel(ctx)
	defer cancelRiver()

	if a.metrics != nil && a.metrics.Indexing != nil {
		go runRiverQueueDepthPoller(riverCtx, a.db, a.metrics.Indexing)
	}

	go func() {
		if err := a.river.Start(riverCtx); err != nil && !errors.Is(err, context.Canceled) {
			select {
			case runErr <- fmt.Errorf("river: %w", err):
			default:
			}
		}
	}()

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case runErr <- fmt.Errorf("server: %w", err):
			default:
			}
		}
	}()

	select {
	case err := <-runErr:
		cancelRiver()

		return err
	case <-ctx.Done():
		cancelRiver()

		return nil
	}
}

// runRiverQueueDepthPoller periodically updates the indexing queue depth gauge.
func runRiverQueueDepthPoller(ctx context.Context, db *pgxpool.Pool, indexingMetrics observability.IndexingMetrics) {
	ticker := time.NewTicker(riverQueueDepthInterval)
	defer ticker.Stop()

	update := func() {
		var count int

		err := db.QueryRow(ctx,
			`SELECT COUNT(*) FROM river_job WHERE queue = $1 AND state IN ($2, $3, $4)`,
			service.IndexingQueueName,
			rivertype.JobStateAvailable, rivertype.JobStateRetryable, rivertype.JobStateScheduled,
		).Scan(&count)
		if err != nil {
			slog.WarnContext(ctx, "river queue depth poll failed", "error", err)

			return
		}

		indexingMetrics.SetQueueDepth(count)
	}

	update()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary errors, returns the first.
func shutdownObservability(ctx context.Context, tracer *sdktrace.TracerProvider, meter *sdkmetric.MeterProvider) error {
	var first error

	if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
		first = err
	}

	if err := observability.ShutdownMeterProvider(ctx, meter); err != nil {
		if first == nil {
			first = err
		} else {
			slog.Error("shutdown meter provider", "error", err)
		}
	}

	return first
}

// Shutdown stops the server, then River (waiting for in-flight jobs). Call after Run returns.
// Observability is shut down once via defer; its error is returned only when server and River shut down successfully.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if stopErr := a.river.Stop(ctx); stopErr != nil {
			slog.Error("river stop during server shutdown", "error", stopErr)
		}

		return fmt.Errorf("server shutdown: %w", err)
	}

	if err = a.river.Stop(ctx); err != nil {
		return fmt.Errorf("river stop: %w", err)
	}

	return nil
}
