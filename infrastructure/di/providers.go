package di

import (
	"context"
	"fmt"

	"mpgraph/application/pipeline"
	"mpgraph/application/ports"
	queryhandlers "mpgraph/application/queries/handlers"
	"mpgraph/infrastructure/config"
	"mpgraph/infrastructure/messaging/eventbridge"
	"mpgraph/infrastructure/parliament"
	"mpgraph/infrastructure/persistence/dynamodb"
	"mpgraph/infrastructure/persistence/neo4j"
	redisstore "mpgraph/infrastructure/persistence/redis"
	"mpgraph/interfaces/http/rest"
	"mpgraph/interfaces/http/rest/handlers"
	"mpgraph/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const metricsNamespace = "mpgraph"

// SimilarityStore is a document store that can also serve reads.
type SimilarityStore interface {
	ports.DocumentStore
	ports.SimilarityReader
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", cfg.ServiceName)), nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client. DYNAMODB_ENDPOINT points
// it at a local emulator.
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideDataSource creates the Parliament API client
func ProvideDataSource(cfg *config.Config, logger *zap.Logger) ports.DataSource {
	clientCfg := parliament.DefaultConfig()
	clientCfg.MembersURL = cfg.MembersAPIURL
	clientCfg.VotesURL = cfg.VotesAPIURL
	clientCfg.Timeout = cfg.APITimeout
	clientCfg.RateLimit = cfg.APIRateLimit
	clientCfg.RateBurst = cfg.APIRateBurst
	return parliament.NewClient(clientCfg, nil, logger)
}

// ProvideGraphStore selects the graph backend named by GRAPH_BACKEND
func ProvideGraphStore(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) (ports.GraphStore, error) {
	switch cfg.GraphBackend {
	case config.BackendNeo4j:
		return neo4j.NewGraphStore(neo4j.Config{
			URI:        cfg.Neo4jURI,
			Username:   cfg.Neo4jUsername,
			Password:   cfg.Neo4jPassword,
			Database:   cfg.Neo4jDatabase,
			Projection: cfg.SimilarityProjection,
			TopK:       cfg.SimilarityTopK,
		}, logger), nil
	case config.BackendDynamoDB:
		return dynamodb.NewGraphStore(client, cfg.GraphTable, cfg.SimilarityTopK, logger), nil
	default:
		return nil, fmt.Errorf("unknown graph backend %q", cfg.GraphBackend)
	}
}

// ProvideSimilarityStore selects the document backend named by
// DOCUMENT_BACKEND. The cleanup closes any client opened here; stores
// themselves stay usable across runs.
func ProvideSimilarityStore(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) (SimilarityStore, func(), error) {
	switch cfg.DocumentBackend {
	case config.BackendDynamoDB:
		return dynamodb.NewSimilarityStore(client, cfg.SimilarityTable, logger), func() {}, nil
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		cleanup := func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("Failed to close Redis client", zap.Error(err))
			}
		}
		return redisstore.NewSimilarityStore(rdb, cfg.RedisKeyPrefix, logger), cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown document backend %q", cfg.DocumentBackend)
	}
}

// ProvideDocumentStore exposes the write side of the similarity store
func ProvideDocumentStore(store SimilarityStore) ports.DocumentStore {
	return store
}

// ProvideSimilarityReader exposes the read side of the similarity store
func ProvideSimilarityReader(store SimilarityStore) ports.SimilarityReader {
	return store
}

// ProvideEventPublisher returns nil when no event bus is configured
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, cfg.EventSource, logger)
}

// ProvideMetrics creates the metric set. Metrics are always recorded;
// ENABLE_METRICS controls whether the API exposes them.
func ProvideMetrics() *observability.Metrics {
	return observability.NewMetrics(metricsNamespace)
}

// ProvideTracerProvider starts OTLP export when tracing is enabled and
// returns nil otherwise.
func ProvideTracerProvider(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.EnableTracing {
		return nil, nil
	}
	return observability.InitTracing(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
}

// ProvideTracer returns the service tracer, or a no-op tracer when tracing
// is disabled.
func ProvideTracer(tp *observability.TracerProvider) trace.Tracer {
	if tp == nil {
		return observability.NoopTracer()
	}
	return tp.Tracer()
}

// PipelineOptions maps configuration onto pipeline options
func PipelineOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		Stages: pipeline.Stages{
			Divisions:     cfg.CreateDivisions,
			Legislators:   cfg.CreateMPs,
			Relationships: cfg.CreateRelationships,
		},
		DivisionPaging: pipeline.PageOptions{
			PageSize: cfg.DivisionPageSize,
			MaxPages: cfg.DivisionMaxLoops,
		},
		LegislatorPaging: pipeline.PageOptions{
			PageSize: cfg.MPTakePerLoop,
			Stride:   cfg.MPStride,
			MaxPages: cfg.MPLoops,
			FullPage: cfg.MPMinFullPage,
		},
		VotePaging: pipeline.PageOptions{
			PageSize: cfg.VotePageSize,
			MaxPages: cfg.VoteMaxLoops,
		},
		BatchSize: cfg.SimilarityBatchSize,
	}
}

// ProvidePipeline creates the sync pipeline
func ProvidePipeline(
	cfg *config.Config,
	source ports.DataSource,
	graph ports.GraphStore,
	docs ports.DocumentStore,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	tracer trace.Tracer,
	logger *zap.Logger,
) *pipeline.Pipeline {
	return pipeline.NewPipeline(source, graph, docs, PipelineOptions(cfg), logger,
		pipeline.WithRecorder(metrics),
		pipeline.WithTracer(tracer),
		pipeline.WithPublisher(publisher),
	)
}

// ProvideGetSimilarityHandler creates the similarity query handler
func ProvideGetSimilarityHandler(reader ports.SimilarityReader, logger *zap.Logger) *queryhandlers.GetSimilarityHandler {
	return queryhandlers.NewGetSimilarityHandler(reader, logger)
}

// ProvideRouter creates the read API router
func ProvideRouter(
	cfg *config.Config,
	queryHandler *queryhandlers.GetSimilarityHandler,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *rest.Router {
	var source rest.MetricsSource
	if cfg.EnableMetrics {
		source = metrics
	}
	return rest.NewRouter(
		handlers.NewSimilarityHandler(queryHandler, logger),
		handlers.NewHealthHandler(cfg.ServiceName),
		source,
		cfg.CORSAllowedOrigins,
		logger,
	)
}
