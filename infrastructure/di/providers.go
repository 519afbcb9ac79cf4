package di

import (
	"context"
	"fmt"
	"time"

	"portfolio/application/ports"
	"portfolio/application/services"
	"portfolio/domain/content"
	"portfolio/infrastructure/config"
	"portfolio/infrastructure/messaging/eventbridge"
	"portfolio/infrastructure/messaging/logbus"
	"portfolio/infrastructure/persistence/breaker"
	"portfolio/infrastructure/persistence/dynamodb"
	"portfolio/infrastructure/persistence/instrumented"
	"portfolio/infrastructure/persistence/jsonfile"
	"portfolio/infrastructure/storage/local"
	"portfolio/interfaces/http/rest"
	"portfolio/interfaces/http/rest/handlers"
	pkgerrors "portfolio/pkg/errors"
	"portfolio/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

const serviceName = "portfolio"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		zapCfg.Level = level
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideAWSConfig creates AWS configuration. Clients built from it connect
// lazily, so the file backend never talks to AWS.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCollector creates the Prometheus collector, or nil when metrics
// are disabled.
func ProvideCollector(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector(serviceName)
}

// ProvideTracerProvider exports spans when tracing is enabled and returns a
// no-op provider otherwise.
func ProvideTracerProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	if !cfg.EnableTracing {
		return observability.NoopTracerProvider(), func() {}, nil
	}

	tp, err := observability.InitTracing(ctx, serviceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideWriteLog shares the file store's saves with the content watcher
func ProvideWriteLog() *jsonfile.WriteLog {
	return jsonfile.NewWriteLog()
}

// ProvideDocumentStore selects the configured backend. The DynamoDB store
// sits behind a circuit breaker; either store is instrumented when metrics
// are enabled. writes may be nil.
func ProvideDocumentStore(
	cfg *config.Config,
	client *awsdynamodb.Client,
	writes *jsonfile.WriteLog,
	collector *observability.Collector,
	logger *zap.Logger,
) (ports.DocumentStore, error) {
	var store ports.DocumentStore

	switch cfg.StoreBackend {
	case config.BackendFile:
		store = jsonfile.NewDocumentStore(cfg.ContentFile, logger, jsonfile.WithWriteLog(writes))
	case config.BackendDynamoDB:
		var observer breaker.StateObserver
		if collector != nil {
			observer = collector
		}
		store = breaker.NewDocumentStore(
			dynamodb.NewDocumentStore(client, cfg.DynamoDBTable, cfg.DocumentKey, logger),
			breaker.DefaultConfig("document-store"),
			observer,
			logger,
		)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if collector != nil {
		store = instrumented.NewDocumentStore(store, collector)
	}
	return store, nil
}

// ProvideEventPublisher publishes to EventBridge when a bus is configured
// and to the log otherwise.
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return logbus.NewPublisher(logger)
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideAttachmentStore creates the upload directory store
func ProvideAttachmentStore(cfg *config.Config, logger *zap.Logger) (ports.AttachmentStore, error) {
	store := local.NewAttachmentStore(cfg.UploadDir, cfg.UploadURLPrefix, logger)
	if err := store.Init(); err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideContentService creates the content repository
func ProvideContentService(
	store ports.DocumentStore,
	publisher ports.EventPublisher,
	collector *observability.Collector,
	tp *observability.TracerProvider,
	logger *zap.Logger,
) *services.ContentService {
	opts := []services.ContentServiceOption{
		services.WithEventPublisher(publisher),
		services.WithTracer(tp.Tracer()),
	}
	if collector != nil {
		opts = append(opts, services.WithMutationRecorder(collector))
	}
	return services.NewContentService(store, logger, opts...)
}

// ProvideAttachmentService creates the upload service
func ProvideAttachmentService(
	store ports.AttachmentStore,
	publisher ports.EventPublisher,
	collector *observability.Collector,
	logger *zap.Logger,
) *services.AttachmentService {
	var recorder services.UploadRecorder
	if collector != nil {
		recorder = collector
	}
	return services.NewAttachmentService(store, publisher, recorder, logger)
}

// ProvideErrorHandler creates the HTTP error handler
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.DebugErrors)
}

// ProvideContentHandler creates the content HTTP handler
func ProvideContentHandler(svc *services.ContentService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *handlers.ContentHandler {
	return handlers.NewContentHandler(svc, errorHandler, logger)
}

// ProvideUploadHandler creates the upload HTTP handler
func ProvideUploadHandler(svc *services.AttachmentService, cfg *config.Config, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *handlers.UploadHandler {
	return handlers.NewUploadHandler(svc, cfg.MaxUploadBytes, errorHandler, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	contentHandler *handlers.ContentHandler,
	uploadHandler *handlers.UploadHandler,
	svc *services.ContentService,
	collector *observability.Collector,
	errorHandler *pkgerrors.ErrorHandler,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(contentHandler, uploadHandler, svc, collector, errorHandler, rest.Options{
		AdminToken:      cfg.AdminToken,
		StaticDir:       cfg.StaticDir,
		UploadDir:       cfg.UploadDir,
		UploadURLPrefix: cfg.UploadURLPrefix,
		EnableCORS:      cfg.EnableCORS,
		CORSOrigins:     cfg.CORSOrigins,
	}, logger)
}

// ProvideContentWatcher watches the content file for edits made outside the
// server. It returns nil unless enabled for the file backend.
func ProvideContentWatcher(cfg *config.Config, writes *jsonfile.WriteLog, logger *zap.Logger) (*jsonfile.Watcher, func(), error) {
	if !cfg.WatchContent || cfg.StoreBackend != config.BackendFile {
		return nil, func() {}, nil
	}

	w, err := jsonfile.NewWatcher(cfg.ContentFile, jsonfile.DefaultDebounce, logger, func(doc *content.Document, err error) {
		if err != nil {
			logger.Error("Content file is no longer readable", zap.String("path", cfg.ContentFile), zap.Error(err))
			return
		}
		logger.Info("Content file changed on disk",
			zap.String("path", cfg.ContentFile),
			zap.Int("items", len(doc.Tagged())),
		)
	}, jsonfile.IgnoringWrites(writes))
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := w.Close(); err != nil {
			logger.Warn("Failed to stop content watcher", zap.Error(err))
		}
	}
	return w, cleanup, nil
}
