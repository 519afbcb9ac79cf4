//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"portfolio/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCollector,
	ProvideTracerProvider,
	ProvideWriteLog,
	ProvideDocumentStore,
	ProvideEventPublisher,
	ProvideAttachmentStore,
	ProvideContentService,
	ProvideAttachmentService,
	ProvideErrorHandler,
	ProvideContentHandler,
	ProvideUploadHandler,
	ProvideRouter,
	ProvideContentWatcher,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned cleanup
// releases resources in reverse order of creation.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
