package di

import (
	"portfolio/application/ports"
	"portfolio/application/services"
	"portfolio/infrastructure/config"
	"portfolio/infrastructure/persistence/jsonfile"
	"portfolio/interfaces/http/rest"
	"portfolio/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config            *config.Config
	Logger            *zap.Logger
	Store             ports.DocumentStore
	Publisher         ports.EventPublisher
	Metrics           *observability.Collector
	Tracing           *observability.TracerProvider
	ContentService    *services.ContentService
	AttachmentService *services.AttachmentService
	Router            *rest.Router
	Watcher           *jsonfile.Watcher
}
