// Package bulkdedupe provides the bulk CSV dedupe/lead-creation bounded
// context module.
package bulkdedupe

import (
	"lending_crm_backend/internal/adapters/storage"
	"lending_crm_backend/internal/bulkdedupe/creditsea"
	"lending_crm_backend/internal/bulkdedupe/handler"
	"lending_crm_backend/internal/bulkdedupe/service"
	"lending_crm_backend/internal/email"
	"lending_crm_backend/internal/events"
	apphttp "lending_crm_backend/internal/http"
	"lending_crm_backend/platform/config"
	"lending_crm_backend/platform/logger"
)

// Module is the bulk dedupe bounded context module implementing
// http.Module.
type Module struct {
	handler  *handler.Handler
	registry *service.Registry
}

// NewModule wires the lender registry, the CreditSea workflow and the
// pipeline. archiver and mailer may be nil when the corresponding feature
// is not configured.
func NewModule(cfg config.CreditSeaConfig, archiver *storage.Archiver, mailer email.Sender, eventBus events.Bus, log *logger.Logger) *Module {
	registry := service.NewRegistry()
	registry.Register("creditsea", creditsea.NewClient(cfg, log))

	pipeline := service.NewPipeline(registry, log)

	return &Module{
		handler:  handler.New(pipeline, archiver, mailer, eventBus, log),
		registry: registry,
	}
}

// Registry exposes the workflow registry so deployments can add lenders.
func (m *Module) Registry() *service.Registry {
	return m.registry
}

func (m *Module) Name() string {
	return "bulkdedupe"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/bulk-dedupe")
	m.handler.RegisterRoutes(group, ctx.UploadRateLimiter.RateLimit())
}
