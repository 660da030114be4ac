// Package leads provides the lead management bounded context module.
package leads

import (
	"time"

	"lending_crm_backend/internal/events"
	apphttp "lending_crm_backend/internal/http"
	"lending_crm_backend/internal/leads/handler"
	"lending_crm_backend/internal/leads/repository"
	"lending_crm_backend/internal/leads/service"
	"lending_crm_backend/platform/logger"
	"lending_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

// NewModule wires the leads repository, services and handler, and registers
// the domain validation tags shared by other modules.
func NewModule(pool *pgxpool.Pool, rdb *redis.Client, eventBus events.Bus, val *validator.Validator, stagingTTL time.Duration, log *logger.Logger) (*Module, error) {
	if err := service.RegisterDomainTags(val); err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	svc := service.New(repo, eventBus, val, log)
	staging := service.NewStaging(rdb, svc, stagingTTL, log)

	return &Module{
		handler: handler.New(svc, staging),
		svc:     svc,
	}, nil
}

// Service exposes the lead service for other modules (scheduler tasks).
func (m *Module) Service() *service.Service {
	return m.svc
}

func (m *Module) Name() string {
	return "leads"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(group, ctx.UploadRateLimiter.RateLimit())
}
