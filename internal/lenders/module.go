// Package lenders provides the lender registry bounded context module.
package lenders

import (
	"context"

	"lending_crm_backend/internal/events"
	apphttp "lending_crm_backend/internal/http"
	"lending_crm_backend/internal/lenders/domain"
	"lending_crm_backend/internal/lenders/handler"
	"lending_crm_backend/internal/lenders/repository"
	"lending_crm_backend/internal/lenders/service"
	"lending_crm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the lenders bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

// NewModule wires the lender repository, service and handler, then seeds
// the database from the YAML registry file.
func NewModule(ctx context.Context, pool *pgxpool.Pool, eventBus events.Bus, registryPath string, log *logger.Logger) (*Module, error) {
	entries, err := LoadRegistry(registryPath)
	if err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	svc := service.New(repo, eventBus, log)

	seed := make([]domain.Lender, len(entries))
	for i, e := range entries {
		seed[i] = domain.Lender{
			Code:             e.Code,
			Name:             e.Name,
			Active:           e.Active,
			PincodeWhitelist: e.PincodeWhitelist,
			PincodeBlacklist: e.PincodeBlacklist,
		}
	}
	if err := svc.Seed(ctx, seed); err != nil {
		return nil, err
	}

	return &Module{handler: handler.New(svc), svc: svc}, nil
}

// Service exposes the lender service for other modules (scheduler tasks).
func (m *Module) Service() *service.Service {
	return m.svc
}

func (m *Module) Name() string {
	return "lenders"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/lenders")
	admin := ctx.Admin.Group("/lenders")
	m.handler.RegisterRoutes(group, admin, ctx.UploadRateLimiter.RateLimit())
}
