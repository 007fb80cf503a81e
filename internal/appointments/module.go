// Package appointments provides the appointments domain module.
package appointments

import (
	"fmt"
	"time"

	"estate_portal_backend/internal/appointments/handler"
	"estate_portal_backend/internal/appointments/repository"
	"estate_portal_backend/internal/appointments/service"
	"estate_portal_backend/internal/appointments/transport"
	apphttp "estate_portal_backend/internal/http"
	"estate_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the appointments domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
	Store   repository.Store
}

// NewModule creates a new appointments module with all dependencies wired.
// deps.Store is filled from pool when left nil.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, deps service.Deps, settings service.Settings, lockTimeout time.Duration) (*Module, error) {
	if err := transport.RegisterValidations(val); err != nil {
		return nil, fmt.Errorf("register appointment validations: %w", err)
	}
	if deps.Store == nil {
		deps.Store = repository.New(pool, lockTimeout)
	}
	svc := service.New(deps, settings)

	return &Module{
		handler: handler.New(svc, val),
		Service: svc,
		Store:   deps.Store,
	}, nil
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "appointments"
}

// RegisterRoutes registers the public, protected and admin appointment routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(ctx.Public)
	m.handler.RegisterRoutes(ctx.Protected)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
