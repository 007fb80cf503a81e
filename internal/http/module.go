// Package http defines how feature modules plug into the API router.
package http

import (
	"context"

	"estate_portal_backend/platform/config"
	"estate_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Module is a feature area that mounts its own routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the route groups a module may mount on. Each group
// already has its middleware attached.
type RouterContext struct {
	// Public is /api/v1/public: anonymous and rate limited per client IP.
	Public *gin.RouterGroup
	// Protected is /api/v1 behind bearer-token authentication.
	Protected *gin.RouterGroup
	// Admin is /api/v1/admin, restricted to the admin role.
	Admin *gin.RouterGroup
}

// RouterConfig is the configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs the readiness probe.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is assembled by the composition root and handed to router.New.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}
