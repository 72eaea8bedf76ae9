package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kayler1303/ACS-sub001/internal/documents"
	"github.com/Kayler1303/ACS-sub001/internal/leases"
	"github.com/Kayler1303/ACS-sub001/internal/overrides"
	"github.com/Kayler1303/ACS-sub001/internal/shared/config"
	"github.com/Kayler1303/ACS-sub001/internal/shared/metrics"
	"github.com/Kayler1303/ACS-sub001/internal/shared/server/middleware"
	"github.com/Kayler1303/ACS-sub001/internal/shared/server/respond"
	"github.com/Kayler1303/ACS-sub001/internal/verifications"
)

// RouterDeps carries the handlers route registration needs.
type RouterDeps struct {
	Config              config.Config
	LeaseHandler        *leases.Handler
	VerificationHandler *verifications.Handler
	DocumentHandler     *documents.Handler
	OverrideHandler     *overrides.Handler
}

// NewRouter constructs the gin engine with middleware and routes registered.
// Health and metrics stay outside the auth boundary; override resolution
// additionally requires the admin role.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	protected := api.Group("")
	protected.Use(middleware.Auth(deps.Config.Env))
	registerMeRoutes(protected)
	if deps.LeaseHandler != nil {
		deps.LeaseHandler.RegisterRoutes(protected)
	}
	if deps.VerificationHandler != nil {
		deps.VerificationHandler.RegisterRoutes(protected)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(protected)
	}

	admin := protected.Group("")
	admin.Use(middleware.RequireAdmin())
	if deps.OverrideHandler != nil {
		deps.OverrideHandler.RegisterRoutes(admin)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
