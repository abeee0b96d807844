package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/analysis"
	googleauth "compliance-backend/internal/auth"
	"compliance-backend/internal/controls"
	"compliance-backend/internal/documents"
	"compliance-backend/internal/matches"
	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers the router mounts. The bootstrap package
// builds the dependency graph; the router only wires HTTP plumbing.
type RouterDeps struct {
	Config           config.Config
	ControlsHandler  *controls.Handler
	DocumentsHandler *documents.Handler
	MatchesHandler   *matches.Handler
	AnalysisHandler  *analysis.Handler
	GoogleAuth       *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"ANALYSE": {Rate: 0.5, Burst: 3},
			},
			GroupFor: analysisRateGroup,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	registerMeRoutes(api)
	if deps.ControlsHandler != nil {
		deps.ControlsHandler.RegisterRoutes(api)
	}
	if deps.DocumentsHandler != nil {
		deps.DocumentsHandler.RegisterRoutes(api)
	}
	if deps.MatchesHandler != nil {
		deps.MatchesHandler.RegisterRoutes(api)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}

	return r
}

// analysisRateGroup throttles assessment streams harder than plain reads.
func analysisRateGroup(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && pathHasSuffix(c.FullPath(), "/analyze") {
		return "ANALYSE"
	}
	return ""
}

func pathHasSuffix(path, suffix string) bool {
	return len(path) >= len(suffix) && path[len(path)-len(suffix):] == suffix
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
