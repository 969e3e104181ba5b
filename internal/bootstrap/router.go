package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spatial-studio/spatial-backend/config"
	"github.com/spatial-studio/spatial-backend/internal/analysis"
	httpapi "github.com/spatial-studio/spatial-backend/internal/api/http"
	"github.com/spatial-studio/spatial-backend/internal/api/http/middleware"
	"github.com/spatial-studio/spatial-backend/internal/auth"
	projecthttp "github.com/spatial-studio/spatial-backend/internal/projects/http"
	"github.com/spatial-studio/spatial-backend/internal/projects/service"
)

// RouterDeps carries everything the HTTP layer needs, constructed once at
// startup and passed by reference.
type RouterDeps struct {
	ServiceName string
	Version     string
	Config      *config.Config
	DB          *pgxpool.Pool
	Uploads     *service.UploadService
	Dispatcher  *analysis.Dispatcher
	Verifier    auth.SessionVerifier
	Roles       auth.RoleStore
}

// BuildRouter assembles the Gin engine: CORS and request IDs everywhere,
// the access gate in front of the API, and the upload routes rate-limited.
func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", auth.HeaderServiceKey,
		"X-User-Id", "X-User-Email", "X-User-Role", "X-Request-Id"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.RequestIDMiddleware())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB)
	healthHandler.RegisterRoutes(r)

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"service": dep.ServiceName, "version": dep.Version})
	})

	api := r.Group("/api/v1")
	api.Use(auth.Gate(auth.GateConfig{
		ServiceKey: dep.Config.Auth.ServiceKey,
		Verifier:   dep.Verifier,
		Roles:      dep.Roles,
	}))

	handler := projecthttp.New(dep.Uploads, dep.Dispatcher, projecthttp.Config{
		ServiceName:       dep.ServiceName,
		PublicBaseURL:     dep.Config.Storage.PublicURL,
		Bucket:            dep.Config.Storage.Bucket,
		StorageConfigured: dep.Config.StorageConfigured(),
		VisionConfigured:  dep.Config.VisionConfigured(),
	})
	handler.Register(api, middleware.RateLimit(dep.Config.Upload.RateRPS, dep.Config.Upload.RateBurst))

	return r
}
