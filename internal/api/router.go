package api

import (
	_ "embed"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"gatelog/internal/auth"
	"gatelog/internal/httpmiddleware"
)

//go:embed openapi.json
var openAPI []byte

// RouterConfig carries the transport settings of NewRouter.
type RouterConfig struct {
	JWTIssuer       string
	JWTSigningKey   string
	RateLimitPerMin int
	CORSOrigins     []string
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.RequestID())
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.Metrics())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.healthz)
	r.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openAPI)
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/openapi.json")))

	r.POST("/v1/stations/register", h.registerStation)
	r.POST("/v1/stations/refresh", h.refreshStation)

	v1 := r.Group("/v1", auth.StationAuth(cfg.JWTSigningKey, cfg.JWTIssuer))
	v1.GET("/options", h.options)

	entries := v1.Group("/entries")
	entries.GET("", h.listEntries)
	entries.GET("/filters", h.entryFilters)
	entries.POST("/scan", h.recordScan)
	entries.POST("/manual", h.recordManual)
	entries.POST("/:id/exit", h.quickExit)
	v1.GET("/stats", h.stats)

	people := v1.Group("/people")
	people.POST("", h.addPerson)
	people.GET("", h.listPeople)
	people.GET("/filters", h.personFilters)
	people.GET("/:id", h.getPerson)
	people.DELETE("/:id", h.deletePerson)
	people.POST("/:id/qr/toggle", h.toggleQR)
	people.GET("/:id/qr", h.downloadQR)

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", httpmiddleware.RequestIDHeader},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		MaxAge:           24 * time.Hour,
	}
	// tokens travel in the Authorization header, no cookies
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
