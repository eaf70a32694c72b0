package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"content-forge/cmd/api/handlers"
	"content-forge/cmd/api/middleware"
	"content-forge/cmd/api/services"
)

// Options 는 라우터 구성 값이다.
type Options struct {
	CORSOrigins []string
	// ScreenshotsDir 가 비어 있지 않으면 /screenshots 로 정적 제공한다.
	ScreenshotsDir string
}

// NewEngine 은 gin 라우트를 구성한다.
func NewEngine(svc *services.GenerationService, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestTrace())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.ScreenshotsDir != "" {
		r.Static("/screenshots", opts.ScreenshotsDir)
	}

	api := r.Group("/api/v1")
	{
		api.POST("/contents/:id/generate", handlers.GenerateContentHandler(svc))
		api.GET("/runs/:id", handlers.GetRunHandler(svc))
		api.POST("/runs/:id/continue", handlers.ContinueRunHandler(svc))
		api.POST("/webhooks/research", handlers.ResearchWebhookHandler(svc))
	}
	return r
}

// New 는 CORS 로 감싼 http.Handler 를 돌려준다.
func New(svc *services.GenerationService, opts Options) http.Handler {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "X-Span-Id"},
	})
	return c.Handler(NewEngine(svc, opts))
}
