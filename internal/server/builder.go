package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/credential"
	ch "antigravity2api-go/internal/handlers/claude"
	"antigravity2api-go/internal/handlers/common"
	gh "antigravity2api-go/internal/handlers/gemini"
	oh "antigravity2api-go/internal/handlers/openai"
	mw "antigravity2api-go/internal/middleware"
	"antigravity2api-go/internal/upstream"
)

// Dependencies are the long-lived services shared by every handler.
type Dependencies struct {
	Config   *config.Manager
	Pool     *credential.Manager
	Upstream *upstream.Client
}

// BuildEngine assembles the gin engine with the full middleware chain and
// every API surface mounted.
func BuildEngine(deps Dependencies) *gin.Engine {
	cfg := deps.Config.Get()
	if !cfg.Security.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		mw.Recovery(),
		mw.RequestID(),
		mw.RequestLogger(),
		mw.Metrics(),
	)

	dispatcher := &common.Dispatcher{Pool: deps.Pool, Upstream: deps.Upstream}
	openaiHandler := oh.NewHandler(deps.Config, dispatcher)
	claudeHandler := ch.NewHandler(deps.Config, dispatcher)
	geminiHandler := gh.NewHandler(deps.Config, dispatcher, deps.Pool, deps.Upstream)

	engine.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	engine.GET("/metrics", mw.MetricsHandler)
	engine.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": constants.GetFullVersion()})
	})

	authed := engine.Group("", mw.UnifiedAuth(mw.AuthConfig{RequiredKey: cfg.Security.APIKey}))
	if cfg.RateLimit.Enabled {
		authed.Use(mw.RateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	v1 := authed.Group("/v1")
	{
		v1.POST("/chat/completions", openaiHandler.ChatCompletions)
		v1.POST("/completions", openaiHandler.Completions)
		v1.POST("/responses", openaiHandler.Responses)
		v1.GET("/models", openaiHandler.Models)
		v1.POST("/images/generations", openaiHandler.ImageGenerations)
		v1.POST("/images/edits", openaiHandler.ImageEdits)

		v1.POST("/messages", claudeHandler.Messages)
		v1.GET("/messages/models", claudeHandler.Models)
	}

	v1beta := authed.Group("/v1beta")
	{
		v1beta.GET("/models", geminiHandler.ListModels)
		v1beta.GET("/models/*modelAction", geminiHandler.GetModel)
		v1beta.POST("/models/*modelAction", geminiHandler.Generate)
	}

	return engine
}
