package http

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/sujalbistaa/polls/internal/config"
	"github.com/sujalbistaa/polls/internal/ws"
)

const limiterCleanupInterval = 10 * time.Minute

// SetupRoutes configures all application routes and middleware. Background
// work started here stops when ctx is done.
func SetupRoutes(ctx context.Context, router *gin.Engine, cfg config.Config, env *Env, gatherer prometheus.Gatherer) {

	// --- Middleware ---

	// ClientIP feeds the vote limiter; only listed proxies may set
	// X-Forwarded-For.
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		env.Logger.Errorw("invalid TRUSTED_PROXIES, trusting none", "error", err)
		_ = router.SetTrustedProxies(nil)
	}

	router.Use(gin.Recovery())
	router.Use(RequestLoggerMiddleware(env.Logger, env.Metrics))
	router.Use(SecurityHeadersMiddleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Admin-Token", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: cfg.CORSOrigin != "*",
	}))

	router.SetHTMLTemplate(LoadTemplates())

	// --- Rate Limiter Setup ---
	limiter := NewIPRateLimiter(rate.Limit(cfg.VoteRateRPS), cfg.VoteRateBurst)
	go limiter.Cleanup(ctx, limiterCleanupInterval)
	voteLimit := RateLimitMiddleware(limiter, rateLimitedPage)
	apiVoteLimit := RateLimitMiddleware(limiter, rateLimitedJSON)

	// --- Pages ---

	router.GET("/", env.Home)
	router.GET("/polls/", env.Index)
	router.GET("/polls/:id/", env.Detail)
	router.GET("/polls/:id/results/", env.Results)
	router.POST("/polls/:id/vote/", voteLimit, env.Vote)
	router.StaticFS("/static", staticFiles())

	// --- API Routes ---

	api := router.Group("/api")
	{
		api.GET("/polls", env.APIListPolls)
		api.GET("/polls/:id", env.APIGetPoll)
		api.GET("/polls/:id/results", env.APIGetResults)
		api.POST("/polls/:id/vote", apiVoteLimit, env.APIVote)
	}

	if cfg.AdminEnabled() {
		admin := api.Group("/admin", AdminAuthMiddleware(cfg.AdminToken))
		{
			admin.POST("/polls", env.CreatePoll)
			admin.POST("/polls/:id/choices", env.AddChoice)
			admin.DELETE("/polls/:id", env.DeletePoll)
		}
	} else {
		env.Logger.Warn("X_ADMIN_TOKEN not set, admin API disabled")
	}

	// --- WebSocket Route ---

	router.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(env.Hub, c.Writer, c.Request)
	})

	// --- Operations ---

	router.GET("/healthz", env.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
