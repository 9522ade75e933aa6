package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raktseva/raktseva-api/internal/handler"
	authHandler "github.com/raktseva/raktseva-api/internal/handler/auth"
	bloodrequestHandler "github.com/raktseva/raktseva-api/internal/handler/bloodrequest"
	donorHandler "github.com/raktseva/raktseva-api/internal/handler/donor"
	hospitalHandler "github.com/raktseva/raktseva-api/internal/handler/hospital"
	"github.com/raktseva/raktseva-api/internal/middleware"
	"github.com/raktseva/raktseva-api/pkg/metrics"
)

type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
	Timeout        time.Duration
	CORS           middleware.CORSConfig
}

type Router struct {
	engine        *gin.Engine
	authMw        *middleware.AuthMiddleware
	h             *handler.Handler
	authH         *authHandler.Handler
	donorH        *donorHandler.Handler
	hospitalH     *hospitalHandler.Handler
	bloodrequestH *bloodrequestHandler.Handler
	metrics       *metrics.Metrics
}

func New(
	authMw *middleware.AuthMiddleware,
	h *handler.Handler,
	authH *authHandler.Handler,
	donorH *donorHandler.Handler,
	hospitalH *hospitalHandler.Handler,
	bloodrequestH *bloodrequestHandler.Handler,
	m *metrics.Metrics,
	cfg Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		engine:        gin.New(),
		authMw:        authMw,
		h:             h,
		authH:         authH,
		donorH:        donorH,
		hospitalH:     hospitalH,
		bloodrequestH: bloodrequestH,
		metrics:       m,
	}

	middleware.RegisterValidators()

	r.engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		r.metricsMiddleware(),
		middleware.ErrorHandler(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: cfg.Timeout}),
		middleware.CORS(cfg.CORS),
	)

	if cfg.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		})
		r.engine.Use(limiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	health := api.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
		health.GET("/metrics", r.h.MetricsHandler)
	}

	r.authH.RegisterRoutes(api)
	r.donorH.RegisterRoutes(api, r.authMw)
	r.hospitalH.RegisterRoutes(api, r.authMw)
	r.bloodrequestH.RegisterRoutes(api, r.authMw)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		r.metrics.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		r.metrics.RequestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		if c.Writer.Status() >= 400 {
			r.metrics.ErrorTotal.WithLabelValues(c.Request.Method, path).Inc()
		}
	}
}
