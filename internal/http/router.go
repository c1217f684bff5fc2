package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nurpe/landuse-contracts/internal/http/middleware"
	"github.com/nurpe/landuse-contracts/internal/metrics"
)

type RouterConfig struct {
	Handler        *Handler
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	Environment    string
	Log            zerolog.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(cfg.Log))
	r.Use(middleware.Metrics(cfg.Metrics))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.AllowedOrigins))
	}

	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	cfg.Handler.Register(r)

	return r
}
