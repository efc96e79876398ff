package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"dog-catalog/internal/core/auth"
	"dog-catalog/internal/core/server"
	mdw "dog-catalog/internal/transport/http/middleware"
	resp "dog-catalog/internal/transport/http/response"
)

type Deps struct {
	Log            *zap.Logger
	JWT            *auth.JWTer
	CookieName     string
	AllowOrigins   []string
	RequestTimeout time.Duration
	// Health 探测存储是否可用（/health）
	Health func(ctx context.Context) error
}

func NewEngine(d Deps, mods ...APIModule) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 10 * time.Second
	}
	r := server.NewRouter(d.Log, d.AllowOrigins)

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(d.RequestTimeout),
		mdw.Session(d.JWT, d.CookieName),
	)

	// 健康检查：存储不可达时 503
	r.GET("/health", func(c *gin.Context) {
		if d.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()
			if err := d.Health(ctx); err != nil {
				d.Log.Warn("health check failed", zap.Error(err))
				resp.Abort(c, http.StatusServiceUnavailable, "store unavailable")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": 1})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var reg Registry
	reg.Register(mods...)
	reg.Mount(&r.RouterGroup)
	return r
}
