// Package app wires configuration, store, services and transport together.
package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dog-catalog/internal/core/auth"
	"dog-catalog/internal/core/config"
	"dog-catalog/internal/core/database"
	"dog-catalog/internal/core/logger"
	"dog-catalog/internal/domain"
	"dog-catalog/internal/repo"
	"dog-catalog/internal/service"
	"dog-catalog/internal/transport/http/handler"
	"dog-catalog/internal/transport/http/router"
)

func StoreOpts(c config.DB, l *zap.Logger) database.Opts {
	return database.Opts{
		Driver:                 c.Driver,
		DSN:                    c.DSN,
		Username:               c.Username,
		Password:               c.Password,
		MaxOpenConns:           c.MaxOpenConns,
		MaxIdleConns:           c.MaxIdleConns,
		ConnMaxLifetimeMin:     c.ConnMaxLifetimeMin,
		ServerSelectionTimeout: time.Duration(c.ServerSelectionTimeoutSec) * time.Second,
		SocketTimeout:          time.Duration(c.SocketTimeoutSec) * time.Second,
		HealthInterval:         time.Duration(c.HealthIntervalSec) * time.Second,
		LogLevel:               c.LogLevel,
		Logger:                 logger.GormWriter(l),
	}
}

// NewStore 构造连接管理器（不建连）；开启 AutoMigrate 时每次建连后迁移
func NewStore(c config.DB, l *zap.Logger) *database.Manager {
	m := database.NewManager(StoreOpts(c, l), l)
	if c.AutoMigrate {
		m.OnConnect = Migrate
	}
	return m
}

func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(domain.Models()...)
}

func JWT(c config.JWT) *auth.JWTer {
	return &auth.JWTer{
		Secret: []byte(c.Secret),
		Issuer: c.Issuer,
		TTL:    time.Duration(c.AccessTokenTTLMin) * time.Minute,
	}
}

// NewEngine 组装 HTTP 入口：仓储 → 服务 → handler → 路由
func NewEngine(cfg *config.Config, m *database.Manager, jwter *auth.JWTer, l *zap.Logger) *gin.Engine {
	catalog := service.NewCatalogService(repo.NewListingRepo(m), l)
	authSvc := service.NewAuthService(repo.NewAccountRepo(m), repo.NewRoleRepo(m), jwter, l)

	return router.NewEngine(router.Deps{
		Log:            l,
		JWT:            jwter,
		CookieName:     cfg.JWT.CookieName,
		AllowOrigins:   cfg.App.HTTP.AllowOrigins,
		RequestTimeout: time.Duration(cfg.App.HTTP.RequestTimeout) * time.Second,
		Health:         m.Ping,
	},
		handler.NewAuthHandler(authSvc, handler.CookieOpts{Name: cfg.JWT.CookieName, Secure: cfg.JWT.CookieSecure}, l),
		handler.NewListingHandler(catalog, l),
	)
}
