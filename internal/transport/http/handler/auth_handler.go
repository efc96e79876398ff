package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"dog-catalog/internal/service"
	httpez "dog-catalog/internal/transport/http/ez"
	mdw "dog-catalog/internal/transport/http/middleware"
	resp "dog-catalog/internal/transport/http/response"
)

type authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*service.Session, error)
	Resolve(token string) (*service.Session, error)
}

type CookieOpts struct {
	Name   string
	Secure bool
}

// AuthHandler 登录/登出/当前会话
type AuthHandler struct {
	svc    authenticator
	cookie CookieOpts
	log    *zap.Logger
	// 登录接口按 IP 限速
	LoginRPS   rate.Limit
	LoginBurst int
}

func NewAuthHandler(svc authenticator, cookie CookieOpts, l *zap.Logger) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = mdw.DefaultCookie
	}
	return &AuthHandler{svc: svc, cookie: cookie, log: l, LoginRPS: rate.Every(time.Second), LoginBurst: 10}
}

func (h *AuthHandler) Priority() int { return 10 }

type loginIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) MountAPI(g *gin.RouterGroup) {
	authG := g.Group("/auth")
	ez := httpez.New(authG, h.log)

	login := httpez.New(authG.Group("", mdw.RateLimitPerIP(h.LoginRPS, h.LoginBurst)), h.log)
	httpez.RegisterAction(login, httpez.Action[loginIn, *service.Session]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (*service.Session, error) {
			s, err := h.svc.Authenticate(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				return nil, err
			}
			h.setCookie(c, s.Token, int(time.Until(s.ExpiresAt).Seconds()))
			return s, nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, resp.Success]{
		Method: http.MethodPost,
		Path:   "/logout",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Success, error) {
			h.setCookie(c, "", -1)
			return resp.OK(), nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, *service.Session]{
		Method: http.MethodGet,
		Path:   "/session",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*service.Session, error) {
			return h.svc.Resolve(mdw.TokenFrom(c, h.cookie.Name))
		},
	})
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}
