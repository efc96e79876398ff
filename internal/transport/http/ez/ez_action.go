package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dog-catalog/internal/domain"
	mdw "dog-catalog/internal/transport/http/middleware"
	resp "dog-catalog/internal/transport/http/response"
)

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, log: l}
}

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method string   // "GET" | "POST" | "PUT" | "DELETE"
	Path   string   // 例："/auth/login"、"/listings/:id"
	Binder Binder   // 绑定方式
	Auth   bool     // 是否要求登录
	Roles  []string // 限定角色（可选，隐含 Auth）
	Status int      // 成功状态码，默认 200
	// NotFoundMsg 覆盖 domain.ErrNotFound 的提示
	NotFoundMsg string
	Handler     func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 在当前 EZ 下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default:
		}
		if bindErr != nil {
			resp.Abort(c, http.StatusBadRequest, "invalid request body: "+bindErr.Error())
			return
		}

		// 2) 执行
		out, err := a.Handler(c, &in)

		// 3) 统一错误映射
		if err != nil {
			code, body := e.mapError(err, a.NotFoundMsg)
			if code >= http.StatusInternalServerError {
				e.log.Error("action failed",
					zap.String("rid", c.GetString(mdw.KeyRequestID)),
					zap.String("path", a.Path),
					zap.Int("status", code),
					zap.Error(err))
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(code, body)
			return
		}
		status := a.Status
		if status == 0 {
			status = http.StatusOK
		}
		c.JSON(status, out)
	}

	// 鉴权/角色在绑定之前：未登录 401，角色不符 403
	var chain []gin.HandlerFunc
	switch {
	case len(a.Roles) > 0:
		chain = append(chain, mdw.RequireRole(a.Roles...))
	case a.Auth:
		chain = append(chain, mdw.RequireAuth())
	}
	chain = append(chain, h)

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, chain...)
	case http.MethodPut:
		e.g.PUT(a.Path, chain...)
	case http.MethodPatch:
		e.g.PATCH(a.Path, chain...)
	case http.MethodDelete:
		e.g.DELETE(a.Path, chain...)
	default: // 默认 POST
		e.g.POST(a.Path, chain...)
	}
}

// mapError 把领域错误翻译成状态码；5xx 不向调用方透露细节
func (e EZ) mapError(err error, notFoundMsg string) (int, resp.ErrorBody) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		body := resp.Error(http.StatusBadRequest, "validation failed")
		body.Fields = ve.Fields
		return http.StatusBadRequest, body
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, resp.Error(http.StatusBadRequest, "validation failed")
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, resp.Error(http.StatusNotFound, notFoundMsg)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, resp.Error(http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, resp.Error(http.StatusUnauthorized, "authentication required")
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, resp.Error(http.StatusForbidden, "admin role required")
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable, resp.Error(http.StatusServiceUnavailable, "service unavailable")
	default:
		return http.StatusInternalServerError, resp.Error(http.StatusInternalServerError, "internal error")
	}
}
