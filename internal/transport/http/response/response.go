package response

import "github.com/gin-gonic/gin"

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Error 失败响应（可以传自定义 msg 覆盖默认）
func Error(code int, customMsg string) ErrorBody {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	if msg == "" {
		msg = "error"
	}
	return ErrorBody{Message: msg}
}

// Abort 写出错误并终止后续 handler
func Abort(c *gin.Context, code int, customMsg string) {
	c.AbortWithStatusJSON(code, Error(code, customMsg))
}

// Success is the body of operations that return no resource.
type Success struct {
	Success bool `json:"success"`
}

func OK() Success { return Success{Success: true} }
