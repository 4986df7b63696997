// Package handle 提供请求处理器的实现，处理资产注册表的 HTTP 请求.
package handle

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/assetvault/pkg/internal/model"
	"github.com/yeisme/assetvault/pkg/rule"
)

func DefaultHandler(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"message": "Not Implemented"})
}

// sessionUser 提取会话用户：认证代理注入的 Header 优先 -> query 参数 ->
// 非 Release 模式默认 test-user（便于测试）.
func sessionUser(c *gin.Context) (model.User, error) {
	email := strings.TrimSpace(c.GetHeader("X-Auth-Request-Email"))
	if email == "" {
		email = strings.TrimSpace(c.GetHeader("X-Forwarded-Email"))
	}

	if email == "" {
		email = strings.TrimSpace(c.Query("user"))
	}

	if email == "" && gin.Mode() != gin.ReleaseMode {
		email = "test-user@example.com"
	}

	// 使用 validator 验证用户名格式为 email
	if err := rule.ValidateVar(email, "required,email"); err != nil {
		return model.User{}, err
	}

	name := strings.TrimSpace(c.GetHeader("X-Auth-Request-Preferred-Username"))
	if name == "" {
		name = strings.TrimSpace(c.GetHeader("X-Auth-Request-User"))
	}

	if name == "" {
		// 没有显示名时退回邮箱前缀
		name = strings.SplitN(email, "@", 2)[0]
	}

	return model.User{
		ID:     email,
		Name:   name,
		Email:  email,
		Avatar: strings.TrimSpace(c.GetHeader("X-Auth-Request-Picture")),
	}, nil
}
