// Package api 负责把各路由组装配到 gin 引擎.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/assetvault/pkg/internal/router"
)

// RegisterGroup 注册资产注册表相关的路由组到传入的 gin 引擎.
func RegisterGroup(e *gin.Engine) *gin.Engine {
	v1 := e.Group("/api/v1")

	router.RegisterAssetsRoutes(v1)
	router.RegisterHealthCheckRoute(v1)
	router.RegisterSchedulerRoutes(v1)

	return e
}
