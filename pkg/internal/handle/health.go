// Package handle 新增健康检查处理器实现.
package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/assetvault/pkg/context"
)

const timeout = 2 * time.Second

// HealthStore 注册表存储健康检查：列一次仓库根目录.
func HealthStore(c *gin.Context) {
	git := ctxPkg.GetGitClient(c.Request.Context())
	if git == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "store", "status": "unhealthy", "error": "store client not initialized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	if err := git.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "store", "status": "unhealthy", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "store", "status": "ok"})
}

// HealthKV KV 缓存健康检查：做一次写读探针.
func HealthKV(c *gin.Context) {
	kvc := ctxPkg.GetKVClient(c.Request.Context())
	if kvc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "kv", "status": "unhealthy", "error": "kv client not initialized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	if err := kvc.Set(ctx, "health:probe", []byte("ok"), time.Minute); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "kv", "status": "unhealthy", "error": err.Error()})
		return
	}

	if _, err := kvc.Get(ctx, "health:probe"); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "kv", "status": "unhealthy", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "kv", "status": "ok"})
}

// HealthMQ 消息队列健康检查.
func HealthMQ(c *gin.Context) {
	mqc := ctxPkg.GetMQClient(c.Request.Context())
	if mqc == nil { // publisher 与 subscriber 初始化在 New 中, 判空即可
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "mq", "status": "unhealthy", "error": "mq client not initialized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "mq", "status": "ok"})
}
