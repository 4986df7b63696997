// Package router 管理路由配置，负责将路径绑定到 pkg/internal/handle 的处理器.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/assetvault/pkg/internal/handle"
)

// RegisterAssetsRoutes 注册资产注册表相关路由.
// 绑定的路径（假定上层会用 g := r.Group("/api/v1")）：
//
//	POST   /assets               -> 上传资产（multipart）
//	GET    /assets               -> 列表/检索
//	GET    /assets/:id           -> 详情
//	DELETE /assets/:id           -> 删除（注册表权威，工件尽力清理）
//	POST   /assets/:id/like      -> 点赞翻转
//	POST   /assets/:id/download  -> 下载计数
//	POST   /assets/:id/report    -> 举报计数
func RegisterAssetsRoutes(g *gin.RouterGroup) {
	assetsRoutes := g.Group("/assets")
	{
		assetsRoutes.POST("", handle.UploadAsset)
		assetsRoutes.GET("", handle.ListAssets)

		singleGroup := assetsRoutes.Group("/:id")
		{
			singleGroup.GET("", handle.GetAsset)
			singleGroup.DELETE("", handle.RemoveAsset)

			singleGroup.POST("/like", handle.LikeAsset)
			singleGroup.POST("/download", handle.DownloadAsset)
			singleGroup.POST("/report", handle.ReportAsset)
		}
	}
}
