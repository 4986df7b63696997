package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/assetvault/pkg/internal/service"
	"github.com/yeisme/assetvault/pkg/internal/storage/gitstore"
	"github.com/yeisme/assetvault/pkg/internal/types"
)

// LikeAsset 翻转当前用户对资产的点赞.
func LikeAsset(c *gin.Context) {
	user, err := sessionUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: err.Error()})
		return
	}

	svc := service.NewRegistryService(c.Request.Context())

	asset, liked, err := svc.ToggleLike(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		mutationError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.LikeAssetResponse{
		ID:    asset.ID,
		Liked: liked,
		Likes: len(asset.Likes),
	})
}

// DownloadAsset 下载计数加一并返回文件地址.
func DownloadAsset(c *gin.Context) {
	svc := service.NewRegistryService(c.Request.Context())

	asset, err := svc.IncrementDownload(c.Request.Context(), c.Param("id"))
	if err != nil {
		mutationError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.DownloadAssetResponse{
		ID:            asset.ID,
		DownloadCount: asset.DownloadCount,
		FileURL:       asset.FileURL,
	})
}

// ReportAsset 举报计数加一.
func ReportAsset(c *gin.Context) {
	user, err := sessionUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: err.Error()})
		return
	}

	svc := service.NewRegistryService(c.Request.Context())

	asset, err := svc.IncrementReport(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		mutationError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ReportAssetResponse{
		ID:      asset.ID,
		Reports: asset.Reports,
	})
}

// mutationError 把变更类操作的错误映射为 HTTP 状态码：
// 未找到 -> 404，条件写冲突重试耗尽 -> 409，其余 -> 502.
func mutationError(c *gin.Context, err error) {
	switch {
	case service.IsNotFound(err):
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: err.Error()})
	case gitstore.IsConflict(err):
		c.JSON(http.StatusConflict, types.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusBadGateway, types.ErrorResponse{Error: err.Error()})
	}
}
