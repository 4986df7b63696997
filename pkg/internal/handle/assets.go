package handle

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/assetvault/pkg/internal/model"
	"github.com/yeisme/assetvault/pkg/internal/service"
	"github.com/yeisme/assetvault/pkg/internal/storage/gitstore"
	"github.com/yeisme/assetvault/pkg/internal/types"
	"github.com/yeisme/assetvault/pkg/log"
)

// UploadAsset 处理资产上传：multipart 表单携带描述字段与最多三个工件文件
// （file 必填，thumbnail/video 可选），全部写入后提交注册表.
func UploadAsset(c *gin.Context) {
	user, err := sessionUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: err.Error()})
		return
	}

	var form types.UploadAssetForm
	if err := c.ShouldBind(&form); err != nil {
		log.Logger().Warn().Err(err).Msg("invalid upload form")
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})

		return
	}

	primary, err := readFormFile(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "primary file is required"})
		return
	}

	in := service.UploadInput{
		Form:    form,
		Primary: *primary,
	}

	if thumb, err := readFormFile(c, "thumbnail"); err == nil {
		in.Thumbnail = thumb
	}

	if video, err := readFormFile(c, "video"); err == nil {
		in.Video = video
	}

	svc := service.NewRegistryService(c.Request.Context())

	asset, err := svc.UploadAsset(c.Request.Context(), user, in)
	if err != nil {
		var pe *service.PartialUploadError
		if errors.As(err, &pe) {
			log.Logger().Error().Err(pe).Str("asset_id", pe.AssetID).Str("step", pe.Step).Msg("upload failed")
			c.JSON(http.StatusBadGateway, types.ErrorResponse{Error: pe.Error()})

			return
		}

		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})

		return
	}

	c.JSON(http.StatusCreated, types.UploadAssetResponse{Asset: asset})
}

// readFormFile 把一个 multipart 文件域整体读进内存.
func readFormFile(c *gin.Context, field string) (*service.ArtifactFile, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func(f multipart.File) { _ = f.Close() }(f)

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return &service.ArtifactFile{Name: fh.Filename, Data: data}, nil
}

// ListAssets 列出注册表条目，支持关键词检索、分类/类型/作者过滤与分页.
// 展示顺序按时间戳倒序；注册表的原始顺序属于存储层，这里不依赖它.
func ListAssets(c *gin.Context) {
	var req types.ListAssetsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	}

	svc := service.NewRegistryService(c.Request.Context())

	assets, _, err := svc.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, types.ErrorResponse{Error: err.Error()})
		return
	}

	filtered := filterAssets(assets, &req)
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.After(filtered[j].Timestamp)
	})

	total := len(filtered)
	filtered = paginate(filtered, req.Offset, req.Limit)

	c.JSON(http.StatusOK, types.ListAssetsResponse{Assets: filtered, Total: total})
}

// filterAssets 应用检索词与字段过滤.
func filterAssets(assets []model.Asset, req *types.ListAssetsRequest) []model.Asset {
	query := strings.ToLower(strings.TrimSpace(req.Query))
	out := make([]model.Asset, 0, len(assets))

	for _, a := range assets {
		if req.Category != "" && a.Category != req.Category {
			continue
		}

		if req.FileType != "" && a.FileType != req.FileType {
			continue
		}

		if req.UserID != "" && a.UserID != req.UserID {
			continue
		}

		if query != "" && !matchesQuery(&a, query) {
			continue
		}

		out = append(out, a)
	}

	return out
}

// matchesQuery 在 ID、标题、描述与关键词上做大小写无关的子串匹配.
func matchesQuery(a *model.Asset, query string) bool {
	if strings.Contains(strings.ToLower(a.ID), query) ||
		strings.Contains(strings.ToLower(a.Title), query) ||
		strings.Contains(strings.ToLower(a.Description), query) {
		return true
	}

	for _, kw := range a.Keywords {
		if strings.Contains(strings.ToLower(kw), query) {
			return true
		}
	}

	return false
}

func paginate(assets []model.Asset, offset, limit int) []model.Asset {
	if offset < 0 {
		offset = 0
	}

	if offset >= len(assets) {
		return []model.Asset{}
	}

	assets = assets[offset:]
	if limit > 0 && limit < len(assets) {
		assets = assets[:limit]
	}

	return assets
}

// GetAsset 返回单个资产详情.
func GetAsset(c *gin.Context) {
	svc := service.NewRegistryService(c.Request.Context())

	asset, err := svc.Find(c.Request.Context(), c.Param("id"))
	if err != nil {
		if service.IsNotFound(err) {
			c.JSON(http.StatusNotFound, types.ErrorResponse{Error: err.Error()})
			return
		}

		c.JSON(http.StatusBadGateway, types.ErrorResponse{Error: err.Error()})

		return
	}

	c.JSON(http.StatusOK, types.GetAssetResponse{Asset: asset})
}

// RemoveAsset 删除资产. 注册表移除是权威步骤，工件清理尽力而为；
// 对不存在的资产幂等地返回成功.
func RemoveAsset(c *gin.Context) {
	if _, err := sessionUser(c); err != nil {
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: err.Error()})
		return
	}

	svc := service.NewRegistryService(c.Request.Context())
	id := c.Param("id")

	cleaned, orphaned, _, err := svc.RemoveAsset(c.Request.Context(), id)
	if err != nil {
		status := http.StatusBadGateway
		if gitstore.IsConflict(err) {
			status = http.StatusConflict
		}

		c.JSON(status, types.ErrorResponse{Error: err.Error()})

		return
	}

	c.JSON(http.StatusOK, types.RemoveAssetResponse{
		ID:            id,
		CleanedFiles:  cleaned,
		OrphanedFiles: orphaned,
	})
}
