// Package types 定义 HTTP 层的请求与响应结构.
package types

import "github.com/yeisme/assetvault/pkg/internal/model"

// UploadAssetForm 资产上传的多部分表单字段. 三个工件文件
// （thumbnail/video/file）经 multipart 文件域单独提交.
type UploadAssetForm struct {
	Title       string `binding:"required" form:"title"`
	Description string `form:"description"`
	Category    string `binding:"required" form:"category"`
	Credits     string `form:"credits"`
	// Keywords 逗号分隔的检索关键词，可选.
	Keywords string `form:"keywords"`
}

// UploadAssetResponse 上传完成后的资产条目.
type UploadAssetResponse struct {
	Asset model.Asset `json:"asset"`
}

// ListAssetsRequest 列表查询参数.
type ListAssetsRequest struct {
	// Query 针对标题/描述/关键词的模糊检索词.
	Query    string `form:"q"`
	Category string `form:"category"`
	FileType string `form:"file_type"`
	// UserID 只看某个作者的资产.
	UserID string `form:"user_id"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// ListAssetsResponse 列表结果. Total 是过滤后的总数，与分页无关.
type ListAssetsResponse struct {
	Assets []model.Asset `json:"assets"`
	Total  int           `json:"total"`
}

// GetAssetResponse 单个资产详情.
type GetAssetResponse struct {
	Asset model.Asset `json:"asset"`
}

// RemoveAssetResponse 删除结果. 注册表移除是权威事实，
// 工件清理只汇报成果.
type RemoveAssetResponse struct {
	ID            string `json:"id"`
	CleanedFiles  int    `json:"cleaned_files"`
	OrphanedFiles int    `json:"orphaned_files,omitempty"`
}

// ErrorResponse 统一错误响应.
type ErrorResponse struct {
	Error string `json:"error"`
}
