package types

// LikeAssetResponse 点赞翻转后的状态.
type LikeAssetResponse struct {
	ID string `json:"id"`
	// Liked 翻转后的状态.
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

// DownloadAssetResponse 下载计数自增后的状态.
type DownloadAssetResponse struct {
	ID            string `json:"id"`
	DownloadCount int64  `json:"download_count"`
	// FileURL 方便客户端直接跳转下载.
	FileURL string `json:"file_url,omitempty"`
}

// ReportAssetResponse 举报计数自增后的状态.
type ReportAssetResponse struct {
	ID      string `json:"id"`
	Reports int    `json:"reports"`
}
