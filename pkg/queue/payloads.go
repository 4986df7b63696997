package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// -------------------------- 资产生命周期领域 --------------------------

// AssetRef 标识注册表中的一个资产条目.
type AssetRef struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	Category   string `json:"category,omitempty"`
	FileType   string `json:"file_type,omitempty"`
	FolderPath string `json:"folder_path,omitempty"`
}

// AssetStoredPayload 资产条目已提交进注册表.
type AssetStoredPayload struct {
	Asset AssetRef `json:"asset"`
	// Uploader 触发上传的用户标识.
	Uploader string `json:"uploader,omitempty"`
	// Replaced 为 true 表示覆盖了同 ID 的旧条目.
	Replaced bool `json:"replaced,omitempty"`
}

// AssetRemovedPayload 资产条目已移除，附带工件清理结果.
type AssetRemovedPayload struct {
	Asset AssetRef `json:"asset"`
	// CleanedFiles 成功删除的工件数量.
	CleanedFiles int `json:"cleaned_files"`
	// OrphanedFiles 删除失败、留待后台清扫的工件数量.
	OrphanedFiles int `json:"orphaned_files,omitempty"`
}

// UploadFailedPayload 上传管线中途失败.
type UploadFailedPayload struct {
	AssetID string `json:"asset_id"`
	// Step 失败发生的步骤（thumbnail/video/primary/metadata/registry）.
	Step  string `json:"step"`
	Error string `json:"error"`
}

// -------------------------- 资产互动领域 --------------------------

// AssetLikedPayload 点赞状态翻转后的结果.
type AssetLikedPayload struct {
	Asset  AssetRef `json:"asset"`
	UserID string   `json:"user_id"`
	// Liked 翻转后的状态：true 表示新增点赞，false 表示取消.
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

// AssetDownloadedPayload 下载计数自增后的结果.
type AssetDownloadedPayload struct {
	Asset     AssetRef `json:"asset"`
	Downloads int64    `json:"downloads"`
}

// AssetReportedPayload 举报计数自增后的结果.
type AssetReportedPayload struct {
	Asset   AssetRef `json:"asset"`
	UserID  string   `json:"user_id,omitempty"`
	Reports int      `json:"reports"`
}

// -------------------------- 注册表提交领域 --------------------------

// RegistryUpdatedPayload 注册表文件成功提交了新版本.
type RegistryUpdatedPayload struct {
	Path string `json:"path"`
	// SHA 提交后的注册表版本令牌.
	SHA string `json:"sha"`
	// Assets 提交后注册表中的条目总数.
	Assets  int    `json:"assets"`
	Message string `json:"message,omitempty"`
}

// RegistryConflictPayload 条件写被并发提交抢先.
type RegistryConflictPayload struct {
	Path string `json:"path"`
	// StaleSHA 本次写入持有的过期版本令牌.
	StaleSHA string `json:"stale_sha,omitempty"`
	// Attempt 第几次尝试（从 1 开始）.
	Attempt int    `json:"attempt"`
	Op      string `json:"op,omitempty"`
}

// RegistrySnapshotPayload 注册表快照已写入备份路径.
type RegistrySnapshotPayload struct {
	Path   string `json:"path"`
	SHA    string `json:"sha,omitempty"`
	Assets int    `json:"assets"`
}

// -------------------------- 工件维护领域 --------------------------

// ArtifactSweptPayload 孤儿工件目录清扫结果.
type ArtifactSweptPayload struct {
	// Folders 被清理的工件目录.
	Folders []string `json:"folders,omitempty"`
	Removed int      `json:"removed"`
	Failed  int      `json:"failed,omitempty"`
}
