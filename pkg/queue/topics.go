// Package queue 定义消息主题常量与通配模式，供发布/订阅使用.
package queue

// 主题命名规范：av.<域>.<动作>[.<状态>]，尽量稳定且向后兼容.
// 域：asset(资产生命周期)、registry(注册表提交)、artifact(工件文件)
// 动作：存储相关(stored/removed)、互动相关(liked/downloaded/reported)、维护相关(swept/snapshot)
// 状态：失败(failed)、冲突(conflict)

const (
	// 资产生命周期领域.
	TopicAssetStored       = "av.asset.stored"        // 资产条目已提交进注册表（上传管线的权威完成点）
	TopicAssetUpdated      = "av.asset.updated"       // 资产条目被整体替换（同 ID 重新上传）
	TopicAssetRemoved      = "av.asset.removed"       // 资产条目已从注册表移除（工件清理尽力而为）
	TopicAssetUploadFailed = "av.asset.upload.failed" // 上传管线中途失败，可能遗留孤儿工件

	// 资产互动领域.
	TopicAssetLiked      = "av.asset.liked"      // 点赞状态翻转（payload 标明翻转后的状态）
	TopicAssetDownloaded = "av.asset.downloaded" // 下载计数自增
	TopicAssetReported   = "av.asset.reported"   // 举报计数自增

	// 注册表提交领域.
	TopicRegistryUpdated  = "av.registry.updated"  // 注册表文件成功提交了新版本
	TopicRegistryConflict = "av.registry.conflict" // 条件写被并发提交抢先，进入重试
	TopicRegistrySnapshot = "av.registry.snapshot" // 注册表定时快照已写入备份路径

	// 工件维护领域.
	TopicArtifactSwept = "av.artifact.swept" // 孤儿工件目录被后台清扫
)

// 主题分组，用于批量操作或权限控制.
var (
	// 资产相关主题集合.
	AssetTopics = []string{
		TopicAssetStored, TopicAssetUpdated, TopicAssetRemoved,
		TopicAssetUploadFailed, TopicAssetLiked, TopicAssetDownloaded,
		TopicAssetReported,
	}

	// 注册表相关主题集合.
	RegistryTopics = []string{
		TopicRegistryUpdated, TopicRegistryConflict, TopicRegistrySnapshot,
	}

	// 工件维护相关主题集合.
	ArtifactTopics = []string{
		TopicArtifactSwept,
	}
)
