package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// PublishAssetStored 发布 av.asset.stored 事件。
// 注册表提交成功后调用，通知下游消费（统计、缓存失效等）。
// 可通过可选项 opts 注入 TraceID、Producer 等头部信息。
func PublishAssetStored(pub message.Publisher, payload AssetStoredPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAssetStored, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAssetStored, msg)
}

// ParseAssetStored 将 Watermill 消息解析为强类型 Envelope（AssetStoredPayload）。
func ParseAssetStored(msg *message.Message) (Message[AssetStoredPayload], error) {
	return ParseWatermillMessage[AssetStoredPayload](msg)
}

// PublishAssetRemoved 发布 av.asset.removed 事件.
func PublishAssetRemoved(pub message.Publisher, payload AssetRemovedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAssetRemoved, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAssetRemoved, msg)
}

// ParseAssetRemoved 解析 av.asset.removed.
func ParseAssetRemoved(msg *message.Message) (Message[AssetRemovedPayload], error) {
	return ParseWatermillMessage[AssetRemovedPayload](msg)
}

// PublishAssetLiked 发布 av.asset.liked 事件.
func PublishAssetLiked(pub message.Publisher, payload AssetLikedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAssetLiked, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAssetLiked, msg)
}

// PublishAssetDownloaded 发布 av.asset.downloaded 事件.
func PublishAssetDownloaded(pub message.Publisher, payload AssetDownloadedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAssetDownloaded, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAssetDownloaded, msg)
}

// PublishAssetReported 发布 av.asset.reported 事件.
func PublishAssetReported(pub message.Publisher, payload AssetReportedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAssetReported, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAssetReported, msg)
}

// PublishUploadFailed 发布 av.asset.upload.failed 事件.
func PublishUploadFailed(pub message.Publisher, payload UploadFailedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAssetUploadFailed, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAssetUploadFailed, msg)
}

// PublishRegistryConflict 发布 av.registry.conflict 事件.
func PublishRegistryConflict(pub message.Publisher, payload RegistryConflictPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicRegistryConflict, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicRegistryConflict, msg)
}

// PublishRegistrySnapshot 发布 av.registry.snapshot 事件.
func PublishRegistrySnapshot(pub message.Publisher, payload RegistrySnapshotPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicRegistrySnapshot, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicRegistrySnapshot, msg)
}

// PublishArtifactSwept 发布 av.artifact.swept 事件.
func PublishArtifactSwept(pub message.Publisher, payload ArtifactSweptPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicArtifactSwept, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicArtifactSwept, msg)
}
