package service

import (
	"context"
	"errors"

	"github.com/yeisme/assetvault/pkg/configs"
	ctxPkg "github.com/yeisme/assetvault/pkg/context"
	"github.com/yeisme/assetvault/pkg/internal/model"
	"github.com/yeisme/assetvault/pkg/internal/storage/gitstore"
	nlog "github.com/yeisme/assetvault/pkg/log"
	"github.com/yeisme/assetvault/pkg/queue"
)

// ToggleLike 翻转用户对资产的点赞状态，返回更新后的条目与翻转后的状态.
// 整个操作是一次读取-变换-条件写，并发翻转不会丢失彼此的修改.
func (s *RegistryService) ToggleLike(ctx context.Context, assetID, userID string) (model.Asset, bool, error) {
	var liked bool

	asset, err := s.FindAndUpdate(ctx, assetID, "like", "registry: toggle like on "+assetID,
		func(a *model.Asset) error {
			liked = a.ToggleLike(userID)
			return nil
		})
	if err != nil {
		return model.Asset{}, false, err
	}

	s.publishLiked(asset, userID, liked)

	return asset, liked, nil
}

// IncrementDownload 下载计数加一. 计数只增不减，并发自增经由条件写
// 逐个提交，不会互相覆盖.
func (s *RegistryService) IncrementDownload(ctx context.Context, assetID string) (model.Asset, error) {
	asset, err := s.FindAndUpdate(ctx, assetID, "download", "registry: increment download on "+assetID,
		func(a *model.Asset) error {
			a.DownloadCount++
			return nil
		})
	if err != nil {
		return model.Asset{}, err
	}

	s.publishDownloaded(asset)

	return asset, nil
}

// IncrementReport 举报计数加一.
func (s *RegistryService) IncrementReport(ctx context.Context, assetID, userID string) (model.Asset, error) {
	asset, err := s.FindAndUpdate(ctx, assetID, "report", "registry: increment report on "+assetID,
		func(a *model.Asset) error {
			a.Reports++
			return nil
		})
	if err != nil {
		return model.Asset{}, err
	}

	s.publishReported(asset, userID)

	return asset, nil
}

// RemoveAsset 删除资产：注册表移除是权威步骤，随后尽力清理工件目录.
// 单个工件删除失败只记日志，不影响删除结果；遗留文件由后台清扫回收.
// 对不存在的资产幂等，返回 found=false.
func (s *RegistryService) RemoveAsset(ctx context.Context, assetID string) (cleaned, orphaned int, found bool, err error) {
	removed, found, err := s.Remove(ctx, assetID)
	if err != nil {
		return 0, 0, false, err
	}

	if !found {
		return 0, 0, false, nil
	}

	folder := removed.FolderPath(s.git.GetConfig().ArtifactRoot)
	cleaned, orphaned = s.cleanArtifacts(ctx, folder)

	s.publishRemoved(removed, cleaned, orphaned)

	return cleaned, orphaned, true, nil
}

// cleanArtifacts 逐个删除目录下的工件，汇报成功与失败的数量.
func (s *RegistryService) cleanArtifacts(ctx context.Context, folder string) (cleaned, orphaned int) {
	logger := ctxPkg.WithTraceContext(ctx, *nlog.Logger())

	entries, err := s.git.ListFolder(ctx, folder)
	if err != nil {
		logger.Warn().Err(err).Str("folder", folder).Msg("list artifact folder failed, cleanup skipped")
		return 0, 0
	}

	for _, entry := range entries {
		if entry.Type != "file" {
			continue
		}

		err := s.git.DeleteFile(ctx, entry.Path, entry.SHA, "assets: remove "+entry.Path)
		if err != nil && !errors.Is(err, gitstore.ErrNotFound) {
			orphaned++

			logger.Warn().Err(err).Str("path", entry.Path).Msg("artifact delete failed, leaving orphan")

			continue
		}

		cleaned++
	}

	return cleaned, orphaned
}

func (s *RegistryService) publishLiked(asset model.Asset, userID string, liked bool) {
	evCfg := configs.GetConfig().Events
	if !evCfg.Enabled || !evCfg.Asset.Liked {
		return
	}

	pub := s.mq.Publisher()
	if pub == nil {
		return
	}

	err := queue.PublishAssetLiked(pub, queue.AssetLikedPayload{
		Asset:  queue.AssetRef{ID: asset.ID, Title: asset.Title},
		UserID: userID,
		Liked:  liked,
		Likes:  len(asset.Likes),
	}, queue.WithProducer("assetvault"))
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("asset_id", asset.ID).Msg("publish asset liked event failed")
	}
}

func (s *RegistryService) publishDownloaded(asset model.Asset) {
	evCfg := configs.GetConfig().Events
	if !evCfg.Enabled || !evCfg.Asset.Downloaded {
		return
	}

	pub := s.mq.Publisher()
	if pub == nil {
		return
	}

	err := queue.PublishAssetDownloaded(pub, queue.AssetDownloadedPayload{
		Asset:     queue.AssetRef{ID: asset.ID, Title: asset.Title},
		Downloads: asset.DownloadCount,
	}, queue.WithProducer("assetvault"))
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("asset_id", asset.ID).Msg("publish asset downloaded event failed")
	}
}

func (s *RegistryService) publishReported(asset model.Asset, userID string) {
	evCfg := configs.GetConfig().Events
	if !evCfg.Enabled || !evCfg.Asset.Reported {
		return
	}

	pub := s.mq.Publisher()
	if pub == nil {
		return
	}

	err := queue.PublishAssetReported(pub, queue.AssetReportedPayload{
		Asset:   queue.AssetRef{ID: asset.ID, Title: asset.Title},
		UserID:  userID,
		Reports: asset.Reports,
	}, queue.WithProducer("assetvault"))
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("asset_id", asset.ID).Msg("publish asset reported event failed")
	}
}

func (s *RegistryService) publishRemoved(asset model.Asset, cleaned, orphaned int) {
	evCfg := configs.GetConfig().Events
	if !evCfg.Enabled || !evCfg.Asset.Removed {
		return
	}

	pub := s.mq.Publisher()
	if pub == nil {
		return
	}

	err := queue.PublishAssetRemoved(pub, queue.AssetRemovedPayload{
		Asset: queue.AssetRef{
			ID:         asset.ID,
			Title:      asset.Title,
			Category:   asset.Category,
			FolderPath: asset.FolderPath(s.git.GetConfig().ArtifactRoot),
		},
		CleanedFiles:  cleaned,
		OrphanedFiles: orphaned,
	}, queue.WithProducer("assetvault"))
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("asset_id", asset.ID).Msg("publish asset removed event failed")
	}
}
