package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/oklog/ulid"

	"github.com/yeisme/assetvault/pkg/configs"
	ctxPkg "github.com/yeisme/assetvault/pkg/context"
	"github.com/yeisme/assetvault/pkg/internal/model"
	"github.com/yeisme/assetvault/pkg/internal/storage/gitstore"
	"github.com/yeisme/assetvault/pkg/internal/types"
	nlog "github.com/yeisme/assetvault/pkg/log"
	"github.com/yeisme/assetvault/pkg/metrics"
	"github.com/yeisme/assetvault/pkg/queue"
)

// 上传管线的步骤名，用于进度汇报、指标与 PartialUploadError.Step.
const (
	StepValidate  = "validate"
	StepThumbnail = "thumbnail"
	StepVideo     = "video"
	StepPrimary   = "primary"
	StepMetadata  = "metadata"
	StepRegistry  = "registry"
)

// 各槽位的固定文件名前缀与缺省扩展名. 同一资产的所有工件收在一个目录下，
// 槽位名固定、扩展名取自原始文件名（缺失时用槽位缺省值）.
const (
	thumbnailSlot       = "thumbnail"
	videoSlot           = "preview"
	primarySlot         = "file"
	defaultThumbnailExt = "png"
	defaultVideoExt     = "mp4"
	defaultPrimaryExt   = "zip"
	metadataFileName    = "metadata.json"
)

// ArtifactFile 一个待上传的工件.
type ArtifactFile struct {
	// Name 原始文件名，用于推导扩展名.
	Name string
	Data []byte
}

// ProgressFunc 上传进度回调. step 为当前步骤名，pct 为整体完成百分比.
type ProgressFunc func(step string, pct int)

// UploadInput 上传管线的输入. Primary 必填，Thumbnail 与 Video 可选.
type UploadInput struct {
	Form      types.UploadAssetForm
	Thumbnail *ArtifactFile
	Video     *ArtifactFile
	Primary   ArtifactFile
	// Progress 可选的进度回调.
	Progress ProgressFunc
}

// UploadAsset 执行完整的上传管线：
//
//	校验 → 工件写入（缩略图、预览视频、主文件）→ metadata.json → 注册表提交
//
// 注册表提交是唯一的权威完成点：提交前失败的上传对外完全不可见，
// 已写入的工件成为孤儿，由后台清扫回收（不在此处回滚，避免删除
// 操作自身失败让状态更难推理）.
func (s *RegistryService) UploadAsset(ctx context.Context, user model.User, in UploadInput) (model.Asset, error) {
	cfg := s.git.GetConfig()
	report := func(step string, pct int) {
		if in.Progress != nil {
			in.Progress(step, pct)
		}
	}

	report(StepValidate, 0)

	if len(in.Primary.Data) == 0 {
		return model.Asset{}, s.failUpload("", StepValidate, fmt.Errorf("primary file is required"))
	}

	if !model.IsValidCategory(in.Form.Category) {
		return model.Asset{}, s.failUpload("", StepValidate, fmt.Errorf("unknown category %q", in.Form.Category))
	}

	ext := slotExt(in.Primary.Name, defaultPrimaryExt)
	if !model.IsValidFileType(ext) {
		return model.Asset{}, s.failUpload("", StepValidate, fmt.Errorf("unrecognized file type %q", ext))
	}

	if err := s.ensureArtifactRoot(ctx); err != nil {
		return model.Asset{}, s.failUpload("", StepValidate, err)
	}

	id := model.NewAssetID(cfg.AssetIDPrefix)
	folder := strings.TrimSuffix(cfg.ArtifactRoot, "/") + "/" + id
	batchID := newBatchID()

	logger := ctxPkg.WithTraceContext(ctx, *nlog.Logger())
	logger.Info().
		Str("asset_id", id).
		Str("batch", batchID).
		Str("user", user.ID).
		Msg("upload pipeline started")

	asset := model.Asset{
		ID:           id,
		UserID:       user.ID,
		AuthorName:   user.Name,
		AuthorAvatar: user.Avatar,
		Title:        in.Form.Title,
		Description:  in.Form.Description,
		Category:     in.Form.Category,
		FileType:     ext,
		Credits:      in.Form.Credits,
		Likes:        []string{},
		Timestamp:    time.Now().UTC(),
		Keywords:     splitKeywords(in.Form.Keywords),
	}

	// 工件按 缩略图 → 视频 → 主文件 的顺序写入，越靠前的越便宜，
	// 失败时遗留的孤儿体积越小
	if in.Thumbnail != nil && len(in.Thumbnail.Data) > 0 {
		report(StepThumbnail, 10)

		p := folder + "/" + thumbnailSlot + "." + slotExt(in.Thumbnail.Name, defaultThumbnailExt)
		if _, err := s.git.WriteFile(ctx, p, in.Thumbnail.Data, "assets: add "+id+" thumbnail", ""); err != nil {
			return model.Asset{}, s.failUpload(id, StepThumbnail, err)
		}

		asset.ThumbnailURL = s.git.RawURL(p)
	}

	if in.Video != nil && len(in.Video.Data) > 0 {
		report(StepVideo, 30)

		p := folder + "/" + videoSlot + "." + slotExt(in.Video.Name, defaultVideoExt)
		if _, err := s.git.WriteFile(ctx, p, in.Video.Data, "assets: add "+id+" preview", ""); err != nil {
			return model.Asset{}, s.failUpload(id, StepVideo, err)
		}

		asset.VideoURL = s.git.RawURL(p)
	}

	report(StepPrimary, 50)

	primaryPath := folder + "/" + primarySlot + "." + ext
	if _, err := s.git.WriteFile(ctx, primaryPath, in.Primary.Data, "assets: add "+id+" file", ""); err != nil {
		return model.Asset{}, s.failUpload(id, StepPrimary, err)
	}

	asset.FileURL = s.git.RawURL(primaryPath)

	// 目录内冗余一份元数据，让工件目录脱离注册表也能自描述
	report(StepMetadata, 75)

	meta, err := sonic.MarshalIndent(asset, "", "  ")
	if err != nil {
		return model.Asset{}, s.failUpload(id, StepMetadata, err)
	}

	if _, err := s.git.WriteFile(ctx, folder+"/"+metadataFileName, meta, "assets: add "+id+" metadata", ""); err != nil {
		return model.Asset{}, s.failUpload(id, StepMetadata, err)
	}

	// 权威完成点：注册表提交成功之前，资产对外不存在
	report(StepRegistry, 90)

	_, replaced, err := s.Upsert(ctx, asset)
	if err != nil {
		return model.Asset{}, s.failUpload(id, StepRegistry, err)
	}

	report(StepRegistry, 100)

	logger.Info().
		Str("asset_id", id).
		Bool("replaced", replaced).
		Msg("upload pipeline committed")

	s.publishStored(asset, user, replaced, batchID)

	return asset, nil
}

// ensureArtifactRoot 幂等的根目录引导：根目录列不出内容时写入占位文件.
// 两个调用方首次并发引导时占位写可能撞车，此处容忍创建冲突.
func (s *RegistryService) ensureArtifactRoot(ctx context.Context) error {
	root := strings.TrimSuffix(s.git.GetConfig().ArtifactRoot, "/")

	entries, err := s.git.ListFolder(ctx, root)
	if err != nil {
		return fmt.Errorf("list artifact root: %w", err)
	}

	if len(entries) > 0 {
		return nil
	}

	_, err = s.git.WriteFile(ctx, root+"/.gitkeep", nil, "assets: bootstrap artifact root", "")
	if err != nil && !gitstore.IsConflict(err) {
		var re *gitstore.RequestError
		if errors.As(err, &re) && re.Status == 422 {
			// 并发引导已创建占位文件
			return nil
		}

		return fmt.Errorf("bootstrap artifact root: %w", err)
	}

	return nil
}

// failUpload 统一的失败出口：计数、发事件、包装错误.
func (s *RegistryService) failUpload(assetID, step string, err error) error {
	metrics.UploadFailures.WithLabelValues(step).Inc()

	evCfg := configs.GetConfig().Events
	if evCfg.Enabled && assetID != "" {
		if pub := s.mq.Publisher(); pub != nil {
			if pubErr := queue.PublishUploadFailed(pub, queue.UploadFailedPayload{
				AssetID: assetID,
				Step:    step,
				Error:   err.Error(),
			}, queue.WithProducer("assetvault")); pubErr != nil {
				nlog.Logger().Warn().Err(pubErr).Msg("publish upload failed event failed")
			}
		}
	}

	return &PartialUploadError{AssetID: assetID, Step: step, Err: err}
}

// publishStored 发布 av.asset.stored 事件. 发布失败不影响上传结果.
func (s *RegistryService) publishStored(asset model.Asset, user model.User, replaced bool, batchID string) {
	evCfg := configs.GetConfig().Events
	if !evCfg.Enabled || !evCfg.Asset.Stored {
		return
	}

	pub := s.mq.Publisher()
	if pub == nil {
		return
	}

	err := queue.PublishAssetStored(pub, queue.AssetStoredPayload{
		Asset: queue.AssetRef{
			ID:         asset.ID,
			Title:      asset.Title,
			Category:   asset.Category,
			FileType:   asset.FileType,
			FolderPath: asset.FolderPath(s.git.GetConfig().ArtifactRoot),
		},
		Uploader: user.Email,
		Replaced: replaced,
	}, queue.WithProducer("assetvault"), queue.WithTraceID(batchID))
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("asset_id", asset.ID).Msg("publish asset stored event failed")
	}
}

// slotExt 从原始文件名推导扩展名，无扩展名时回退到槽位缺省值.
func slotExt(name, fallback string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ext == "" {
		return fallback
	}

	return strings.ToLower(ext)
}

// splitKeywords 拆分逗号分隔的关键词并去除空白项.
func splitKeywords(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if kw := strings.TrimSpace(p); kw != "" {
			out = append(out, kw)
		}
	}

	return out
}

// newBatchID 生成一次上传的批次 ID（ULID，毫秒时间戳 + 随机），
// 作为关联同批事件的 trace id.
func newBatchID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
