package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/assetvault/pkg/configs"
	"github.com/yeisme/assetvault/pkg/internal/model"
	"github.com/yeisme/assetvault/pkg/internal/storage/gitstore"
	nlog "github.com/yeisme/assetvault/pkg/log"
	"github.com/yeisme/assetvault/pkg/queue"
)

const (
	// sweepGrace 清扫的最小孤儿年龄. 上传管线在工件写入与注册表提交之间
	// 有一个短暂窗口，此时目录看似孤儿；宽限期避免误删在途上传.
	sweepGrace = 24 * time.Hour

	// sweepConcurrency 并行处理的目录数上限.
	sweepConcurrency = 4
)

// SweepResult 一次清扫的结果.
type SweepResult struct {
	// Folders 被清理的目录名（资产 ID）.
	Folders []string
	Removed int
	Failed  int
}

// SweepOrphans 清扫孤儿工件目录：工件根目录下存在、但注册表中没有
// 对应条目的资产目录. 孤儿来自中途失败的上传和删除时清理失败的残留.
//
// 目录的 metadata.json 时间戳在宽限期内的跳过不动；没有 metadata.json
// 的目录（元数据步骤之前就失败的上传）只要超过宽限期判定依据缺失，
// 直接清理——在途上传撞上清扫的概率极低，且重新上传即可恢复.
func (s *RegistryService) SweepOrphans(ctx context.Context) (SweepResult, error) {
	assets, _, err := s.GetAll(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	known := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		known[a.ID] = struct{}{}
	}

	root := strings.TrimSuffix(s.git.GetConfig().ArtifactRoot, "/")

	entries, err := s.git.ListFolder(ctx, root)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list artifact root: %w", err)
	}

	var (
		mu     sync.Mutex
		result SweepResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)

	for _, entry := range entries {
		if entry.Type != "dir" {
			continue
		}

		if _, ok := known[entry.Name]; ok {
			continue
		}

		g.Go(func() error {
			if !s.sweepable(gctx, entry.Path) {
				return nil
			}

			cleaned, orphaned := s.cleanArtifacts(gctx, entry.Path)

			mu.Lock()
			result.Folders = append(result.Folders, entry.Name)
			result.Removed += cleaned
			result.Failed += orphaned
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	nlog.Logger().Info().
		Int("folders", len(result.Folders)).
		Int("removed", result.Removed).
		Int("failed", result.Failed).
		Msg("orphan sweep finished")

	s.publishSwept(result)

	return result, nil
}

// sweepable 判断孤儿目录是否超过宽限期.
func (s *RegistryService) sweepable(ctx context.Context, folder string) bool {
	data, _, err := s.git.ReadFile(ctx, folder+"/"+metadataFileName)
	if err != nil {
		// 元数据缺失或读取失败，按可清扫处理
		return true
	}

	var meta model.Asset
	if err := sonic.Unmarshal(data, &meta); err != nil {
		return true
	}

	return time.Since(meta.Timestamp) > sweepGrace
}

// SnapshotRegistry 把注册表当前内容复制到带日期的备份路径.
// 备份是普通的条件写：当天已有备份时按其版本令牌覆盖.
func (s *RegistryService) SnapshotRegistry(ctx context.Context) (string, error) {
	cfg := s.git.GetConfig()

	data, _, err := s.git.ReadFile(ctx, cfg.RegistryPath)
	if err != nil {
		if errors.Is(err, gitstore.ErrNotFound) {
			// 注册表尚未创建，无可快照
			return "", nil
		}

		return "", fmt.Errorf("read registry for snapshot: %w", err)
	}

	backupPath := fmt.Sprintf("backups/registry-%s.json", time.Now().UTC().Format("2006-01-02"))

	var prevSHA string
	if _, sha, err := s.git.ReadFile(ctx, backupPath); err == nil {
		prevSHA = sha
	}

	newSHA, err := s.git.WriteFile(ctx, backupPath, data, "backups: registry snapshot", prevSHA)
	if err != nil {
		return "", fmt.Errorf("write registry snapshot: %w", err)
	}

	var assets []model.Asset
	_ = sonic.Unmarshal(data, &assets)

	evCfg := configs.GetConfig().Events
	if evCfg.Enabled && evCfg.Asset.Snapshot {
		if pub := s.mq.Publisher(); pub != nil {
			if err := queue.PublishRegistrySnapshot(pub, queue.RegistrySnapshotPayload{
				Path:   backupPath,
				SHA:    newSHA,
				Assets: len(assets),
			}, queue.WithProducer("assetvault")); err != nil {
				nlog.Logger().Warn().Err(err).Msg("publish registry snapshot event failed")
			}
		}
	}

	nlog.Logger().Info().Str("path", backupPath).Int("assets", len(assets)).Msg("registry snapshot written")

	return backupPath, nil
}

func (s *RegistryService) publishSwept(result SweepResult) {
	evCfg := configs.GetConfig().Events
	if !evCfg.Enabled || !evCfg.Asset.Swept || len(result.Folders) == 0 {
		return
	}

	pub := s.mq.Publisher()
	if pub == nil {
		return
	}

	err := queue.PublishArtifactSwept(pub, queue.ArtifactSweptPayload{
		Folders: result.Folders,
		Removed: result.Removed,
		Failed:  result.Failed,
	}, queue.WithProducer("assetvault"))
	if err != nil {
		nlog.Logger().Warn().Err(err).Msg("publish artifact swept event failed")
	}
}
