package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yeisme/assetvault/pkg/configs"
	ctxPkg "github.com/yeisme/assetvault/pkg/context"
	"github.com/yeisme/assetvault/pkg/internal/model"
	"github.com/yeisme/assetvault/pkg/internal/storage/gitstore"
	nlog "github.com/yeisme/assetvault/pkg/log"
	"github.com/yeisme/assetvault/pkg/metrics"
	"github.com/yeisme/assetvault/pkg/queue"
)

// ErrNoChange transform 返回此值表示文档无需修改，本次更新跳过提交，
// 直接返回当前状态. 用于实现幂等操作（如删除不存在的条目）.
var ErrNoChange = errors.New("registry: no change")

// TransformFunc 在最新的注册表快照上计算出下一个状态.
// 每次重试都会拿到重新读取的快照，函数必须无副作用且可重复执行.
type TransformFunc func(assets []model.Asset) ([]model.Asset, error)

// GetAll 读取注册表全文与当前版本令牌. 注册表文件不存在视为空注册表.
// 每次调用都直接命中后端，读到的令牌可用作下一次条件写的前置条件.
func (s *RegistryService) GetAll(ctx context.Context) ([]model.Asset, string, error) {
	data, sha, err := s.git.ReadFile(ctx, s.git.GetConfig().RegistryPath)
	if err != nil {
		if errors.Is(err, gitstore.ErrNotFound) {
			return []model.Asset{}, "", nil
		}

		return nil, "", fmt.Errorf("read registry: %w", err)
	}

	var assets []model.Asset
	if err := sonic.Unmarshal(data, &assets); err != nil {
		return nil, "", fmt.Errorf("decode registry: %w", err)
	}

	for i := range assets {
		assets[i].Normalize()
	}

	return assets, sha, nil
}

// Find 按 ID 查找单个资产.
func (s *RegistryService) Find(ctx context.Context, id string) (model.Asset, error) {
	assets, _, err := s.GetAll(ctx)
	if err != nil {
		return model.Asset{}, err
	}

	for _, a := range assets {
		if a.ID == id {
			return a, nil
		}
	}

	return model.Asset{}, &NotFoundError{ID: id}
}

// Update 读取-变换-条件写的通用更新原语.
//
// 每次尝试都重新读取注册表（拿到新鲜的版本令牌），在快照上执行 transform，
// 再以令牌为前置条件写回. 并发提交导致的冲突触发退避重试；重试次数与
// 退避时间来自配置. 耗尽后返回最后一次的 ConflictError，绝不盲写.
func (s *RegistryService) Update(ctx context.Context, op, message string, transform TransformFunc) ([]model.Asset, string, error) {
	cfg := s.git.GetConfig()

	attempts := cfg.UpdateMaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	logger := ctxPkg.WithTraceContext(ctx, *nlog.Logger())

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		assets, sha, err := s.GetAll(ctx)
		if err != nil {
			return nil, "", err
		}

		next, err := transform(assets)
		if err != nil {
			if errors.Is(err, ErrNoChange) {
				metrics.RegistryUpdateAttempts.WithLabelValues(op).Observe(float64(attempt))
				return assets, sha, nil
			}

			// 业务错误（如条目不存在）不重试
			return nil, "", err
		}

		data, err := sonic.MarshalIndent(next, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("encode registry: %w", err)
		}

		newSHA, err := s.git.WriteFile(ctx, cfg.RegistryPath, data, message, sha)
		if err == nil {
			metrics.RegistryUpdateAttempts.WithLabelValues(op).Observe(float64(attempt))

			logger.Debug().
				Str("op", op).
				Int("attempt", attempt).
				Int("assets", len(next)).
				Str("sha", newSHA).
				Msg("registry committed")

			return next, newSHA, nil
		}

		if !gitstore.IsConflict(err) && !isCreateCollision(sha, err) {
			return nil, "", err
		}

		lastErr = err
		metrics.RegistryConflicts.WithLabelValues(op).Inc()

		logger.Warn().
			Str("op", op).
			Int("attempt", attempt).
			Str("stale_sha", sha).
			Msg("registry commit conflict, retrying")

		s.publishConflict(op, sha, attempt)

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(s.backoff(cfg, attempt)):
		}
	}

	return nil, "", lastErr
}

// isCreateCollision 判断创建语义的写入（sha 为空）是否撞上了并发创建.
// 后端对已存在文件的无 sha 写入返回 422 而非 409，对更新原语来说
// 两者同义：快照过期了，重读一次就能拿到新令牌.
func isCreateCollision(sha string, err error) bool {
	if sha != "" {
		return false
	}

	var re *gitstore.RequestError

	return errors.As(err, &re) && re.Status == http.StatusUnprocessableEntity
}

// backoff 线性退避加随机抖动，错开并发写者的重试节奏.
func (s *RegistryService) backoff(cfg *configs.GitStoreConfig, attempt int) time.Duration {
	base := cfg.GetUpdateBackoff()
	if base <= 0 {
		base = 150 * time.Millisecond
	}

	jitter := time.Duration(rand.Int63n(int64(base)))

	return time.Duration(attempt)*base + jitter
}

// Upsert 写入或整体替换一个资产条目，返回提交后的版本令牌与是否为替换.
// 同 ID 的旧条目先移除，新条目一律置于列表头部：新写入的永远排最前，
// 与展示层按时间戳的排序无关.
func (s *RegistryService) Upsert(ctx context.Context, asset model.Asset) (string, bool, error) {
	var replaced bool

	_, sha, err := s.Update(ctx, "upsert", "registry: upsert "+asset.ID,
		func(assets []model.Asset) ([]model.Asset, error) {
			replaced = false
			out := make([]model.Asset, 0, len(assets)+1)
			out = append(out, asset)

			for _, a := range assets {
				if a.ID == asset.ID {
					replaced = true
					continue
				}

				out = append(out, a)
			}

			return out, nil
		})

	return sha, replaced, err
}

// FindAndUpdate 定位单个资产并就地修改，其余条目的顺序保持不变.
// 目标缺失时返回 NotFoundError，且不产生任何提交.
func (s *RegistryService) FindAndUpdate(ctx context.Context, id, op, message string, fn func(*model.Asset) error) (model.Asset, error) {
	var result model.Asset

	_, _, err := s.Update(ctx, op, message, func(assets []model.Asset) ([]model.Asset, error) {
		for i := range assets {
			if assets[i].ID == id {
				if err := fn(&assets[i]); err != nil {
					return nil, err
				}

				result = assets[i]

				return assets, nil
			}
		}

		return nil, &NotFoundError{ID: id}
	})

	return result, err
}

// Remove 从注册表移除条目，幂等：目标不存在时不报错也不产生提交.
// 返回被移除的条目与是否确有移除.
func (s *RegistryService) Remove(ctx context.Context, id string) (model.Asset, bool, error) {
	var (
		removed model.Asset
		found   bool
	)

	_, _, err := s.Update(ctx, "remove", "registry: remove "+id,
		func(assets []model.Asset) ([]model.Asset, error) {
			found = false
			out := make([]model.Asset, 0, len(assets))

			for _, a := range assets {
				if a.ID == id {
					removed = a
					found = true

					continue
				}

				out = append(out, a)
			}

			if !found {
				return nil, ErrNoChange
			}

			return out, nil
		})

	return removed, found, err
}

// publishConflict 发布冲突事件，受配置开关控制. 发布失败只记日志.
func (s *RegistryService) publishConflict(op, staleSHA string, attempt int) {
	evCfg := configs.GetConfig().Events
	if !evCfg.Enabled || !evCfg.Asset.Conflict || s.mq == nil {
		return
	}

	pub := s.mq.Publisher()
	if pub == nil {
		return
	}

	err := queue.PublishRegistryConflict(pub, queue.RegistryConflictPayload{
		Path:     s.git.GetConfig().RegistryPath,
		StaleSHA: staleSHA,
		Attempt:  attempt,
		Op:       op,
	}, queue.WithProducer("assetvault"))
	if err != nil {
		nlog.Logger().Warn().Err(err).Msg("publish registry conflict event failed")
	}
}
