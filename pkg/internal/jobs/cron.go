// Package jobs 负责注册与实现业务定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"fmt"

	ctxPkg "github.com/yeisme/assetvault/pkg/context"
	"github.com/yeisme/assetvault/pkg/internal/service"
	"github.com/yeisme/assetvault/pkg/internal/storage"
	"github.com/yeisme/assetvault/pkg/log"
	"github.com/yeisme/assetvault/pkg/scheduler"
)

// RegisterCronJobs 配置业务定时任务：
//   - 每天 04:30 清扫孤儿工件目录（注册表中不存在、且超过宽限期的目录）
//   - 每天 02:10 写一份注册表当日快照
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if mgr == nil {
		return fmt.Errorf("storage manager is nil")
	}

	// 将 storage manager 注入到 context，便于 service 使用
	baseCtx := ctxPkg.WithStorageManager(context.Background(), mgr)

	// 每天 04:30 孤儿清扫
	if err := sched.AddCron(JobOrphanSweep, CronOrphanSweep, runOrphanSweep, baseCtx); err != nil {
		return err
	}

	// 每天 02:10 注册表快照
	if err := sched.AddCron(JobRegistrySnapshot, CronRegistrySnapshot, runRegistrySnapshot, baseCtx); err != nil {
		return err
	}

	return nil
}

// runOrphanSweep 清扫注册表之外的工件目录.
func runOrphanSweep(ctx context.Context) {
	l := log.Logger().With().Str("job", JobOrphanSweep).Logger()

	svc := service.NewRegistryService(ctx)

	result, err := svc.SweepOrphans(ctx)
	if err != nil {
		l.Error().Err(err).Msg("orphan sweep failed")
		return
	}

	if len(result.Folders) > 0 {
		l.Info().
			Strs("folders", result.Folders).
			Int("removed", result.Removed).
			Int("failed", result.Failed).
			Msg("swept orphan artifact folders")
	}
}

// runRegistrySnapshot 把注册表内容备份到带日期的路径.
func runRegistrySnapshot(ctx context.Context) {
	l := log.Logger().With().Str("job", JobRegistrySnapshot).Logger()

	svc := service.NewRegistryService(ctx)

	path, err := svc.SnapshotRegistry(ctx)
	if err != nil {
		l.Error().Err(err).Msg("registry snapshot failed")
		return
	}

	if path != "" {
		l.Info().Str("path", path).Msg("registry snapshot written")
	}
}
