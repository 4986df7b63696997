// Package storage 聚合所有存储资源：版本化文件后端（注册表与资产工件的
// 唯一权威）、KV 缓存和消息队列.
//
// Example:
//
// 初始化
//
//	 ctx := context.Background()
//	 mgr, err := storage.Init(ctx)
//
//		if err != nil {
//		    // 处理错误
//		}
//
// 获取存储客户端
//
//	gitClient := mgr.GetGitClient()
//	kvClient := mgr.GetKVClient()
package storage

import (
	"context"
	"sync"

	"github.com/yeisme/assetvault/pkg/configs"
	gitc "github.com/yeisme/assetvault/pkg/internal/storage/gitstore"
	kvc "github.com/yeisme/assetvault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/assetvault/pkg/internal/storage/mq"
	nlog "github.com/yeisme/assetvault/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	Git *gitc.Client
	KV  *kvc.Client
	MQ  *mqc.Client
}

var (
	mgr     *Manager
	mgrOnce sync.Once
)

// Init 初始化默认存储，使用全局配置. 重复调用只返回已初始化实例.
// Git 后端是硬依赖，初始化失败即返回错误；KV 与 MQ 是可选增强，
// 失败时降级为 nil 并记录警告.
func Init(ctx context.Context) (*Manager, error) {
	var err error

	mgrOnce.Do(func() {
		cfg := configs.GetConfig()
		m := &Manager{}

		// Git 后端
		if gi, e := gitc.New(ctx, &cfg.GitStore); e != nil {
			err = e

			return
		} else {
			m.Git = gi
		}

		// KV
		if kvi, e := kvc.NewKVClient(ctx); e != nil {
			nlog.Logger().Warn().Err(e).Msg("kv store unavailable, caching disabled")
		} else {
			m.KV = kvi
		}

		// MQ
		if mqi, e := mqc.New(ctx); e != nil {
			nlog.Logger().Warn().Err(e).Msg("mq unavailable, event publishing disabled")
		} else {
			m.MQ = mqi
		}

		mgr = m

		nlog.Logger().Info().Msg("storage manager initialized")
	})

	return mgr, err
}

// GetGitClient 获取版本化文件后端客户端.
func (m *Manager) GetGitClient() *gitc.Client {
	return m.Git
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// Close 释放所有存储连接.
func (m *Manager) Close() error {
	var err error

	if m.Git != nil {
		if e := m.Git.Close(); e != nil {
			err = e
		}
	}

	if m.KV != nil {
		if e := m.KV.Close(); e != nil {
			err = e
		}
	}

	if m.MQ != nil {
		if e := m.MQ.Close(); e != nil {
			err = e
		}
	}

	return err
}
