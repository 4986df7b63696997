// Package service 实现注册表引擎的业务核心：在版本化文件后端之上
// 模拟一个可变的文档数据库.
//
// 分层约定：
//   - registry.go  读取-变换-条件写的通用更新原语（乐观并发 + 有界重试）
//   - upload.go    资产上传管线（三个工件 + 元数据 + 注册表提交）
//   - mutations.go 点赞/下载/举报/删除等领域操作，全部建立在更新原语之上
//   - sweep.go     孤儿工件清扫与注册表快照等后台维护
//
// 注册表提交是唯一的权威事实；工件文件的写入与删除都是尽力而为.
package service

import (
	"context"
	"errors"
	"fmt"

	ctxPkg "github.com/yeisme/assetvault/pkg/context"
	"github.com/yeisme/assetvault/pkg/internal/storage/gitstore"
	"github.com/yeisme/assetvault/pkg/internal/storage/mq"
)

// RegistryService 注册表引擎.
type RegistryService struct {
	git *gitstore.Client
	mq  *mq.Client
}

// NewRegistryService 从请求上下文取出存储客户端构造服务.
func NewRegistryService(c context.Context) *RegistryService {
	return &RegistryService{
		git: ctxPkg.GetGitClient(c),
		mq:  ctxPkg.GetMQClient(c),
	}
}

// NotFoundError 注册表中不存在目标资产.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("asset %s not found in registry", e.ID)
}

// PartialUploadError 上传管线中途失败. 此时部分工件可能已经写入后端，
// 但注册表从未提交，资产对外不可见；遗留文件由后台清扫回收.
type PartialUploadError struct {
	AssetID string
	// Step 失败发生的步骤：thumbnail/video/primary/metadata/registry.
	Step string
	Err  error
}

func (e *PartialUploadError) Error() string {
	return fmt.Sprintf("upload of %s failed at step %s: %v", e.AssetID, e.Step, e.Err)
}

func (e *PartialUploadError) Unwrap() error { return e.Err }

// IsNotFound 判断错误链中是否为资产缺失.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
