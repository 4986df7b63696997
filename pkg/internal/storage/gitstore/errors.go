package gitstore

import (
	"errors"
	"fmt"
)

// ErrNotFound 路径不存在.
var ErrNotFound = errors.New("gitstore: not found")

// ConflictError 表示写前置条件（内容 SHA）不匹配，即检测到并发写冲突.
// 由后端以非 2xx 状态返回，绝不会被静默应用.
type ConflictError struct {
	Path string
	SHA  string // 发起写时持有的（过期）版本令牌
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("gitstore: write conflict on %s (stale sha %q)", e.Path, e.SHA)
}

// RequestError 后端调用因冲突之外的原因失败（认证、限流、负载格式等）.
// Op 区分 read/write/list/delete，对应调用方关心的读错误与写错误.
type RequestError struct {
	Op      string
	Path    string
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("gitstore: %s %s failed: status %d: %s", e.Op, e.Path, e.Status, e.Message)
}

// IsConflict 判断错误链中是否存在写冲突.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
