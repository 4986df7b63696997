package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultGitStoreAPIBase      = "https://api.github.com" // 默认 contents API 地址
	DefaultGitStoreBranch       = "main"                   // 默认分支
	DefaultGitStoreRegistryPath = "data/registry.json"     // 注册表文档路径
	DefaultGitStoreArtifactRoot = "assets"                 // 制品根目录
	DefaultGitStoreTimeout      = 30                       // 单次请求超时（秒）
	DefaultUpdateMaxAttempts    = 4                        // 注册表更新最大尝试次数
	DefaultUpdateBackoffMS      = 150                      // 冲突重试退避基数（毫秒）
	DefaultAssetIDPrefix        = "EXC"                    // 资产 ID 前缀
)

// GitStoreConfig 版本化文件后端存储配置. 后端是一个 GitHub contents 风格的 HTTP API:
// 整文件读写，写入以内容 SHA 作为前置条件实现乐观并发控制.
type GitStoreConfig struct {
	APIBase string `mapstructure:"api_base" rule:"url"`
	Owner   string `mapstructure:"owner"    rule:"required"`
	Repo    string `mapstructure:"repo"     rule:"required"`
	Branch  string `mapstructure:"branch"   rule:"required"`
	Token   string `mapstructure:"token"`
	// RawBase 制品/文档的公开读取地址前缀；为空时按 raw.githubusercontent.com 规则推导
	RawBase      string `mapstructure:"raw_base"`
	RegistryPath string `mapstructure:"registry_path" rule:"required"`
	ArtifactRoot string `mapstructure:"artifact_root" rule:"required"`
	Timeout      int    `mapstructure:"timeout"       rule:"min=1,max=300"`
	// 注册表 read-transform-write 冲突重试参数
	UpdateMaxAttempts int `mapstructure:"update_max_attempts" rule:"min=1,max=10"`
	UpdateBackoffMS   int `mapstructure:"update_backoff_ms"   rule:"min=0,max=10000"`
	// AssetIDPrefix 生成资产 ID 时使用的前缀
	AssetIDPrefix string `mapstructure:"asset_id_prefix"`
}

// ContentsURL 拼接某个仓库路径的 contents API URL.
func (c *GitStoreConfig) ContentsURL(path string) string {
	path = strings.TrimPrefix(path, "/")

	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		strings.TrimSuffix(c.APIBase, "/"), c.Owner, c.Repo, path)
}

// RawURL 返回某个仓库路径的公开读取 URL（确定性推导，不依赖 API 响应）.
func (c *GitStoreConfig) RawURL(path string) string {
	path = strings.TrimPrefix(path, "/")

	base := c.RawBase
	if base == "" {
		base = fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s", c.Owner, c.Repo, c.Branch)
	}

	return strings.TrimSuffix(base, "/") + "/" + path
}

// GetTimeoutDuration 返回请求超时时间作为 time.Duration.
func (c *GitStoreConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// GetUpdateBackoff 返回冲突重试退避基数.
func (c *GitStoreConfig) GetUpdateBackoff() time.Duration {
	return time.Duration(c.UpdateBackoffMS) * time.Millisecond
}

// setDefaults 设置后端存储配置的默认值.
func (c *GitStoreConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("gitstore.api_base", DefaultGitStoreAPIBase)
	v.SetDefault("gitstore.owner", "")
	v.SetDefault("gitstore.repo", "")
	v.SetDefault("gitstore.branch", DefaultGitStoreBranch)
	v.SetDefault("gitstore.token", "")
	v.SetDefault("gitstore.raw_base", "")
	v.SetDefault("gitstore.registry_path", DefaultGitStoreRegistryPath)
	v.SetDefault("gitstore.artifact_root", DefaultGitStoreArtifactRoot)
	v.SetDefault("gitstore.timeout", DefaultGitStoreTimeout)
	v.SetDefault("gitstore.update_max_attempts", DefaultUpdateMaxAttempts)
	v.SetDefault("gitstore.update_backoff_ms", DefaultUpdateBackoffMS)
	v.SetDefault("gitstore.asset_id_prefix", DefaultAssetIDPrefix)
}
