// Package gitstore 实现版本化文件客户端：对一个 GitHub contents 风格的
// HTTP API 做整文件的读、条件写、列目录和条件删除.
//
// 后端的每次读取都返回内容和一个不透明的版本令牌（内容 SHA），
// 下一次写必须携带该令牌作为前置条件；令牌过期时后端以冲突拒绝，
// 从而把"丢失更新"转化为可检测、可重试的 ConflictError.
//
// 所有操作都是对同一远端权威的网络调用，没有本地缓存层——
// 每次读都重新获取当前状态，这是乐观并发控制正确性的前提.
package gitstore

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sony/gobreaker"

	"github.com/yeisme/assetvault/pkg/configs"
	nlog "github.com/yeisme/assetvault/pkg/log"
)

// Client 版本化文件客户端.
type Client struct {
	cfg        *configs.GitStoreConfig
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

// FileEntry 目录列表中的一项.
type FileEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	SHA  string `json:"sha"`
	Size int64  `json:"size"`
	Type string `json:"type"` // "file" 或 "dir"
}

type contentResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
	Path     string `json:"path"`
}

type writeRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

type deleteRequest struct {
	Message string `json:"message"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha"`
}

type writeResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// New 创建后端存储客户端. cb 基于全局熔断配置，保护出站调用.
func New(ctx context.Context, cfg *configs.GitStoreConfig) (*Client, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("gitstore: owner and repo are required")
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.GetTimeoutDuration()},
	}

	cbCfg := configs.GetConfig().CircuitBreaker
	if cbCfg.Enabled {
		c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "gitstore",
			MaxRequests: cbCfg.MaxRequestsInHalf,
			Interval:    time.Duration(cbCfg.IntervalSeconds) * time.Second,
			Timeout:     time.Duration(cbCfg.TimeoutSeconds) * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < cbCfg.MinRequests {
					return false
				}

				return float64(counts.TotalFailures)/float64(counts.Requests) >= cbCfg.FailureRate
			},
		})
	}

	nlog.Logger().Info().
		Str("owner", cfg.Owner).
		Str("repo", cfg.Repo).
		Str("branch", cfg.Branch).
		Msg("gitstore client initialized")

	return c, nil
}

// GetConfig 返回客户端使用的配置.
func (c *Client) GetConfig() *configs.GitStoreConfig {
	return c.cfg
}

// RawURL 返回路径的公开读取 URL.
func (c *Client) RawURL(path string) string {
	return c.cfg.RawURL(path)
}

type httpResult struct {
	status int
	body   []byte
}

// do 执行一次后端请求. 传输错误和 5xx 计入熔断失败，4xx 不计入.
func (c *Client) do(ctx context.Context, op, method, url string, payload any) (*httpResult, error) {
	call := func() (any, error) {
		var body *bytes.Reader
		if payload != nil {
			data, err := sonic.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("marshal request: %w", err)
			}

			body = bytes.NewReader(data)
		} else {
			body = bytes.NewReader(nil)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		req.Header.Set("Accept", "application/vnd.github+json")
		if c.cfg.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		}

		if method == http.MethodGet {
			// 读取路径可能经过 CDN，显式禁止中间缓存，避免拿到过期的版本令牌
			req.Header.Set("Cache-Control", "no-cache")
		} else {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", op, url, err)
		}
		defer resp.Body.Close()

		var buf bytes.Buffer
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		res := &httpResult{status: resp.StatusCode, body: buf.Bytes()}
		if resp.StatusCode >= http.StatusInternalServerError {
			return res, &RequestError{Op: op, Path: url, Status: resp.StatusCode, Message: apiMessage(res.body)}
		}

		return res, nil
	}

	var (
		out any
		err error
	)

	if c.cb != nil {
		out, err = c.cb.Execute(call)
	} else {
		out, err = call()
	}

	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, &RequestError{Op: op, Path: url, Status: http.StatusServiceUnavailable, Message: "circuit breaker open"}
		}

		if res, ok := out.(*httpResult); ok && res != nil {
			return res, err
		}

		return nil, err
	}

	return out.(*httpResult), nil
}

// apiMessage 提取后端错误消息.
func apiMessage(body []byte) string {
	var er errorResponse
	if err := sonic.Unmarshal(body, &er); err == nil && er.Message != "" {
		return er.Message
	}

	return string(body)
}

// cacheBustURL 在 URL 上附加分支和时间戳参数. 时间戳让每次读取的 URL 唯一，
// 避免中间缓存返回旧内容导致版本令牌过期.
func (c *Client) cacheBustURL(path string) string {
	return c.cfg.ContentsURL(path) +
		"?ref=" + c.cfg.Branch +
		"&ts=" + strconv.FormatInt(time.Now().UnixNano(), 10)
}

// ReadFile 读取路径的当前内容与版本令牌. 路径不存在时返回 ErrNotFound.
func (c *Client) ReadFile(ctx context.Context, path string) ([]byte, string, error) {
	res, err := c.do(ctx, "read", http.MethodGet, c.cacheBustURL(path), nil)
	if err != nil {
		return nil, "", err
	}

	switch {
	case res.status == http.StatusNotFound:
		return nil, "", ErrNotFound
	case res.status < http.StatusOK || res.status >= http.StatusMultipleChoices:
		return nil, "", &RequestError{Op: "read", Path: path, Status: res.status, Message: apiMessage(res.body)}
	}

	var cr contentResponse
	if err := sonic.Unmarshal(res.body, &cr); err != nil {
		return nil, "", fmt.Errorf("unmarshal content response: %w", err)
	}

	data, err := DecodeContent(cr.Content)
	if err != nil {
		return nil, "", err
	}

	return data, cr.SHA, nil
}

// WriteFile 写入整文件内容并返回新的版本令牌.
//   - sha 为空：创建语义，要求文件此前不存在
//   - sha 非空：替换语义，要求与文件当前版本一致，否则返回 ConflictError
func (c *Client) WriteFile(ctx context.Context, path string, content []byte, message, sha string) (string, error) {
	body := writeRequest{
		Message: message,
		Content: EncodeContent(content),
		Branch:  c.cfg.Branch,
		SHA:     sha,
	}

	res, err := c.do(ctx, "write", http.MethodPut, c.cfg.ContentsURL(path), body)
	if err != nil {
		return "", err
	}

	switch {
	case res.status == http.StatusConflict:
		return "", &ConflictError{Path: path, SHA: sha}
	case res.status < http.StatusOK || res.status >= http.StatusMultipleChoices:
		return "", &RequestError{Op: "write", Path: path, Status: res.status, Message: apiMessage(res.body)}
	}

	var wr writeResponse
	if err := sonic.Unmarshal(res.body, &wr); err != nil {
		return "", fmt.Errorf("unmarshal write response: %w", err)
	}

	nlog.Logger().Debug().
		Str("path", path).
		Int("size", len(content)).
		Str("sha", wr.Content.SHA).
		Msg("file written")

	return wr.Content.SHA, nil
}

// ListFolder 列出目录的直接子项. 目录不存在时返回空列表而非错误.
func (c *Client) ListFolder(ctx context.Context, path string) ([]FileEntry, error) {
	res, err := c.do(ctx, "list", http.MethodGet, c.cacheBustURL(path), nil)
	if err != nil {
		return nil, err
	}

	switch {
	case res.status == http.StatusNotFound:
		return []FileEntry{}, nil
	case res.status < http.StatusOK || res.status >= http.StatusMultipleChoices:
		return nil, &RequestError{Op: "list", Path: path, Status: res.status, Message: apiMessage(res.body)}
	}

	var entries []FileEntry
	if err := sonic.Unmarshal(res.body, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal folder listing: %w", err)
	}

	return entries, nil
}

// DeleteFile 按版本令牌条件删除文件.
func (c *Client) DeleteFile(ctx context.Context, path, sha, message string) error {
	body := deleteRequest{Message: message, Branch: c.cfg.Branch, SHA: sha}

	res, err := c.do(ctx, "delete", http.MethodDelete, c.cfg.ContentsURL(path), body)
	if err != nil {
		return err
	}

	switch {
	case res.status == http.StatusNotFound:
		return ErrNotFound
	case res.status == http.StatusConflict:
		return &ConflictError{Path: path, SHA: sha}
	case res.status < http.StatusOK || res.status >= http.StatusMultipleChoices:
		return &RequestError{Op: "delete", Path: path, Status: res.status, Message: apiMessage(res.body)}
	}

	return nil
}

// HealthCheck 简单的健康检查，通过列出仓库根目录来验证连接与凭证.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.ListFolder(ctx, "")
	return err
}

// Close 关闭客户端连接（无实际操作，接口兼容）.
func (c *Client) Close() error {
	return nil
}
