package gitstore_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/yeisme/assetvault/pkg/configs"
	"github.com/yeisme/assetvault/pkg/internal/storage/gitstore"
)

func TestContentRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("hello"),
		[]byte("资产注册表 registry ✓"),
		{0x00, 0xff, 0x10, 0x80, 0x7f},
	}

	for _, in := range cases {
		out, err := gitstore.DecodeContent(gitstore.EncodeContent(in))
		if err != nil {
			t.Fatalf("decode %q: %v", in, err)
		}

		if !bytes.Equal(out, in) {
			t.Fatalf("round trip mismatch: got %q want %q", out, in)
		}
	}
}

func TestDecodeContentWrapped(t *testing.T) {
	// 读取响应中的 base64 会按 60 列折行
	raw := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("assetvault", 20)))

	var wrapped strings.Builder
	for i := 0; i < len(raw); i += 60 {
		end := min(i+60, len(raw))
		wrapped.WriteString(raw[i:end])
		wrapped.WriteString("\n")
	}

	out, err := gitstore.DecodeContent(wrapped.String())
	if err != nil {
		t.Fatalf("decode wrapped: %v", err)
	}

	if string(out) != strings.Repeat("assetvault", 20) {
		t.Fatalf("wrapped decode mismatch")
	}
}

func TestDecodeContentInvalid(t *testing.T) {
	if _, err := gitstore.DecodeContent("not-base64!!"); err == nil {
		t.Fatal("expected decode error")
	}
}

// fakeRepo 模拟 contents API 的内容寻址语义：每个文件携带版本令牌，
// 写入和删除按令牌做 compare-and-swap.
type fakeRepo struct {
	mu    sync.Mutex
	files map[string]fakeFile
	seq   int
}

type fakeFile struct {
	content []byte
	sha     string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{files: make(map[string]fakeFile)}
}

func (f *fakeRepo) nextSHA() string {
	f.seq++
	return fmt.Sprintf("sha-%04d", f.seq)
}

func (f *fakeRepo) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/repos/acme/registry/contents/")
		path = strings.TrimSuffix(path, "/")

		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			f.handleGet(w, path)
		case http.MethodPut:
			f.handlePut(w, r, path)
		case http.MethodDelete:
			f.handleDelete(w, r, path)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func (f *fakeRepo) handleGet(w http.ResponseWriter, path string) {
	if file, ok := f.files[path]; ok {
		// 折行模拟真实响应的 60 列 base64
		raw := base64.StdEncoding.EncodeToString(file.content)

		var wrapped strings.Builder
		for i := 0; i < len(raw); i += 60 {
			end := min(i+60, len(raw))
			wrapped.WriteString(raw[i:end])
			wrapped.WriteString("\n")
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"content":  wrapped.String(),
			"encoding": "base64",
			"sha":      file.sha,
			"path":     path,
		})

		return
	}

	// 目录列表：返回直接子项
	var entries []map[string]any

	prefix := path + "/"
	if path == "" {
		prefix = ""
	}

	seen := map[string]bool{}

	for p, file := range f.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}

		rest := strings.TrimPrefix(p, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			dir := rest[:i]
			if !seen[dir] {
				seen[dir] = true
				entries = append(entries, map[string]any{
					"name": dir, "path": prefix + dir, "type": "dir",
				})
			}

			continue
		}

		entries = append(entries, map[string]any{
			"name": rest, "path": p, "sha": file.sha,
			"size": len(file.content), "type": "file",
		})
	}

	if len(entries) == 0 && path != "" {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))

		return
	}

	_ = json.NewEncoder(w).Encode(entries)
}

func (f *fakeRepo) handlePut(w http.ResponseWriter, r *http.Request, path string) {
	var req struct {
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}

	body, _ := io.ReadAll(r.Body)
	if err := json.Unmarshal(body, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	existing, exists := f.files[path]

	switch {
	case req.SHA == "" && exists:
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"sha required for existing file"}`))

		return
	case req.SHA != "" && (!exists || existing.sha != req.SHA):
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"is at a different sha"}`))

		return
	}

	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	sha := f.nextSHA()
	f.files[path] = fakeFile{content: content, sha: sha}

	status := http.StatusOK
	if !exists {
		status = http.StatusCreated
	}

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"content": map[string]any{"sha": sha},
	})
}

func (f *fakeRepo) handleDelete(w http.ResponseWriter, r *http.Request, path string) {
	var req struct {
		SHA string `json:"sha"`
	}

	body, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(body, &req)

	existing, exists := f.files[path]

	switch {
	case !exists:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	case existing.sha != req.SHA:
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"is at a different sha"}`))
	default:
		delete(f.files, path)
		_ = json.NewEncoder(w).Encode(map[string]any{"content": nil})
	}
}

func newTestClient(t *testing.T) (*gitstore.Client, *fakeRepo) {
	t.Helper()

	repo := newFakeRepo()
	srv := httptest.NewServer(repo.handler())
	t.Cleanup(srv.Close)

	cfg := &configs.GitStoreConfig{
		APIBase: srv.URL,
		Owner:   "acme",
		Repo:    "registry",
		Branch:  "main",
		Timeout: 5,
	}

	client, err := gitstore.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	return client, repo
}

func TestReadFileNotFound(t *testing.T) {
	client, _ := newTestClient(t)

	_, _, err := client.ReadFile(context.Background(), "data/missing.json")
	if !errors.Is(err, gitstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWriteReadUpdateDelete(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	// 创建
	sha1, err := client.WriteFile(ctx, "data/registry.json", []byte(`{"assets":[]}`), "init registry", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if sha1 == "" {
		t.Fatal("expected non-empty version token")
	}

	// 读取应返回内容与同一令牌
	content, sha, err := client.ReadFile(ctx, "data/registry.json")
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if string(content) != `{"assets":[]}` || sha != sha1 {
		t.Fatalf("read mismatch: content=%q sha=%q", content, sha)
	}

	// 条件更新
	sha2, err := client.WriteFile(ctx, "data/registry.json", []byte(`{"assets":[1]}`), "update registry", sha1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if sha2 == sha1 {
		t.Fatal("expected version token to advance")
	}

	// 过期令牌写入必须报冲突
	_, err = client.WriteFile(ctx, "data/registry.json", []byte(`{"assets":[2]}`), "stale update", sha1)
	if !gitstore.IsConflict(err) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	// 过期令牌删除必须报冲突
	if err := client.DeleteFile(ctx, "data/registry.json", sha1, "stale delete"); !gitstore.IsConflict(err) {
		t.Fatalf("expected ConflictError on stale delete, got %v", err)
	}

	// 当前令牌删除成功，之后读取不存在
	if err := client.DeleteFile(ctx, "data/registry.json", sha2, "delete registry"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, _, err := client.ReadFile(ctx, "data/registry.json"); !errors.Is(err, gitstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// 重复删除报不存在
	if err := client.DeleteFile(ctx, "data/registry.json", sha2, "delete again"); !errors.Is(err, gitstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestWriteCreateExisting(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	if _, err := client.WriteFile(ctx, "a.txt", []byte("one"), "create", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	// 不带令牌写已存在的文件是请求错误，不是冲突
	_, err := client.WriteFile(ctx, "a.txt", []byte("two"), "create again", "")
	if err == nil || gitstore.IsConflict(err) {
		t.Fatalf("expected RequestError, got %v", err)
	}

	var re *gitstore.RequestError
	if !errors.As(err, &re) || re.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 RequestError, got %v", err)
	}
}

func TestListFolder(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	for _, p := range []string{
		"assets/EXC-1/metadata.json",
		"assets/EXC-1/thumbnail.png",
		"assets/EXC-2/metadata.json",
	} {
		if _, err := client.WriteFile(ctx, p, []byte("x"), "seed", ""); err != nil {
			t.Fatalf("seed %s: %v", p, err)
		}
	}

	entries, err := client.ListFolder(ctx, "assets/EXC-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}

	dirs, err := client.ListFolder(ctx, "assets")
	if err != nil {
		t.Fatalf("list root: %v", err)
	}

	if len(dirs) != 2 {
		t.Fatalf("expected 2 asset folders, got %d", len(dirs))
	}

	// 不存在的目录返回空列表
	empty, err := client.ListFolder(ctx, "assets/EXC-404")
	if err != nil {
		t.Fatalf("list missing: %v", err)
	}

	if len(empty) != 0 {
		t.Fatalf("expected empty listing, got %d entries", len(empty))
	}
}
