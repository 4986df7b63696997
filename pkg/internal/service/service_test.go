package service_test

import (
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
	"time"

	"github.com/yeisme/assetvault/pkg/configs"
	ctxPkg "github.com/yeisme/assetvault/pkg/context"
	"github.com/yeisme/assetvault/pkg/internal/model"
	"github.com/yeisme/assetvault/pkg/internal/service"
	"github.com/yeisme/assetvault/pkg/internal/storage"
	"github.com/yeisme/assetvault/pkg/internal/storage/gitstore"
	"github.com/yeisme/assetvault/pkg/internal/types"
)

const (
	testRegistryPath = "data/registry.json"
	testArtifactRoot = "assets"
	testRawBase      = "https://cdn.example.com"
)

// fakeBackend 模拟 contents API：文件携带版本令牌，写删按令牌 CAS.
// registryConflicts 在注册表路径上注入指定次数的写冲突，
// rejectPut 钩子用于模拟特定路径的写入失败，
// seedOnPut 钩子在写入生效前被调用（持锁），用于在读与写之间插入并发修改.
type fakeBackend struct {
	mu                sync.Mutex
	files             map[string]fakeFile
	seq               int
	puts              int
	registryConflicts int
	rejectPut         func(path string) bool
	seedOnPut         func(path string)
}

type fakeFile struct {
	content []byte
	sha     string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{files: make(map[string]fakeFile)}
}

// seed 直接放置一个文件，绕过 HTTP.
func (f *fakeBackend) seed(path string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seedLocked(path, content)
}

// seedLocked 同 seed，但要求调用方已持有 f.mu（供 seedOnPut 钩子使用）.
func (f *fakeBackend) seedLocked(path string, content []byte) {
	f.seq++
	f.files[path] = fakeFile{content: content, sha: fmt.Sprintf("sha-%04d", f.seq)}
}

func (f *fakeBackend) get(path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[path]

	return file.content, ok
}

func (f *fakeBackend) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.puts
}

func (f *fakeBackend) fileCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.files)
}

func (f *fakeBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/repos/acme/vault/contents/")
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

func (f *fakeBackend) handleGet(w http.ResponseWriter, path string) {
	if file, ok := f.files[path]; ok {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content":  base64.StdEncoding.EncodeToString(file.content),
			"encoding": "base64",
			"sha":      file.sha,
			"path":     path,
		})

		return
	}

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

func (f *fakeBackend) handlePut(w http.ResponseWriter, r *http.Request, path string) {
	f.puts++

	if f.seedOnPut != nil {
		f.seedOnPut(path)
	}

	if f.rejectPut != nil && f.rejectPut(path) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"injected write failure"}`))

		return
	}

	if path == testRegistryPath && f.registryConflicts > 0 {
		f.registryConflicts--

		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"is at a different sha"}`))

		return
	}

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

	f.seq++
	sha := fmt.Sprintf("sha-%04d", f.seq)
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

func (f *fakeBackend) handleDelete(w http.ResponseWriter, r *http.Request, path string) {
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

// newTestService 构造针对 fake 后端的 RegistryService.
func newTestService(t *testing.T) (*service.RegistryService, *fakeBackend, context.Context) {
	t.Helper()

	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	cfg := &configs.GitStoreConfig{
		APIBase:           srv.URL,
		Owner:             "acme",
		Repo:              "vault",
		Branch:            "main",
		RawBase:           testRawBase,
		RegistryPath:      testRegistryPath,
		ArtifactRoot:      testArtifactRoot,
		Timeout:           5,
		UpdateMaxAttempts: 4,
		UpdateBackoffMS:   1,
		AssetIDPrefix:     "EXC",
	}

	client, err := gitstore.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("create gitstore client: %v", err)
	}

	mgr := &storage.Manager{Git: client}
	ctx := ctxPkg.WithStorageManager(context.Background(), mgr)

	return service.NewRegistryService(ctx), backend, ctx
}

func testUser() model.User {
	return model.User{ID: "u1", Name: "Alice", Email: "alice@example.com"}
}

func testUpload() service.UploadInput {
	return service.UploadInput{
		Form: types.UploadAssetForm{
			Title:    "crate",
			Category: "prop",
			Keywords: "wood, box",
		},
		Thumbnail: &service.ArtifactFile{Name: "thumb.png", Data: []byte("png-bytes")},
		Video:     &service.ArtifactFile{Name: "clip.mp4", Data: []byte("mp4-bytes")},
		Primary:   service.ArtifactFile{Name: "crate.blend", Data: []byte("blend-bytes")},
	}
}

func TestUploadEndToEnd(t *testing.T) {
	svc, backend, ctx := newTestService(t)

	asset, err := svc.UploadAsset(ctx, testUser(), testUpload())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if !strings.HasPrefix(asset.ID, "EXC-") {
		t.Fatalf("unexpected asset id: %s", asset.ID)
	}

	// URL 由配置确定性推导
	folder := testArtifactRoot + "/" + asset.ID
	wantThumb := testRawBase + "/" + folder + "/thumbnail.png"
	wantVideo := testRawBase + "/" + folder + "/preview.mp4"
	wantFile := testRawBase + "/" + folder + "/file.blend"

	if asset.ThumbnailURL != wantThumb || asset.VideoURL != wantVideo || asset.FileURL != wantFile {
		t.Fatalf("unexpected urls: %s %s %s", asset.ThumbnailURL, asset.VideoURL, asset.FileURL)
	}

	// 工件与元数据实际落盘
	for _, p := range []string{
		folder + "/thumbnail.png",
		folder + "/preview.mp4",
		folder + "/file.blend",
		folder + "/metadata.json",
	} {
		if _, ok := backend.get(p); !ok {
			t.Fatalf("missing artifact %s", p)
		}
	}

	// 注册表中恰好一条记录
	assets, sha, err := svc.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}

	if len(assets) != 1 || assets[0].ID != asset.ID || sha == "" {
		t.Fatalf("unexpected registry state: %d entries", len(assets))
	}

	if assets[0].FileType != "blend" || len(assets[0].Keywords) != 2 {
		t.Fatalf("unexpected entry: %+v", assets[0])
	}

	// 点赞翻转：两次调用复原
	updated, liked, err := svc.ToggleLike(ctx, asset.ID, "u2")
	if err != nil || !liked || len(updated.Likes) != 1 || updated.Likes[0] != "u2" {
		t.Fatalf("first toggle: liked=%v likes=%v err=%v", liked, updated.Likes, err)
	}

	updated, liked, err = svc.ToggleLike(ctx, asset.ID, "u2")
	if err != nil || liked || len(updated.Likes) != 0 {
		t.Fatalf("second toggle: liked=%v likes=%v err=%v", liked, updated.Likes, err)
	}

	// 下载计数单调递增
	for i := range 3 {
		if updated, err = svc.IncrementDownload(ctx, asset.ID); err != nil {
			t.Fatalf("download %d: %v", i, err)
		}
	}

	if updated.DownloadCount != 3 {
		t.Fatalf("expected 3 downloads, got %d", updated.DownloadCount)
	}

	// 删除：注册表清空，工件目录清理
	cleaned, orphaned, found, err := svc.RemoveAsset(ctx, asset.ID)
	if err != nil || !found {
		t.Fatalf("remove: found=%v err=%v", found, err)
	}

	if cleaned != 4 || orphaned != 0 {
		t.Fatalf("expected 4 cleaned artifacts, got cleaned=%d orphaned=%d", cleaned, orphaned)
	}

	assets, _, err = svc.GetAll(ctx)
	if err != nil || len(assets) != 0 {
		t.Fatalf("registry should be empty after remove: %d entries, err=%v", len(assets), err)
	}
}

func TestUpsertPrependsAndDeduplicates(t *testing.T) {
	svc, _, ctx := newTestService(t)

	a := model.Asset{ID: "EXC-A", Title: "first", Likes: []string{}}
	b := model.Asset{ID: "EXC-B", Title: "second", Likes: []string{}}

	if _, replaced, err := svc.Upsert(ctx, a); err != nil || replaced {
		t.Fatalf("insert a: replaced=%v err=%v", replaced, err)
	}

	if _, replaced, err := svc.Upsert(ctx, b); err != nil || replaced {
		t.Fatalf("insert b: replaced=%v err=%v", replaced, err)
	}

	// 新条目置前
	assets, _, _ := svc.GetAll(ctx)
	if len(assets) != 2 || assets[0].ID != "EXC-B" {
		t.Fatalf("expected b first, got %+v", assets)
	}

	// 同 ID 重写：旧条目移除，新条目重新置前，不产生重复
	a.Title = "first-v2"

	if _, replaced, err := svc.Upsert(ctx, a); err != nil || !replaced {
		t.Fatalf("replace a: replaced=%v err=%v", replaced, err)
	}

	assets, _, _ = svc.GetAll(ctx)
	if len(assets) != 2 || assets[0].ID != "EXC-A" || assets[0].Title != "first-v2" {
		t.Fatalf("replaced record should move to front: %+v", assets)
	}

	// 完全相同的条目再写一次仍然只有一条
	if _, replaced, err := svc.Upsert(ctx, a); err != nil || !replaced {
		t.Fatalf("idempotent upsert: replaced=%v err=%v", replaced, err)
	}

	assets, _, _ = svc.GetAll(ctx)
	if len(assets) != 2 {
		t.Fatalf("duplicate entry after repeated upsert: %+v", assets)
	}
}

func TestUpdateRetriesOnConflict(t *testing.T) {
	svc, backend, ctx := newTestService(t)

	if _, _, err := svc.Upsert(ctx, model.Asset{ID: "EXC-A", Likes: []string{}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	backend.mu.Lock()
	backend.registryConflicts = 2
	backend.mu.Unlock()

	asset, _, err := svc.ToggleLike(ctx, "EXC-A", "u9")
	if err != nil {
		t.Fatalf("toggle should survive 2 conflicts: %v", err)
	}

	if !asset.HasLiked("u9") {
		t.Fatal("like lost after retries")
	}
}

func TestUpdateConflictExhausted(t *testing.T) {
	svc, backend, ctx := newTestService(t)

	if _, _, err := svc.Upsert(ctx, model.Asset{ID: "EXC-A", Likes: []string{}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	backend.mu.Lock()
	backend.registryConflicts = 100
	backend.mu.Unlock()

	_, _, err := svc.ToggleLike(ctx, "EXC-A", "u9")
	if !gitstore.IsConflict(err) {
		t.Fatalf("expected ConflictError after exhausting retries, got %v", err)
	}
}

func TestUpdateRetriesOnCreateCollision(t *testing.T) {
	svc, backend, ctx := newTestService(t)

	// 注册表尚不存在，写入方读到空快照后走创建语义（sha 为空）.
	// 钩子在创建请求落地前抢先放入一份注册表，后端随即返回 422：
	// 更新原语必须把这当作冲突重读重试，而不是直接报错.
	rival, _ := json.Marshal([]model.Asset{{ID: "EXC-RIVAL", Title: "rival", Likes: []string{}}})

	var once sync.Once

	backend.seedOnPut = func(path string) {
		if path != testRegistryPath {
			return
		}

		once.Do(func() {
			backend.seedLocked(testRegistryPath, rival)
		})
	}

	if _, replaced, err := svc.Upsert(ctx, model.Asset{ID: "EXC-A", Likes: []string{}}); err != nil || replaced {
		t.Fatalf("upsert should survive concurrent registry creation: replaced=%v err=%v", replaced, err)
	}

	// 两个写入方的条目都在，后写的置前
	assets, _, err := svc.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}

	if len(assets) != 2 || assets[0].ID != "EXC-A" || assets[1].ID != "EXC-RIVAL" {
		t.Fatalf("expected both writers' entries, got %+v", assets)
	}
}

func TestFindAndUpdateNotFound(t *testing.T) {
	svc, backend, ctx := newTestService(t)

	_, err := svc.IncrementDownload(ctx, "EXC-MISSING")
	if !service.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	// 不产生任何提交
	if backend.putCount() != 0 {
		t.Fatalf("missing target must not commit, got %d puts", backend.putCount())
	}
}

func TestRemoveIdempotent(t *testing.T) {
	svc, backend, ctx := newTestService(t)

	cleaned, orphaned, found, err := svc.RemoveAsset(ctx, "EXC-MISSING")
	if err != nil {
		t.Fatalf("remove of missing asset must not error: %v", err)
	}

	if found || cleaned != 0 || orphaned != 0 {
		t.Fatalf("unexpected result: found=%v cleaned=%d orphaned=%d", found, cleaned, orphaned)
	}

	if backend.putCount() != 0 {
		t.Fatalf("idempotent remove must not commit, got %d puts", backend.putCount())
	}
}

func TestPartialUploadLeavesRegistryUntouched(t *testing.T) {
	svc, backend, ctx := newTestService(t)

	backend.mu.Lock()
	backend.rejectPut = func(path string) bool {
		return strings.Contains(path, "/file.")
	}
	backend.mu.Unlock()

	_, err := svc.UploadAsset(ctx, testUser(), testUpload())

	var pe *service.PartialUploadError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PartialUploadError, got %v", err)
	}

	if pe.Step != service.StepPrimary || pe.AssetID == "" {
		t.Fatalf("unexpected failure point: step=%s id=%s", pe.Step, pe.AssetID)
	}

	// 注册表从未提交：资产对外不可见
	if _, ok := backend.get(testRegistryPath); ok {
		t.Fatal("registry must not exist after failed upload")
	}
}

func TestSweepOrphans(t *testing.T) {
	svc, backend, ctx := newTestService(t)

	// 注册在案的资产
	asset, err := svc.UploadAsset(ctx, testUser(), testUpload())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	// 过期孤儿：元数据时间戳在宽限期之外
	orphanMeta := fmt.Sprintf(`{"id":"EXC-ORPHAN","timestamp":%q}`,
		time.Now().Add(-48*time.Hour).UTC().Format(time.RFC3339))
	backend.seed(testArtifactRoot+"/EXC-ORPHAN/metadata.json", []byte(orphanMeta))
	backend.seed(testArtifactRoot+"/EXC-ORPHAN/file.blend", []byte("stale"))

	// 新鲜孤儿：可能是在途上传，必须跳过
	freshMeta := fmt.Sprintf(`{"id":"EXC-FRESH","timestamp":%q}`,
		time.Now().UTC().Format(time.RFC3339))
	backend.seed(testArtifactRoot+"/EXC-FRESH/metadata.json", []byte(freshMeta))

	result, err := svc.SweepOrphans(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if len(result.Folders) != 1 || result.Folders[0] != "EXC-ORPHAN" || result.Removed != 2 {
		t.Fatalf("unexpected sweep result: %+v", result)
	}

	if _, ok := backend.get(testArtifactRoot + "/EXC-ORPHAN/file.blend"); ok {
		t.Fatal("orphan artifact should be gone")
	}

	if _, ok := backend.get(testArtifactRoot + "/EXC-FRESH/metadata.json"); !ok {
		t.Fatal("fresh folder must survive the sweep")
	}

	if _, ok := backend.get(testArtifactRoot + "/" + asset.ID + "/metadata.json"); !ok {
		t.Fatal("registered asset must survive the sweep")
	}
}

func TestSnapshotRegistry(t *testing.T) {
	svc, backend, ctx := newTestService(t)

	if _, _, err := svc.Upsert(ctx, model.Asset{ID: "EXC-A", Likes: []string{}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	path, err := svc.SnapshotRegistry(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if !strings.HasPrefix(path, "backups/registry-") {
		t.Fatalf("unexpected snapshot path: %s", path)
	}

	snap, ok := backend.get(path)
	if !ok {
		t.Fatal("snapshot file missing")
	}

	reg, _ := backend.get(testRegistryPath)
	if string(snap) != string(reg) {
		t.Fatal("snapshot should mirror registry content")
	}

	// 同日二次快照按令牌覆盖
	if _, err := svc.SnapshotRegistry(ctx); err != nil {
		t.Fatalf("second snapshot: %v", err)
	}
}
