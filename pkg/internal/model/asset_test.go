package model_test

import (
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/yeisme/assetvault/pkg/internal/model"
)

func TestToggleLikeInvolution(t *testing.T) {
	a := model.Asset{ID: "EXC-1", Likes: []string{"alice"}}

	if !a.ToggleLike("bob") {
		t.Fatal("first toggle should add the like")
	}

	if !a.HasLiked("bob") || len(a.Likes) != 2 {
		t.Fatalf("unexpected likes after add: %v", a.Likes)
	}

	if a.ToggleLike("bob") {
		t.Fatal("second toggle should remove the like")
	}

	if a.HasLiked("bob") || len(a.Likes) != 1 || a.Likes[0] != "alice" {
		t.Fatalf("unexpected likes after remove: %v", a.Likes)
	}
}

func TestNormalize(t *testing.T) {
	a := model.Asset{ID: "EXC-1", DownloadCount: -5, Reports: -1}
	a.Normalize()

	if a.Likes == nil {
		t.Fatal("nil likes should become empty slice")
	}

	if a.DownloadCount != 0 || a.Reports != 0 {
		t.Fatalf("negative counters should reset: downloads=%d reports=%d", a.DownloadCount, a.Reports)
	}

	if a.Timestamp.IsZero() {
		t.Fatal("zero timestamp should be filled")
	}
}

func TestAssetJSONFieldNames(t *testing.T) {
	a := model.Asset{ID: "EXC-1", UserID: "u1", FileType: "blend"}
	a.Normalize()

	data, err := sonic.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// 序列化格式即存储格式，字段名必须保持 camelCase
	for _, field := range []string{`"id"`, `"userId"`, `"fileType"`, `"downloadCount"`, `"likes"`, `"timestamp"`} {
		if !strings.Contains(string(data), field) {
			t.Fatalf("missing field %s in %s", field, data)
		}
	}
}

func TestNewAssetID(t *testing.T) {
	id := model.NewAssetID("")

	if !strings.HasPrefix(id, model.DefaultAssetIDPrefix+"-") {
		t.Fatalf("unexpected prefix: %s", id)
	}

	if id != strings.ToUpper(id) {
		t.Fatalf("id should be uppercase: %s", id)
	}

	parts := strings.Split(id, "-")
	if len(parts) != 3 || len(parts[2]) != 3 {
		t.Fatalf("unexpected shape: %s", id)
	}
}

func TestCategoryAndFileType(t *testing.T) {
	if !model.IsValidCategory("prop") || model.IsValidCategory("banana") {
		t.Fatal("category validation broken")
	}

	if !model.IsValidFileType("BLEND") || model.IsValidFileType("exe") {
		t.Fatal("file type validation broken")
	}
}
