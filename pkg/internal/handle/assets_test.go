package handle

import (
	"testing"
	"time"

	"github.com/yeisme/assetvault/pkg/internal/model"
	"github.com/yeisme/assetvault/pkg/internal/types"
)

func sampleAssets() []model.Asset {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	return []model.Asset{
		{ID: "EXC-AAA-111", UserID: "alice@example.com", Title: "Old Oak Tree", Description: "weathered prop", Category: "environment", FileType: "blend", Keywords: []string{"tree", "nature"}, Timestamp: base},
		{ID: "EXC-BBB-222", UserID: "bob@example.com", Title: "Space Rover", Description: "six wheels", Category: "vehicle", FileType: "fbx", Keywords: []string{"sci-fi"}, Timestamp: base.Add(time.Hour)},
		{ID: "EXC-CCC-333", UserID: "alice@example.com", Title: "Pine Forest Pack", Description: "trees in bulk", Category: "environment", FileType: "blend", Timestamp: base.Add(2 * time.Hour)},
	}
}

func TestFilterAssets(t *testing.T) {
	assets := sampleAssets()

	cases := []struct {
		name string
		req  types.ListAssetsRequest
		want []string
	}{
		{"no filter", types.ListAssetsRequest{}, []string{"EXC-AAA-111", "EXC-BBB-222", "EXC-CCC-333"}},
		{"query on title", types.ListAssetsRequest{Query: "rover"}, []string{"EXC-BBB-222"}},
		{"query on keywords", types.ListAssetsRequest{Query: "nature"}, []string{"EXC-AAA-111"}},
		{"query on id", types.ListAssetsRequest{Query: "ccc-333"}, []string{"EXC-CCC-333"}},
		{"query on description", types.ListAssetsRequest{Query: "wheels"}, []string{"EXC-BBB-222"}},
		{"category", types.ListAssetsRequest{Category: "environment"}, []string{"EXC-AAA-111", "EXC-CCC-333"}},
		{"category and query", types.ListAssetsRequest{Category: "environment", Query: "pine"}, []string{"EXC-CCC-333"}},
		{"file type", types.ListAssetsRequest{FileType: "fbx"}, []string{"EXC-BBB-222"}},
		{"user", types.ListAssetsRequest{UserID: "alice@example.com"}, []string{"EXC-AAA-111", "EXC-CCC-333"}},
		{"no match", types.ListAssetsRequest{Query: "dragon"}, []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := filterAssets(assets, &tc.req)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d assets, want %d", len(got), len(tc.want))
			}

			for i, a := range got {
				if a.ID != tc.want[i] {
					t.Errorf("result[%d] = %s, want %s", i, a.ID, tc.want[i])
				}
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	assets := sampleAssets()

	if got := paginate(assets, 0, 2); len(got) != 2 {
		t.Errorf("limit 2: got %d assets", len(got))
	}

	if got := paginate(assets, 2, 0); len(got) != 1 || got[0].ID != "EXC-CCC-333" {
		t.Errorf("offset 2: got %+v", got)
	}

	if got := paginate(assets, 10, 5); len(got) != 0 {
		t.Errorf("offset beyond end: got %d assets", len(got))
	}

	if got := paginate(assets, -1, 0); len(got) != 3 {
		t.Errorf("negative offset: got %d assets", len(got))
	}
}
