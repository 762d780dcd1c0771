package workflow

import (
	"errors"
	"testing"

	"github.com/erazemk/estatedesk/internal/model"
)

func photos(n int) []model.Photo {
	out := make([]model.Photo, n)
	for i := range out {
		out[i] = model.Photo{URL: "https://example.test/p.jpg"}
	}
	return out
}

func TestApplyUploadFirstBatch(t *testing.T) {
	it := &model.Item{}
	g, added, err := ApplyUpload(it, photos(4))
	if err != nil {
		t.Fatalf("ApplyUpload: %v", err)
	}
	if g.ItemNumber != 1 || g.StartIndex != 0 || g.EndIndex != 3 || g.PhotoCount != 4 {
		t.Errorf("unexpected group %+v", g)
	}
	if g.Title != "Item 1" {
		t.Errorf("expected title 'Item 1', got %q", g.Title)
	}
	if len(added) != 4 || added[3].Index != 3 {
		t.Errorf("expected 4 indexed photos, got %+v", added)
	}
	if len(it.AnalyzedGroups) != 0 {
		t.Errorf("expected no analyzed groups, got %v", it.AnalyzedGroups)
	}
	un := UnanalyzedGroups(it)
	if len(un) != 1 || un[0].ItemNumber != 1 {
		t.Errorf("expected group 1 unanalyzed, got %+v", un)
	}
}

func TestApplyUploadEmptyBatch(t *testing.T) {
	it := &model.Item{}
	if _, _, err := ApplyUpload(it, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if len(it.Photos) != 0 || len(it.PhotoGroups) != 0 {
		t.Error("empty batch must not mutate the item")
	}
}

func TestApplyUploadKeepsExistingGroups(t *testing.T) {
	it := &model.Item{}
	first, _, _ := ApplyUpload(it, photos(2))
	second, _, _ := ApplyUpload(it, photos(3))

	if it.PhotoGroups[0] != first {
		t.Errorf("first group changed: %+v", it.PhotoGroups[0])
	}
	if second.ItemNumber != 2 || second.StartIndex != 2 || second.EndIndex != 4 {
		t.Errorf("unexpected second group %+v", second)
	}
}

func TestItemNumbersNeverReused(t *testing.T) {
	// Number 3 was used by an approval whose group is gone from this view.
	it := &model.Item{
		NextItemNumber: 2,
		ApprovedItems:  []model.ApprovedItem{{ItemNumber: 3}},
	}
	g, _, err := ApplyUpload(it, photos(1))
	if err != nil {
		t.Fatalf("ApplyUpload: %v", err)
	}
	if g.ItemNumber != 4 {
		t.Errorf("expected item number 4, got %d", g.ItemNumber)
	}
	if it.NextItemNumber != 5 {
		t.Errorf("expected next item number 5, got %d", it.NextItemNumber)
	}
}

func TestPartitionInvariant(t *testing.T) {
	batches := []int{1, 4, 2, 7, 1, 3}
	it := &model.Item{}
	for _, n := range batches {
		if _, _, err := ApplyUpload(it, photos(n)); err != nil {
			t.Fatalf("ApplyUpload(%d): %v", n, err)
		}
		if err := CheckPartition(it); err != nil {
			t.Fatalf("partition broken after batch of %d: %v", n, err)
		}
	}

	covered := make([]int, len(it.Photos))
	for _, g := range it.PhotoGroups {
		for _, idx := range g.Indices() {
			covered[idx]++
		}
	}
	for idx, c := range covered {
		if c != 1 {
			t.Errorf("photo %d covered %d times", idx, c)
		}
	}
}

func TestCheckPartitionDetectsGap(t *testing.T) {
	it := &model.Item{
		Photos: photos(4),
		PhotoGroups: []model.PhotoGroup{
			{ItemNumber: 1, StartIndex: 0, EndIndex: 1, PhotoCount: 2},
			{ItemNumber: 2, StartIndex: 3, EndIndex: 3, PhotoCount: 1},
		},
	}
	if err := CheckPartition(it); err == nil {
		t.Error("expected gap to be reported")
	}
}

func TestUnanalyzedGroupsPreservesOrder(t *testing.T) {
	it := &model.Item{}
	for range 4 {
		ApplyUpload(it, photos(1))
	}
	it.AnalyzedGroups = []int{2}

	un := UnanalyzedGroups(it)
	want := []int{1, 3, 4}
	if len(un) != len(want) {
		t.Fatalf("expected %d groups, got %d", len(want), len(un))
	}
	for i, g := range un {
		if g.ItemNumber != want[i] {
			t.Errorf("position %d: expected #%d, got #%d", i, want[i], g.ItemNumber)
		}
	}
}
