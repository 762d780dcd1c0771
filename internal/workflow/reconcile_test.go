package workflow

import (
	"errors"
	"testing"

	"github.com/erazemk/estatedesk/internal/model"
)

// itemWithGroups returns an item with one group per batch size.
func itemWithGroups(batches ...int) *model.Item {
	it := &model.Item{}
	for _, n := range batches {
		ApplyUpload(it, photos(n))
	}
	return it
}

func TestMergeAnalysis(t *testing.T) {
	it := itemWithGroups(4)
	groups := UnanalyzedGroups(it)

	merged, err := MergeAnalysis(it, groups, []model.Proposal{
		{ItemNumber: 1, Price: 120, Title: "Oak Chair", PhotoIndices: []int{0, 1, 2, 3}},
	})
	if err != nil {
		t.Fatalf("MergeAnalysis: %v", err)
	}
	if len(merged) != 1 || len(it.AI) != 1 {
		t.Fatalf("expected one proposal, got %d merged, %d stored", len(merged), len(it.AI))
	}
	if !it.IsAnalyzed(1) {
		t.Error("expected group 1 to be analyzed")
	}
	pending := PendingReview(it)
	if len(pending) != 1 || pending[0].Title != "Oak Chair" {
		t.Errorf("expected Oak Chair pending, got %+v", pending)
	}
	if len(UnanalyzedGroups(it)) != 0 {
		t.Error("expected no unanalyzed groups")
	}
}

func TestMergeAnalysisDefaultsFields(t *testing.T) {
	it := itemWithGroups(2, 3)
	groups := UnanalyzedGroups(it)

	merged, err := MergeAnalysis(it, groups, []model.Proposal{
		{ItemNumber: 2, Price: -5},
		{ItemNumber: 1, Title: "  Lamp "},
	})
	if err != nil {
		t.Fatalf("MergeAnalysis: %v", err)
	}
	if merged[0].Title != "Lamp" {
		t.Errorf("expected trimmed title, got %q", merged[0].Title)
	}
	if merged[1].Title != "Item 2" {
		t.Errorf("expected placeholder title, got %q", merged[1].Title)
	}
	if got := merged[1].PhotoIndices; len(got) != 3 || got[0] != 2 {
		t.Errorf("expected group indices 2..4, got %v", got)
	}
	if merged[1].Price != 0 {
		t.Errorf("expected negative price clamped to 0, got %v", merged[1].Price)
	}
	if merged[0].Tags == nil {
		t.Error("expected tags to default to empty")
	}
}

func TestMergeAnalysisAllOrNothing(t *testing.T) {
	tests := []struct {
		name      string
		proposals []model.Proposal
	}{
		{"partial", []model.Proposal{{ItemNumber: 1}}},
		{"duplicate", []model.Proposal{{ItemNumber: 1}, {ItemNumber: 1}}},
		{"foreign", []model.Proposal{{ItemNumber: 1}, {ItemNumber: 9}}},
		{"extra", []model.Proposal{{ItemNumber: 1}, {ItemNumber: 2}, {ItemNumber: 3}}},
		{"bad photo index", []model.Proposal{{ItemNumber: 1}, {ItemNumber: 2, PhotoIndices: []int{42}}}},
		{"other group's photo", []model.Proposal{{ItemNumber: 1, PhotoIndices: []int{0, 1}}, {ItemNumber: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := itemWithGroups(1, 1)
			groups := UnanalyzedGroups(it)
			_, err := MergeAnalysis(it, groups, tt.proposals)
			if !errors.Is(err, ErrAnalysis) {
				t.Fatalf("expected ErrAnalysis, got %v", err)
			}
			if len(it.AI) != 0 || len(it.AnalyzedGroups) != 0 {
				t.Errorf("failed merge mutated item: ai=%d analyzed=%v", len(it.AI), it.AnalyzedGroups)
			}
		})
	}
}

func TestMergeAnalysisRejectsReanalysis(t *testing.T) {
	it := itemWithGroups(1)
	groups := UnanalyzedGroups(it)
	if _, err := MergeAnalysis(it, groups, []model.Proposal{{ItemNumber: 1}}); err != nil {
		t.Fatalf("first merge: %v", err)
	}
	if _, err := MergeAnalysis(it, groups, []model.Proposal{{ItemNumber: 1}}); !errors.Is(err, ErrAnalysis) {
		t.Errorf("expected ErrAnalysis on second merge, got %v", err)
	}
	if len(it.AI) != 1 {
		t.Errorf("expected one proposal, got %d", len(it.AI))
	}
}

func TestAnalysisTargets(t *testing.T) {
	it := itemWithGroups(1, 1, 1)
	it.AnalyzedGroups = []int{2}

	all, err := AnalysisTargets(it, nil)
	if err != nil {
		t.Fatalf("AnalysisTargets: %v", err)
	}
	if len(all) != 2 || all[0].ItemNumber != 1 || all[1].ItemNumber != 3 {
		t.Errorf("expected groups 1 and 3, got %+v", all)
	}

	some, err := AnalysisTargets(it, []int{2, 3, 3})
	if err != nil {
		t.Fatalf("AnalysisTargets: %v", err)
	}
	if len(some) != 1 || some[0].ItemNumber != 3 {
		t.Errorf("expected only group 3, got %+v", some)
	}

	if _, err := AnalysisTargets(it, []int{7}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPendingReviewExcludesApproved(t *testing.T) {
	it := itemWithGroups(1, 1, 1)
	MergeAnalysis(it, UnanalyzedGroups(it), []model.Proposal{
		{ItemNumber: 1, Price: 10}, {ItemNumber: 2, Price: 20}, {ItemNumber: 3, Price: 30},
	})
	if err := TransitionOnApprove(it, []model.ApprovedItem{{ItemNumber: 2, Price: 25}}); err != nil {
		t.Fatalf("TransitionOnApprove: %v", err)
	}

	approved := map[int]bool{}
	for _, a := range it.ApprovedItems {
		approved[a.ItemNumber] = true
	}
	for _, p := range PendingReview(it) {
		if approved[p.ItemNumber] {
			t.Errorf("approved item #%d still pending", p.ItemNumber)
		}
	}
	if got := len(PendingReview(it)); got != 2 {
		t.Errorf("expected 2 pending, got %d", got)
	}
}
