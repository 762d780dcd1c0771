package workflow

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/erazemk/estatedesk/internal/model"
)

// approvedItem builds an item with one approved listing per batch size.
func approvedItem(t *testing.T, batches ...int) *model.Item {
	t.Helper()
	it := itemWithGroups(batches...)
	it.Status = model.ItemStatusNeedsReview
	var props []model.Proposal
	var batch []model.ApprovedItem
	for _, g := range it.PhotoGroups {
		props = append(props, model.Proposal{ItemNumber: g.ItemNumber, Price: 10})
		batch = append(batch, model.ApprovedItem{ItemNumber: g.ItemNumber, Price: 10})
	}
	if _, err := MergeAnalysis(it, UnanalyzedGroups(it), props); err != nil {
		t.Fatalf("MergeAnalysis: %v", err)
	}
	if err := TransitionOnApprove(it, batch); err != nil {
		t.Fatalf("TransitionOnApprove: %v", err)
	}
	return it
}

func price(v float64) *float64 { return &v }

func TestComposeApproval(t *testing.T) {
	it := itemWithGroups(4)
	MergeAnalysis(it, UnanalyzedGroups(it), []model.Proposal{
		{ItemNumber: 1, Price: 120, Title: "Oak Chair", PhotoIndices: []int{0, 1, 2, 3}},
	})
	buf := NewEditBuffer()
	buf.Sync(PendingReview(it))
	buf.SetField(1, FieldPrice, "150")
	buf.SetDimension(1, AxisLength, "20")
	buf.SetWeight(1, WeightValue, "")

	batch, err := ComposeApproval(it, buf, []int{1})
	if err != nil {
		t.Fatalf("ComposeApproval: %v", err)
	}
	a := batch[0]
	if a.Price != 150 || a.Title != "Oak Chair" || a.Dimensions.Length != 20 || a.Weight.Value != 0 {
		t.Errorf("unexpected approval %+v", a)
	}
	if len(a.PhotoIndices) != 4 {
		t.Errorf("expected photo indices from proposal, got %v", a.PhotoIndices)
	}
}

func TestComposeApprovalErrors(t *testing.T) {
	it := itemWithGroups(1, 1)
	MergeAnalysis(it, UnanalyzedGroups(it), []model.Proposal{{ItemNumber: 1, Price: 5}, {ItemNumber: 2}})
	buf := NewEditBuffer()
	buf.Sync(PendingReview(it))

	if _, err := ComposeApproval(it, buf, []int{1, 2}); !errors.Is(err, ErrPriceMissing) {
		t.Errorf("expected ErrPriceMissing, got %v", err)
	}
	buf.SetDimension(1, AxisWidth, "wide")
	if _, err := ComposeApproval(it, buf, []int{1}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for bad dimension, got %v", err)
	}
	if _, err := ComposeApproval(it, buf, []int{7}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := ComposeApproval(it, buf, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for empty batch, got %v", err)
	}
}

func TestTransitionOnApproveIsAtomic(t *testing.T) {
	it := itemWithGroups(1, 1)
	MergeAnalysis(it, UnanalyzedGroups(it), []model.Proposal{{ItemNumber: 1}, {ItemNumber: 2}})
	it.Status = model.ItemStatusNeedsReview

	err := TransitionOnApprove(it, []model.ApprovedItem{
		{ItemNumber: 1, Price: 10},
		{ItemNumber: 2, Price: 0},
	})
	if !errors.Is(err, ErrPriceMissing) {
		t.Fatalf("expected ErrPriceMissing, got %v", err)
	}
	if len(it.ApprovedItems) != 0 || it.Status != model.ItemStatusNeedsReview {
		t.Errorf("failed batch was partially applied: %d approved, status %q", len(it.ApprovedItems), it.Status)
	}
}

func TestTransitionOnApproveRejectsReapproval(t *testing.T) {
	it := approvedItem(t, 2)
	err := TransitionOnApprove(it, []model.ApprovedItem{{ItemNumber: 1, Price: 99}})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	if len(it.ApprovedItems) != 1 {
		t.Errorf("expected one approved item, got %d", len(it.ApprovedItems))
	}
}

func TestTransitionOnApproveDuplicateInBatch(t *testing.T) {
	it := itemWithGroups(1)
	MergeAnalysis(it, UnanalyzedGroups(it), []model.Proposal{{ItemNumber: 1}})
	err := TransitionOnApprove(it, []model.ApprovedItem{{ItemNumber: 1, Price: 1}, {ItemNumber: 1, Price: 2}})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestReopenPreservesHistory(t *testing.T) {
	it := approvedItem(t, 4, 2)
	if _, err := ApplyDisposition(it, 1, model.DispositionSold, price(140), ConflictReject); err != nil {
		t.Fatalf("ApplyDisposition: %v", err)
	}
	before := snapshotJSON(t, it)

	if err := Reopen(it, "need better photos"); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if it.Status != model.ItemStatusNeedsReview {
		t.Errorf("expected needs_review, got %q", it.Status)
	}
	if after := snapshotJSON(t, it); after != before {
		t.Errorf("reopen changed history:\nbefore %s\nafter  %s", before, after)
	}
	if err := CheckUpload(it); err != nil {
		t.Errorf("expected upload to be allowed after reopen, got %v", err)
	}
}

// snapshotJSON serializes everything reopen must leave untouched.
func snapshotJSON(t *testing.T, it *model.Item) string {
	t.Helper()
	b, err := json.Marshal(struct {
		AI                              []model.Proposal
		Approved                        []model.ApprovedItem
		Sold, Donated, Hauled, Analyzed []int
	}{it.AI, it.ApprovedItems, it.SoldPhotoIndices, it.DonatedPhotoIndices, it.HauledPhotoIndices, it.AnalyzedGroups})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestReopenRequiresReason(t *testing.T) {
	it := approvedItem(t, 1)
	if err := Reopen(it, "   "); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if it.Status != model.ItemStatusApproved {
		t.Errorf("expected status unchanged, got %q", it.Status)
	}
}

func TestCheckUploadBlockedWhileApproved(t *testing.T) {
	it := approvedItem(t, 1)
	if err := CheckUpload(it); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestDeriveStatus(t *testing.T) {
	it := &model.Item{}
	if got := DeriveStatus(it); got != model.ItemStatusDraft {
		t.Errorf("expected draft, got %q", got)
	}
	ApplyUpload(it, photos(1))
	if got := DeriveStatus(it); got != model.ItemStatusNeedsReview {
		t.Errorf("expected needs_review, got %q", got)
	}
	it = approvedItem(t, 1)
	if got := DeriveStatus(it); got != model.ItemStatusApproved {
		t.Errorf("expected approved, got %q", got)
	}
	Reopen(it, "fix title")
	if got := DeriveStatus(it); got != model.ItemStatusNeedsReview {
		t.Errorf("expected needs_review after reopen, got %q", got)
	}
}

func TestApplyDispositionSold(t *testing.T) {
	it := approvedItem(t, 4)
	changed, err := ApplyDisposition(it, 1, model.DispositionSold, price(140), ConflictReject)
	if err != nil {
		t.Fatalf("ApplyDisposition: %v", err)
	}
	if len(changed) != 4 || len(it.SoldPhotoIndices) != 4 {
		t.Errorf("expected 4 sold photos, got %v", it.SoldPhotoIndices)
	}
	a, _ := it.Approved(1)
	if a.EstateSalePrice == nil || *a.EstateSalePrice != 140 {
		t.Errorf("expected estate sale price 140, got %v", a.EstateSalePrice)
	}

	// Repeating the same disposition is harmless.
	changed, err = ApplyDisposition(it, 1, model.DispositionSold, price(140), ConflictReject)
	if err != nil || len(changed) != 0 {
		t.Errorf("expected idempotent repeat, got %v, %v", changed, err)
	}
}

func TestApplyDispositionValidation(t *testing.T) {
	it := approvedItem(t, 1)
	tests := []struct {
		name  string
		kind  string
		price *float64
		want  error
	}{
		{"sold without price", model.DispositionSold, nil, ErrValidation},
		{"sold with zero price", model.DispositionSold, price(0), ErrValidation},
		{"donated with price", model.DispositionDonated, price(5), ErrValidation},
		{"unknown kind", "lost", nil, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ApplyDisposition(it, 1, tt.kind, tt.price, ConflictReject); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if len(it.SoldPhotoIndices)+len(it.DonatedPhotoIndices) != 0 {
		t.Error("rejected dispositions mutated the item")
	}
}

func TestApplyDispositionRequiresApproval(t *testing.T) {
	it := approvedItem(t, 1)
	ApplyUpload(it, photos(1))
	if _, err := ApplyDisposition(it, 2, model.DispositionHauled, nil, ConflictReject); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for unapproved item, got %v", err)
	}
	if _, err := ApplyDisposition(it, 9, model.DispositionHauled, nil, ConflictReject); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown item, got %v", err)
	}
}

func TestApplyDispositionConflict(t *testing.T) {
	it := approvedItem(t, 2)
	ApplyDisposition(it, 1, model.DispositionSold, price(40), ConflictReject)

	if _, err := ApplyDisposition(it, 1, model.DispositionDonated, nil, ConflictReject); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if len(it.DonatedPhotoIndices) != 0 || len(it.SoldPhotoIndices) != 2 {
		t.Errorf("conflict mutated sets: sold=%v donated=%v", it.SoldPhotoIndices, it.DonatedPhotoIndices)
	}
}

func TestApplyDispositionLastWriteWins(t *testing.T) {
	it := approvedItem(t, 2)
	ApplyDisposition(it, 1, model.DispositionSold, price(40), ConflictReject)

	changed, err := ApplyDisposition(it, 1, model.DispositionHauled, nil, ConflictLastWriteWins)
	if err != nil {
		t.Fatalf("ApplyDisposition: %v", err)
	}
	if len(changed) != 2 || len(it.HauledPhotoIndices) != 2 || len(it.SoldPhotoIndices) != 0 {
		t.Errorf("expected photos moved to hauled: sold=%v hauled=%v", it.SoldPhotoIndices, it.HauledPhotoIndices)
	}
	if a, _ := it.Approved(1); a.EstateSalePrice != nil {
		t.Errorf("expected sale price cleared, got %v", *a.EstateSalePrice)
	}
}

func TestDispositionExclusivity(t *testing.T) {
	kinds := []string{model.DispositionSold, model.DispositionDonated, model.DispositionHauled}
	for _, policy := range []ConflictPolicy{ConflictReject, ConflictLastWriteWins} {
		it := approvedItem(t, 2, 1, 3)
		for step := range 12 {
			n := step%3 + 1
			kind := kinds[(step*7)%3]
			var p *float64
			if kind == model.DispositionSold {
				p = price(float64(step + 1))
			}
			ApplyDisposition(it, n, kind, p, policy)
			if err := CheckDispositions(it); err != nil {
				t.Fatalf("policy %s step %d: %v", policy, step, err)
			}
		}
	}
}

func TestParseConflictPolicy(t *testing.T) {
	if p, err := ParseConflictPolicy(""); err != nil || p != ConflictReject {
		t.Errorf("expected default reject, got %q, %v", p, err)
	}
	if p, err := ParseConflictPolicy("last_write_wins"); err != nil || p != ConflictLastWriteWins {
		t.Errorf("expected last_write_wins, got %q, %v", p, err)
	}
	if _, err := ParseConflictPolicy("coin_flip"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
