package model

import (
	"slices"
	"testing"
)

func TestPhotoGroupIndices(t *testing.T) {
	g := PhotoGroup{ItemNumber: 2, StartIndex: 4, EndIndex: 6, PhotoCount: 3}
	got := g.Indices()
	if !slices.Equal(got, []int{4, 5, 6}) {
		t.Errorf("Indices() = %v, want [4 5 6]", got)
	}
}

func TestDispositionOf(t *testing.T) {
	it := &Item{
		SoldPhotoIndices:    []int{0, 1},
		DonatedPhotoIndices: []int{2},
		HauledPhotoIndices:  []int{5},
	}
	tests := []struct {
		index int
		want  string
	}{
		{0, DispositionSold},
		{2, DispositionDonated},
		{5, DispositionHauled},
		{3, ""},
	}
	for _, tt := range tests {
		if got := it.DispositionOf(tt.index); got != tt.want {
			t.Errorf("DispositionOf(%d) = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestStageOrder(t *testing.T) {
	if StageOrder(StageIntake) >= StageOrder(StageOnlineSale) {
		t.Error("expected intake before online_sale")
	}
	if StageOrder(StageHaul) >= StageOrder(StageComplete) {
		t.Error("expected haul before complete")
	}
	if StageOrder("bogus") != -1 {
		t.Error("expected -1 for unknown stage")
	}
	if !IsTerminalStage(StageComplete) || IsTerminalStage(StageHaul) {
		t.Error("only complete is terminal")
	}
}
