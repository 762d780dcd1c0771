package workflow

import (
	"errors"
	"testing"
)

func TestToggleAllTwiceRestores(t *testing.T) {
	// A partial selection is promoted to all-selected by the first toggle, so
	// only uniform selections round-trip.
	for _, initial := range [][]int{{}, {1, 2, 3}} {
		sel := NewSelectionSet()
		sel.Sync(proposals(1, 2, 3))
		for _, n := range initial {
			sel.ToggleOne(n)
		}
		before := sel.Selected()

		sel.ToggleAll()
		sel.ToggleAll()

		after := sel.Selected()
		if len(before) != len(after) {
			t.Errorf("initial %v: expected %v after two toggles, got %v", initial, before, after)
			continue
		}
		for i := range before {
			if before[i] != after[i] {
				t.Errorf("initial %v: expected %v after two toggles, got %v", initial, before, after)
			}
		}
	}
}

func TestToggleAll(t *testing.T) {
	sel := NewSelectionSet()
	sel.Sync(proposals(1, 2))
	sel.ToggleOne(1)

	sel.ToggleAll()
	if got := sel.Selected(); len(got) != 2 {
		t.Errorf("expected all selected, got %v", got)
	}
	sel.ToggleAll()
	if got := sel.Selected(); len(got) != 0 {
		t.Errorf("expected none selected, got %v", got)
	}
	if sel.AllSelected() {
		t.Error("AllSelected should be false")
	}
}

func TestToggleOneUnknown(t *testing.T) {
	sel := NewSelectionSet()
	if err := sel.ToggleOne(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSelectionValidate(t *testing.T) {
	pending := proposals(1, 2)
	pending[1].Price = 0
	buf := NewEditBuffer()
	buf.Sync(pending)
	sel := NewSelectionSet()
	sel.Sync(pending)

	if err := sel.Validate(buf); !errors.Is(err, ErrValidation) || errors.Is(err, ErrPriceMissing) {
		t.Errorf("expected plain validation error for empty selection, got %v", err)
	}

	sel.ToggleOne(1)
	if !sel.CanApprove(buf) {
		t.Error("expected item 1 to be approvable")
	}

	sel.ToggleOne(2)
	err := sel.Validate(buf)
	var pm *PriceMissingError
	if !errors.As(err, &pm) {
		t.Fatalf("expected *PriceMissingError, got %v", err)
	}
	if len(pm.ItemNumbers) != 1 || pm.ItemNumbers[0] != 2 {
		t.Errorf("expected item 2 missing a price, got %v", pm.ItemNumbers)
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("expected price error to also be a validation error")
	}

	buf.SetField(2, FieldPrice, "35")
	if !sel.CanApprove(buf) {
		t.Error("expected selection to be approvable after entering a price")
	}
}

func TestSelectionSyncDropsApproved(t *testing.T) {
	sel := NewSelectionSet()
	sel.Sync(proposals(1, 2))
	sel.ToggleOne(1)
	sel.ToggleOne(2)

	sel.Sync(proposals(2, 3))
	got := sel.Selected()
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("expected only #2 selected, got %v", got)
	}
	if sel.IsSelected(3) {
		t.Error("new entries must default to unselected")
	}
}
