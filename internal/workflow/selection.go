package workflow

import (
	"slices"

	"github.com/erazemk/estatedesk/internal/model"
)

// SelectionSet tracks which pending-review item numbers are marked for
// approval. Entries default to unselected.
type SelectionSet struct {
	selected map[int]bool
}

// NewSelectionSet returns an empty selection.
func NewSelectionSet() *SelectionSet {
	return &SelectionSet{selected: make(map[int]bool)}
}

// Sync adds an unselected entry for every new pending item and drops entries
// that are no longer pending. Existing flags are kept.
func (s *SelectionSet) Sync(pending []model.Proposal) {
	keep := make(map[int]bool, len(pending))
	for _, p := range pending {
		keep[p.ItemNumber] = true
		if _, ok := s.selected[p.ItemNumber]; !ok {
			s.selected[p.ItemNumber] = false
		}
	}
	for n := range s.selected {
		if !keep[n] {
			delete(s.selected, n)
		}
	}
}

// Reset drops every entry.
func (s *SelectionSet) Reset() {
	clear(s.selected)
}

// ToggleOne flips the flag for itemNumber.
func (s *SelectionSet) ToggleOne(itemNumber int) error {
	v, ok := s.selected[itemNumber]
	if !ok {
		return Wrap(ErrNotFound, "toggle selection", "item is not pending review", nil)
	}
	s.selected[itemNumber] = !v
	return nil
}

// ToggleAll deselects everything when every entry is selected, otherwise
// selects everything.
func (s *SelectionSet) ToggleAll() {
	target := !s.AllSelected()
	for n := range s.selected {
		s.selected[n] = target
	}
}

// AllSelected reports whether there is at least one entry and all are selected.
func (s *SelectionSet) AllSelected() bool {
	if len(s.selected) == 0 {
		return false
	}
	for _, v := range s.selected {
		if !v {
			return false
		}
	}
	return true
}

// IsSelected reports the flag for itemNumber.
func (s *SelectionSet) IsSelected(itemNumber int) bool {
	return s.selected[itemNumber]
}

// Selected returns the selected item numbers in ascending order.
func (s *SelectionSet) Selected() []int {
	var out []int
	for n, v := range s.selected {
		if v {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

// Validate checks the commit precondition: at least one entry is selected and
// every selected entry has a positive buffered price. A missing price is
// reported as *PriceMissingError.
func (s *SelectionSet) Validate(buf *EditBuffer) error {
	sel := s.Selected()
	if len(sel) == 0 {
		return Validation("approve items", "select at least one item")
	}
	var missing []int
	for _, n := range sel {
		d, ok := buf.Get(n)
		if !ok {
			missing = append(missing, n)
			continue
		}
		if _, ok := ParsePrice(d.Price); !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &PriceMissingError{ItemNumbers: missing}
	}
	return nil
}

// CanApprove reports whether Validate would succeed.
func (s *SelectionSet) CanApprove(buf *EditBuffer) bool {
	return s.Validate(buf) == nil
}
