package workflow

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/erazemk/estatedesk/internal/model"
)

// ConflictPolicy decides what happens when a disposition targets photos that
// already carry a different disposition.
type ConflictPolicy string

const (
	ConflictReject        ConflictPolicy = "reject"
	ConflictLastWriteWins ConflictPolicy = "last_write_wins"
)

// ParseConflictPolicy parses a configured policy name. Blank means reject.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(strings.TrimSpace(s)) {
	case "", ConflictReject:
		return ConflictReject, nil
	case ConflictLastWriteWins:
		return ConflictLastWriteWins, nil
	}
	return "", fmt.Errorf("unknown disposition conflict policy %q", s)
}

// ComposeApproval builds the approval batch for the selected item numbers:
// photo indices come from the AI proposal, every editable field from the
// buffered draft.
func ComposeApproval(it *model.Item, buf *EditBuffer, numbers []int) ([]model.ApprovedItem, error) {
	if len(numbers) == 0 {
		return nil, Validation("approve items", "select at least one item")
	}
	var missing []int
	out := make([]model.ApprovedItem, 0, len(numbers))
	for _, n := range numbers {
		p, ok := it.Proposal(n)
		if !ok {
			return nil, Wrap(ErrNotFound, "approve items", fmt.Sprintf("no proposal for item #%d", n), nil)
		}
		d, ok := buf.Get(n)
		if !ok {
			return nil, Wrap(ErrNotFound, "approve items", fmt.Sprintf("item #%d is not pending review", n), nil)
		}
		price, ok := ParsePrice(d.Price)
		if !ok {
			missing = append(missing, n)
			continue
		}
		a, err := approvedFromDraft(n, p.PhotoIndices, d)
		if err != nil {
			return nil, err
		}
		a.Price = price
		out = append(out, a)
	}
	if len(missing) > 0 {
		return nil, &PriceMissingError{ItemNumbers: missing}
	}
	return out, nil
}

func approvedFromDraft(n int, photos []int, d Draft) (model.ApprovedItem, error) {
	var dims [3]float64
	for i, raw := range []string{d.Dimensions.Length, d.Dimensions.Width, d.Dimensions.Height} {
		v, err := parseMeasure(raw)
		if err != nil {
			return model.ApprovedItem{}, Validation("approve items", fmt.Sprintf("item #%d: invalid dimension %q", n, raw))
		}
		dims[i] = v
	}
	weight, err := parseMeasure(d.Weight.Value)
	if err != nil {
		return model.ApprovedItem{}, Validation("approve items", fmt.Sprintf("item #%d: invalid weight %q", n, d.Weight.Value))
	}
	tags := slices.Clone(d.Tags)
	if tags == nil {
		tags = []string{}
	}
	return model.ApprovedItem{
		ItemNumber:   n,
		PhotoIndices: slices.Clone(photos),
		Title:        strings.TrimSpace(d.Title),
		Description:  d.Description,
		Category:     d.Category,
		Dimensions: model.Dimensions{
			Length: dims[0],
			Width:  dims[1],
			Height: dims[2],
			Unit:   d.Dimensions.Unit,
		},
		Weight:   model.Weight{Value: weight, Unit: d.Weight.Unit},
		Material: d.Material,
		Tags:     tags,
	}, nil
}

// parseMeasure parses an optional non-negative number. Blank is zero.
func parseMeasure(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %v", v)
	}
	return v, nil
}

// CheckApproval validates an approval batch against the authoritative item.
// Missing photo indices are filled from the proposal.
func CheckApproval(it *model.Item, items []model.ApprovedItem) error {
	if len(items) == 0 {
		return Validation("approve items", "select at least one item")
	}
	seen := make(map[int]bool, len(items))
	var missing []int
	for i := range items {
		a := &items[i]
		if seen[a.ItemNumber] {
			return Validation("approve items", fmt.Sprintf("item #%d listed twice", a.ItemNumber))
		}
		seen[a.ItemNumber] = true

		p, ok := it.Proposal(a.ItemNumber)
		if !ok {
			return Wrap(ErrNotFound, "approve items", fmt.Sprintf("no proposal for item #%d", a.ItemNumber), nil)
		}
		if _, done := it.Approved(a.ItemNumber); done {
			return Wrap(ErrConflict, "approve items", fmt.Sprintf("item #%d is already approved", a.ItemNumber), nil)
		}
		if a.Price <= 0 {
			missing = append(missing, a.ItemNumber)
		}
		if len(a.PhotoIndices) == 0 {
			a.PhotoIndices = slices.Clone(p.PhotoIndices)
		}
		for _, idx := range a.PhotoIndices {
			if idx < 0 || idx >= len(it.Photos) {
				return Validation("approve items", fmt.Sprintf("item #%d references photo %d out of range", a.ItemNumber, idx))
			}
		}
		if strings.TrimSpace(a.Title) == "" {
			a.Title = p.Title
		}
		if a.Tags == nil {
			a.Tags = []string{}
		}
		a.EstateSalePrice = nil
	}
	if len(missing) > 0 {
		return &PriceMissingError{ItemNumbers: missing}
	}
	return nil
}

// TransitionOnApprove checks the batch and, only if all of it is valid,
// appends it to the approved items and marks the item approved.
func TransitionOnApprove(it *model.Item, items []model.ApprovedItem) error {
	if err := CheckApproval(it, items); err != nil {
		return err
	}
	it.ApprovedItems = append(it.ApprovedItems, items...)
	it.ReopenReason = ""
	it.Status = model.ItemStatusApproved
	return nil
}

// CheckReopen validates a reopen reason and returns it trimmed.
func CheckReopen(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", Validation("reopen item", "a reason is required")
	}
	return reason, nil
}

// Reopen moves the item back to needs_review. Nothing else changes.
func Reopen(it *model.Item, reason string) error {
	reason, err := CheckReopen(reason)
	if err != nil {
		return err
	}
	if len(it.Photos) == 0 {
		return Wrap(ErrConflict, "reopen item", "item has no photos yet", nil)
	}
	it.Status = model.ItemStatusNeedsReview
	it.ReopenReason = reason
	return nil
}

// CheckUpload reports whether photos may be added in the item's current state.
func CheckUpload(it *model.Item) error {
	if it.Status == model.ItemStatusApproved {
		return Wrap(ErrConflict, "upload photos", "item is approved; reopen to add photos", nil)
	}
	return nil
}

// DeriveStatus computes the status implied by the item's data.
func DeriveStatus(it *model.Item) string {
	switch {
	case len(it.Photos) == 0:
		return model.ItemStatusDraft
	case it.ReopenReason != "":
		return model.ItemStatusNeedsReview
	case len(it.ApprovedItems) > 0:
		return model.ItemStatusApproved
	}
	return model.ItemStatusNeedsReview
}

// ApplyDisposition records the real-world outcome of an approved item on
// every photo it covers. price is required for sold and rejected otherwise.
// It returns the photo indices whose disposition changed.
func ApplyDisposition(it *model.Item, itemNumber int, kind string, price *float64, policy ConflictPolicy) ([]int, error) {
	const op = "mark disposition"
	if !model.ValidDispositionKind(kind) {
		return nil, Validation(op, fmt.Sprintf("unknown disposition %q", kind))
	}
	if kind == model.DispositionSold {
		if price == nil || *price <= 0 {
			return nil, Validation(op, "a positive sale price is required")
		}
	} else if price != nil {
		return nil, Validation(op, "price only applies to sold items")
	}

	pos := slices.IndexFunc(it.ApprovedItems, func(a model.ApprovedItem) bool { return a.ItemNumber == itemNumber })
	if pos < 0 {
		if _, ok := Group(it, itemNumber); ok {
			return nil, Wrap(ErrConflict, op, fmt.Sprintf("item #%d is not approved", itemNumber), nil)
		}
		return nil, Wrap(ErrNotFound, op, fmt.Sprintf("no item #%d", itemNumber), nil)
	}
	approved := &it.ApprovedItems[pos]

	var changed, displaced []int
	for _, idx := range approved.PhotoIndices {
		cur := it.DispositionOf(idx)
		switch {
		case cur == kind:
		case cur == "":
			changed = append(changed, idx)
		case policy == ConflictLastWriteWins:
			changed = append(changed, idx)
			displaced = append(displaced, idx)
		default:
			return nil, Wrap(ErrConflict, op, fmt.Sprintf("photo %d is already %s", idx, cur), nil)
		}
	}

	if len(displaced) > 0 {
		movedFromSold := false
		for _, idx := range displaced {
			if slices.Contains(it.SoldPhotoIndices, idx) {
				movedFromSold = true
			}
		}
		it.SoldPhotoIndices = without(it.SoldPhotoIndices, displaced)
		it.DonatedPhotoIndices = without(it.DonatedPhotoIndices, displaced)
		it.HauledPhotoIndices = without(it.HauledPhotoIndices, displaced)
		if movedFromSold {
			clearSalePrices(it, displaced)
		}
	}

	switch kind {
	case model.DispositionSold:
		it.SoldPhotoIndices = union(it.SoldPhotoIndices, changed)
		p := *price
		approved.EstateSalePrice = &p
	case model.DispositionDonated:
		it.DonatedPhotoIndices = union(it.DonatedPhotoIndices, changed)
	case model.DispositionHauled:
		it.HauledPhotoIndices = union(it.HauledPhotoIndices, changed)
	}
	return changed, nil
}

// clearSalePrices drops the sale price of approved items that lost a sold photo.
func clearSalePrices(it *model.Item, indices []int) {
	for i := range it.ApprovedItems {
		a := &it.ApprovedItems[i]
		if a.EstateSalePrice == nil {
			continue
		}
		for _, idx := range a.PhotoIndices {
			if slices.Contains(indices, idx) {
				a.EstateSalePrice = nil
				break
			}
		}
	}
}

// CheckDispositions verifies that no photo index carries two dispositions.
func CheckDispositions(it *model.Item) error {
	seen := make(map[int]string)
	sets := []struct {
		kind    string
		indices []int
	}{
		{model.DispositionSold, it.SoldPhotoIndices},
		{model.DispositionDonated, it.DonatedPhotoIndices},
		{model.DispositionHauled, it.HauledPhotoIndices},
	}
	for _, s := range sets {
		for _, idx := range s.indices {
			if prev, ok := seen[idx]; ok && prev != s.kind {
				return fmt.Errorf("photo %d is both %s and %s", idx, prev, s.kind)
			}
			seen[idx] = s.kind
		}
	}
	return nil
}

func union(set, add []int) []int {
	out := slices.Clone(set)
	for _, v := range add {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}

func without(set, drop []int) []int {
	return slices.DeleteFunc(slices.Clone(set), func(v int) bool { return slices.Contains(drop, v) })
}
