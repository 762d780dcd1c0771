package workflow

import (
	"fmt"
	"slices"

	"github.com/erazemk/estatedesk/internal/model"
)

// GroupTitle is the placeholder title for a freshly uploaded group.
func GroupTitle(itemNumber int) string {
	return fmt.Sprintf("Item %d", itemNumber)
}

// nextItemNumber returns the first item number not yet used by the item.
func nextItemNumber(it *model.Item) int {
	next := max(it.NextItemNumber, 1)
	for _, g := range it.PhotoGroups {
		next = max(next, g.ItemNumber+1)
	}
	for _, p := range it.AI {
		next = max(next, p.ItemNumber+1)
	}
	for _, a := range it.ApprovedItems {
		next = max(next, a.ItemNumber+1)
	}
	return next
}

// ApplyUpload appends an upload batch to the item's photo sequence and creates
// exactly one group spanning it. Existing photos and groups are not touched.
// The returned photos carry their assigned indices.
func ApplyUpload(it *model.Item, batch []model.Photo) (model.PhotoGroup, []model.Photo, error) {
	if len(batch) == 0 {
		return model.PhotoGroup{}, nil, Validation("upload photos", "select at least one photo")
	}

	start := len(it.Photos)
	added := make([]model.Photo, len(batch))
	for i, p := range batch {
		p.Index = start + i
		added[i] = p
	}

	number := nextItemNumber(it)
	group := model.PhotoGroup{
		ItemNumber: number,
		StartIndex: start,
		EndIndex:   start + len(batch) - 1,
		Title:      GroupTitle(number),
		PhotoCount: len(batch),
	}

	it.Photos = append(it.Photos, added...)
	it.PhotoGroups = append(it.PhotoGroups, group)
	it.NextItemNumber = number + 1
	return group, added, nil
}

// UnanalyzedGroups returns, in order, the groups with no completed analysis.
func UnanalyzedGroups(it *model.Item) []model.PhotoGroup {
	var out []model.PhotoGroup
	for _, g := range it.PhotoGroups {
		if !it.IsAnalyzed(g.ItemNumber) {
			out = append(out, g)
		}
	}
	return out
}

// Group returns the photo group with itemNumber.
func Group(it *model.Item, itemNumber int) (model.PhotoGroup, bool) {
	for _, g := range it.PhotoGroups {
		if g.ItemNumber == itemNumber {
			return g, true
		}
	}
	return model.PhotoGroup{}, false
}

// CheckPartition verifies that the groups cover [0, len(photos)) with no gaps
// or overlaps and that item numbers are unique.
func CheckPartition(it *model.Item) error {
	groups := slices.Clone(it.PhotoGroups)
	slices.SortFunc(groups, func(a, b model.PhotoGroup) int { return a.StartIndex - b.StartIndex })

	seen := make(map[int]bool, len(groups))
	next := 0
	for _, g := range groups {
		if seen[g.ItemNumber] {
			return fmt.Errorf("item number %d used by more than one group", g.ItemNumber)
		}
		seen[g.ItemNumber] = true
		if g.StartIndex != next {
			return fmt.Errorf("group %d starts at %d, expected %d", g.ItemNumber, g.StartIndex, next)
		}
		if g.EndIndex < g.StartIndex || g.PhotoCount != g.EndIndex-g.StartIndex+1 {
			return fmt.Errorf("group %d has inconsistent range %d..%d (count %d)", g.ItemNumber, g.StartIndex, g.EndIndex, g.PhotoCount)
		}
		next = g.EndIndex + 1
	}
	if next != len(it.Photos) {
		return fmt.Errorf("groups cover %d photos, item has %d", next, len(it.Photos))
	}
	return nil
}
