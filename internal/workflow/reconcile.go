package workflow

import (
	"fmt"
	"slices"
	"strings"

	"github.com/erazemk/estatedesk/internal/model"
)

// PendingReview returns the AI proposals whose item number has not been
// approved. Already-approved numbers never reappear here.
func PendingReview(it *model.Item) []model.Proposal {
	approved := make(map[int]bool, len(it.ApprovedItems))
	for _, a := range it.ApprovedItems {
		approved[a.ItemNumber] = true
	}
	var out []model.Proposal
	for _, p := range it.AI {
		if !approved[p.ItemNumber] {
			out = append(out, p)
		}
	}
	return out
}

// AnalysisTargets resolves which groups an analysis request should cover.
// An empty request means every unanalyzed group. Groups that were already
// analyzed are dropped so each group is analyzed at most once; unknown item
// numbers are an error. An empty result means there is nothing to do.
func AnalysisTargets(it *model.Item, requested []int) ([]model.PhotoGroup, error) {
	if len(requested) == 0 {
		return UnanalyzedGroups(it), nil
	}
	var out []model.PhotoGroup
	for _, n := range requested {
		g, ok := Group(it, n)
		if !ok {
			return nil, Wrap(ErrNotFound, "run analysis", fmt.Sprintf("no photo group #%d", n), nil)
		}
		if it.IsAnalyzed(n) || slices.ContainsFunc(out, func(o model.PhotoGroup) bool { return o.ItemNumber == n }) {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

// MergeAnalysis checks a provider result against the groups that were sent
// and, only if it is complete, appends the proposals to the item and marks
// their groups analyzed. A partial, duplicated or foreign result is an
// ErrAnalysis failure and leaves the item untouched.
func MergeAnalysis(it *model.Item, groups []model.PhotoGroup, proposals []model.Proposal) ([]model.Proposal, error) {
	byNumber := make(map[int]model.Proposal, len(proposals))
	for _, p := range proposals {
		if _, dup := byNumber[p.ItemNumber]; dup {
			return nil, Wrap(ErrAnalysis, "merge analysis", fmt.Sprintf("duplicate proposal for item #%d", p.ItemNumber), nil)
		}
		byNumber[p.ItemNumber] = p
	}
	if len(byNumber) != len(groups) {
		return nil, Wrap(ErrAnalysis, "merge analysis", fmt.Sprintf("expected %d proposals, got %d", len(groups), len(byNumber)), nil)
	}

	merged := make([]model.Proposal, 0, len(groups))
	for _, g := range groups {
		if it.IsAnalyzed(g.ItemNumber) {
			return nil, Wrap(ErrAnalysis, "merge analysis", fmt.Sprintf("item #%d already analyzed", g.ItemNumber), nil)
		}
		p, ok := byNumber[g.ItemNumber]
		if !ok {
			return nil, Wrap(ErrAnalysis, "merge analysis", fmt.Sprintf("missing proposal for item #%d", g.ItemNumber), nil)
		}
		normalized, err := normalizeProposal(it, g, p)
		if err != nil {
			return nil, err
		}
		merged = append(merged, normalized)
	}

	for _, p := range merged {
		it.AI = append(it.AI, p)
		it.AnalyzedGroups = append(it.AnalyzedGroups, p.ItemNumber)
	}
	return merged, nil
}

func normalizeProposal(it *model.Item, g model.PhotoGroup, p model.Proposal) (model.Proposal, error) {
	if len(p.PhotoIndices) == 0 {
		p.PhotoIndices = g.Indices()
	}
	for _, idx := range p.PhotoIndices {
		if idx < 0 || idx >= len(it.Photos) {
			return p, Wrap(ErrAnalysis, "merge analysis", fmt.Sprintf("item #%d references photo %d out of range", g.ItemNumber, idx), nil)
		}
		if idx < g.StartIndex || idx > g.EndIndex {
			return p, Wrap(ErrAnalysis, "merge analysis", fmt.Sprintf("item #%d claims photo %d outside its group", g.ItemNumber, idx), nil)
		}
	}
	p.PhotoIndices = slices.Clone(p.PhotoIndices)
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		p.Title = g.Title
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Price < 0 {
		p.Price = 0
	}
	return p, nil
}
