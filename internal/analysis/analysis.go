// Package analysis turns photo groups into draft listings.
package analysis

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/estatedesk/internal/model"
)

// Photo is one photo of a group as sent to a provider.
type Photo struct {
	Index int
	Data  []byte
	MIME  string
}

// Group is the input for one analysis call.
type Group struct {
	ItemNumber int
	Title      string
	Photos     []Photo
}

// Indices returns the photo indices of the group.
func (g Group) Indices() []int {
	out := make([]int, len(g.Photos))
	for i, p := range g.Photos {
		out[i] = p.Index
	}
	return out
}

// Analyzer proposes a listing for one photo group.
type Analyzer interface {
	Analyze(ctx context.Context, g Group) (model.Proposal, error)
}

// AnalyzeAll runs a over every group with at most limit calls in flight. The
// first failure cancels the rest and fails the whole batch. Proposals are
// returned in group order.
func AnalyzeAll(ctx context.Context, a Analyzer, groups []Group, limit int) ([]model.Proposal, error) {
	out := make([]model.Proposal, len(groups))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, group := range groups {
		g.Go(func() error {
			p, err := a.Analyze(ctx, group)
			if err != nil {
				return fmt.Errorf("item #%d: %w", group.ItemNumber, err)
			}
			p.ItemNumber = group.ItemNumber
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Placeholder proposes the group title with no price, for deployments
// without an AI provider. Operators fill in every field by hand.
type Placeholder struct{}

func (Placeholder) Analyze(ctx context.Context, g Group) (model.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return model.Proposal{}, err
	}
	return model.Proposal{
		ItemNumber:   g.ItemNumber,
		PhotoIndices: g.Indices(),
		Title:        g.Title,
		Tags:         []string{},
	}, nil
}
