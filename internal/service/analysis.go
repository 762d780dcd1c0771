package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/erazemk/estatedesk/internal/analysis"
	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/store"
	"github.com/erazemk/estatedesk/internal/workflow"
)

// RunAnalysis analyzes the requested groups, or every unanalyzed group when
// itemNumbers is empty. Groups already analyzed are skipped; when nothing is
// left the call is a no-op that returns no proposals. A provider failure
// fails the whole batch and records nothing.
func (s *Service) RunAnalysis(ctx context.Context, id string, itemNumbers []int) ([]model.Proposal, error) {
	const op = "run analysis"
	if !s.beginAnalysis(id) {
		return nil, workflow.Wrap(workflow.ErrAnalysisInFlight, op, "item "+id+" is already being analyzed", nil)
	}
	defer s.endAnalysis(id)

	it, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	groups, err := workflow.AnalysisTargets(it, itemNumbers)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}

	if s.opts.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.AnalysisTimeout)
		defer cancel()
	}

	inputs, err := s.analysisInputs(ctx, it, groups)
	if err != nil {
		return nil, workflow.Wrap(workflow.ErrAnalysis, op, "loading photos", err)
	}
	proposals, err := analysis.AnalyzeAll(ctx, s.opts.Analyzer, inputs, s.opts.AnalysisConcurrency)
	if err != nil {
		slog.Error("analysis failed", "item", id, "groups", len(groups), "error", err)
		return nil, workflow.Wrap(workflow.ErrAnalysis, op, "", err)
	}

	merged, err := store.SaveAnalysis(context.WithoutCancel(ctx), s.db, id, groups, proposals, Actor(ctx))
	if err != nil {
		return nil, err
	}
	s.published(ctx, id)
	slog.Info("analysis recorded", "item", id, "proposals", len(merged), "actor", Actor(ctx))
	return merged, nil
}

// beginAnalysis marks id as analyzing. It reports false if a batch for id
// is already running.
func (s *Service) beginAnalysis(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analyzing[id] {
		return false
	}
	s.analyzing[id] = true
	return true
}

func (s *Service) endAnalysis(id string) {
	s.mu.Lock()
	delete(s.analyzing, id)
	s.mu.Unlock()
}

func (s *Service) analysisInputs(ctx context.Context, it *model.Item, groups []model.PhotoGroup) ([]analysis.Group, error) {
	out := make([]analysis.Group, len(groups))
	for i, g := range groups {
		in := analysis.Group{ItemNumber: g.ItemNumber, Title: g.Title}
		for _, idx := range g.Indices() {
			if idx >= len(it.Photos) {
				return nil, fmt.Errorf("group #%d references missing photo %d", g.ItemNumber, idx)
			}
			data, mime, err := s.opts.Storage.Get(ctx, it.Photos[idx].Key)
			if err != nil {
				return nil, fmt.Errorf("reading photo %d: %w", idx, err)
			}
			in.Photos = append(in.Photos, analysis.Photo{Index: idx, Data: data, MIME: mime})
		}
		out[i] = in
	}
	return out, nil
}
