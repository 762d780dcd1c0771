// Package service implements the authoritative item operations on top of the
// SQLite store, photo storage and the analysis provider.
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/estatedesk/internal/analysis"
	"github.com/erazemk/estatedesk/internal/imaging"
	"github.com/erazemk/estatedesk/internal/itemcache"
	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/storage"
	"github.com/erazemk/estatedesk/internal/store"
	"github.com/erazemk/estatedesk/internal/workflow"
)

// Options configure a Service. Zero values fall back to in-database photo
// storage, the placeholder analyzer and a disabled cache.
type Options struct {
	Storage             storage.Storage
	Analyzer            analysis.Analyzer
	Cache               *itemcache.Cache
	Policy              workflow.ConflictPolicy
	Imaging             imaging.Options
	UploadConcurrency   int
	AnalysisConcurrency int
	AnalysisTimeout     time.Duration
}

// Service is safe for concurrent use. At most one analysis batch runs per
// item at a time.
type Service struct {
	db   *sql.DB
	opts Options

	mu        sync.Mutex
	analyzing map[string]bool
}

var _ workflow.Backend = (*Service)(nil)

// New returns a service over db.
func New(db *sql.DB, opts Options) *Service {
	if opts.Storage == nil {
		opts.Storage = storage.NewDB(db)
	}
	if opts.Analyzer == nil {
		opts.Analyzer = analysis.Placeholder{}
	}
	if opts.Cache == nil {
		opts.Cache = itemcache.New(0, nil)
	}
	if opts.Policy == "" {
		opts.Policy = workflow.ConflictReject
	}
	if opts.UploadConcurrency <= 0 {
		opts.UploadConcurrency = 4
	}
	if opts.AnalysisConcurrency <= 0 {
		opts.AnalysisConcurrency = 4
	}
	return &Service{db: db, opts: opts, analyzing: make(map[string]bool)}
}

// NewSession returns a review session for itemID backed by s.
func (s *Service) NewSession(itemID string) *workflow.Session {
	return workflow.NewSession(s, itemID)
}

// Cache returns the item cache so callers can subscribe to snapshots.
func (s *Service) Cache() *itemcache.Cache {
	return s.opts.Cache
}

// Storage returns the photo storage.
func (s *Service) Storage() storage.Storage {
	return s.opts.Storage
}

type actorKey struct{}

// WithActor returns a context that attributes mutations to actor.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// Actor returns the actor stored by WithActor, or "system".
func Actor(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return "system"
}

// FetchItem returns the item, preferring a fresh cached snapshot.
func (s *Service) FetchItem(ctx context.Context, id string) (*model.Item, error) {
	if it, ok := s.opts.Cache.Get(id); ok {
		return it, nil
	}
	return s.reload(ctx, id)
}

// reload reads the item from the store and publishes it.
func (s *Service) reload(ctx context.Context, id string) (*model.Item, error) {
	it, err := store.GetItem(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		s.opts.Cache.Invalidate(id)
		return nil, workflow.Wrap(workflow.ErrNotFound, "fetch item", "item "+id+" does not exist", nil)
	}
	s.opts.Cache.Publish(it)
	return it, nil
}

// published refreshes the cache after a committed mutation. A failed read
// only drops the stale entry; the mutation itself already succeeded.
func (s *Service) published(ctx context.Context, id string) {
	if _, err := s.reload(ctx, id); err != nil {
		slog.Warn("failed to refresh item after mutation", "item", id, "error", err)
		s.opts.Cache.Invalidate(id)
	}
}

// CreateItem creates an empty draft item under jobID.
func (s *Service) CreateItem(ctx context.Context, jobID string) (*model.Item, error) {
	it, err := store.CreateItem(ctx, s.db, jobID, Actor(ctx))
	if err != nil {
		return nil, err
	}
	s.opts.Cache.Publish(it)
	slog.Info("item created", "item", it.ID, "job", jobID, "actor", Actor(ctx))
	return it, nil
}

// ListItems returns the items of a job.
func (s *Service) ListItems(ctx context.Context, jobID string) ([]model.Item, error) {
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return store.ListItems(ctx, s.db, jobID)
}

// PendingReview returns the proposals of an item awaiting approval.
func (s *Service) PendingReview(ctx context.Context, id string) ([]model.Proposal, error) {
	it, err := s.FetchItem(ctx, id)
	if err != nil {
		return nil, err
	}
	pending := workflow.PendingReview(it)
	if pending == nil {
		pending = []model.Proposal{}
	}
	return pending, nil
}

// ListEvents returns the audit trail of an item.
func (s *Service) ListEvents(ctx context.Context, id string) ([]model.Event, error) {
	if _, err := s.FetchItem(ctx, id); err != nil {
		return nil, err
	}
	return store.ListEvents(ctx, s.db, id)
}

// CommitApproval approves a batch of proposals atomically.
func (s *Service) CommitApproval(ctx context.Context, id string, items []model.ApprovedItem) error {
	approved, err := store.CommitApproval(ctx, s.db, id, items, Actor(ctx))
	if err != nil {
		if workflow.Classified(err) {
			return err
		}
		return workflow.Wrap(workflow.ErrApproval, "approve items", "", err)
	}
	s.published(ctx, id)
	slog.Info("items approved", "item", id, "count", len(approved), "actor", Actor(ctx))
	return nil
}

// ReopenItem moves an item back to review.
func (s *Service) ReopenItem(ctx context.Context, id, reason string) error {
	if err := store.ReopenItem(ctx, s.db, id, reason, Actor(ctx)); err != nil {
		return err
	}
	s.published(ctx, id)
	slog.Info("item reopened", "item", id, "actor", Actor(ctx))
	return nil
}

// MarkDisposition records a sold, donated or hauled outcome for an approved
// item number using the configured conflict policy.
func (s *Service) MarkDisposition(ctx context.Context, id string, itemNumber int, kind string, price *float64) error {
	changed, err := store.MarkDisposition(ctx, s.db, id, itemNumber, kind, price, s.opts.Policy, Actor(ctx))
	if err != nil {
		return err
	}
	s.published(ctx, id)
	slog.Info("disposition marked", "item", id, "item_number", itemNumber, "kind", kind, "photos", len(changed))
	return nil
}
