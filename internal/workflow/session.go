package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/erazemk/estatedesk/internal/model"
)

// Session is the operator-side engine for one item. It keeps the last
// authoritative snapshot plus the local edit buffer and selection, and routes
// every mutation through a Backend followed by a re-fetch.
//
// The mutex guards local state only and is never held across a backend call.
type Session struct {
	backend Backend
	itemID  string

	mu        sync.Mutex
	item      *model.Item
	buffer    *EditBuffer
	selection *SelectionSet
	analyzing bool
	fetchSeq  uint64
	applied   uint64
}

// NewSession returns a session for itemID. Call Load before using it.
func NewSession(backend Backend, itemID string) *Session {
	return &Session{
		backend:   backend,
		itemID:    itemID,
		buffer:    NewEditBuffer(),
		selection: NewSelectionSet(),
	}
}

// Load fetches the item and seeds the buffer and selection from scratch,
// discarding any local edits.
func (s *Session) Load(ctx context.Context) error {
	return s.fetch(ctx, true)
}

// Refresh re-fetches the item and resyncs local state, keeping edits and
// selection flags for items that are still pending.
func (s *Session) Refresh(ctx context.Context) error {
	return s.fetch(ctx, false)
}

func (s *Session) fetch(ctx context.Context, reset bool) error {
	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	it, err := s.backend.FetchItem(ctx, s.itemID)
	if err != nil {
		return err
	}
	if it == nil {
		return Wrap(ErrNotFound, "fetch item", "item "+s.itemID+" does not exist", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A slower fetch started earlier must not overwrite a newer snapshot.
	if seq < s.applied {
		return nil
	}
	s.applied = seq
	s.item = it
	if reset {
		s.buffer.Reset()
		s.selection.Reset()
	}
	pending := PendingReview(it)
	s.buffer.Sync(pending)
	s.selection.Sync(pending)
	return nil
}

func (s *Session) snapshot() (*model.Item, error) {
	if s.item == nil {
		return nil, Wrap(ErrNotFound, "", "session not loaded", nil)
	}
	return s.item, nil
}

// Item returns the last fetched snapshot. Callers must not modify it.
func (s *Session) Item() *model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.item
}

// Pending returns the proposals awaiting review.
func (s *Session) Pending() []model.Proposal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.item == nil {
		return nil
	}
	return PendingReview(s.item)
}

// Unanalyzed returns the groups that still need analysis.
func (s *Session) Unanalyzed() []model.PhotoGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.item == nil {
		return nil
	}
	return UnanalyzedGroups(s.item)
}

// Analyzing reports whether an analysis call is in flight.
func (s *Session) Analyzing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzing
}

// Draft returns the buffered edits for itemNumber.
func (s *Session) Draft(itemNumber int) (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Get(itemNumber)
}

func (s *Session) SetField(itemNumber int, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.SetField(itemNumber, field, value)
}

func (s *Session) SetDimension(itemNumber int, axis, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.SetDimension(itemNumber, axis, value)
}

func (s *Session) SetWeight(itemNumber int, part, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.SetWeight(itemNumber, part, value)
}

func (s *Session) SetTags(itemNumber int, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.SetTags(itemNumber, tags)
}

func (s *Session) ToggleOne(itemNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.ToggleOne(itemNumber)
}

func (s *Session) ToggleAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.ToggleAll()
}

func (s *Session) Selected() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Selected()
}

func (s *Session) IsSelected(itemNumber int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.IsSelected(itemNumber)
}

// CanApprove reports whether the current selection may be committed.
func (s *Session) CanApprove() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.CanApprove(s.buffer)
}

// Upload sends a batch of photos and refreshes.
func (s *Session) Upload(ctx context.Context, files []Upload) error {
	if len(files) == 0 {
		return Validation("upload photos", "select at least one photo")
	}
	s.mu.Lock()
	it, err := s.snapshot()
	if err == nil {
		err = CheckUpload(it)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if _, err := s.backend.UploadPhotos(ctx, s.itemID, files); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Analyze requests analysis of every unanalyzed group. It is a no-op when
// there is nothing to analyze and fails with ErrAnalysisInFlight while a
// previous call is still running. Local state only changes through the
// refresh that follows a successful call.
func (s *Session) Analyze(ctx context.Context) ([]model.Proposal, error) {
	s.mu.Lock()
	it, err := s.snapshot()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.analyzing {
		s.mu.Unlock()
		return nil, Wrap(ErrAnalysisInFlight, "run analysis", "", nil)
	}
	groups := UnanalyzedGroups(it)
	if len(groups) == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	s.analyzing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.analyzing = false
		s.mu.Unlock()
	}()

	numbers := make([]int, len(groups))
	for i, g := range groups {
		numbers[i] = g.ItemNumber
	}
	proposals, err := s.backend.RunAnalysis(ctx, s.itemID, numbers)
	if err != nil {
		if errors.Is(err, ErrAnalysis) {
			return nil, err
		}
		return nil, Wrap(ErrAnalysis, "run analysis", "", err)
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return proposals, nil
}

// Approve commits the selected items with their buffered edits. A selection
// that fails validation is rejected before any backend call. On failure the
// buffer and selection are left exactly as they were.
func (s *Session) Approve(ctx context.Context) error {
	s.mu.Lock()
	it, err := s.snapshot()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.selection.Validate(s.buffer); err != nil {
		s.mu.Unlock()
		return err
	}
	batch, err := ComposeApproval(it, s.buffer, s.selection.Selected())
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := s.backend.CommitApproval(ctx, s.itemID, batch); err != nil {
		if errors.Is(err, ErrApproval) {
			return err
		}
		return Wrap(ErrApproval, "approve items", "", err)
	}
	return s.Refresh(ctx)
}

// Reopen sends the item back to review with reason.
func (s *Session) Reopen(ctx context.Context, reason string) error {
	reason, err := CheckReopen(reason)
	if err != nil {
		return err
	}
	if err := s.backend.ReopenItem(ctx, s.itemID, reason); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// MarkDisposition records a sold, donated or hauled outcome for an approved
// item number.
func (s *Session) MarkDisposition(ctx context.Context, itemNumber int, kind string, price *float64) error {
	if !model.ValidDispositionKind(kind) {
		return Validation("mark disposition", "unknown disposition "+kind)
	}
	if kind == model.DispositionSold && (price == nil || *price <= 0) {
		return Validation("mark disposition", "a positive sale price is required")
	}
	if err := s.backend.MarkDisposition(ctx, s.itemID, itemNumber, kind, price); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// ToggleOnlineSale flips the online-sale gate of the item's job.
func (s *Session) ToggleOnlineSale(ctx context.Context) (bool, error) {
	s.mu.Lock()
	it, err := s.snapshot()
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	return s.backend.ToggleOnlineSale(ctx, it.JobID)
}
