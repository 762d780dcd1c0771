package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/estatedesk/internal/analysis"
	"github.com/erazemk/estatedesk/internal/db"
	"github.com/erazemk/estatedesk/internal/itemcache"
	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/storage"
	"github.com/erazemk/estatedesk/internal/store"
	"github.com/erazemk/estatedesk/internal/workflow"
)

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		for y := 0; y < 30; y++ {
			img.Set(x, y, color.RGBA{180, 90, 30, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding test JPEG: %v", err)
	}
	return buf.Bytes()
}

func uploads(t *testing.T, n int) []workflow.Upload {
	t.Helper()
	data := testJPEG(t)
	out := make([]workflow.Upload, n)
	for i := range out {
		out[i] = workflow.Upload{Filename: "photo.jpg", Data: data}
	}
	return out
}

// stubAnalyzer prices each group by item number and counts calls.
type stubAnalyzer struct {
	mu     sync.Mutex
	calls  int
	prices map[int]float64
	err    error
}

func (a *stubAnalyzer) Analyze(ctx context.Context, g analysis.Group) (model.Proposal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return model.Proposal{}, a.err
	}
	for _, p := range g.Photos {
		if len(p.Data) == 0 || p.MIME != "image/jpeg" {
			return model.Proposal{}, errors.New("photo bytes not loaded")
		}
	}
	return model.Proposal{
		ItemNumber:   g.ItemNumber,
		PhotoIndices: g.Indices(),
		Title:        "Oak Chair",
		Price:        a.prices[g.ItemNumber],
		Tags:         []string{"oak"},
	}, nil
}

// countingStorage records deletes on top of the database storage.
type countingStorage struct {
	*storage.DB
	mu      sync.Mutex
	deleted []string
}

func (s *countingStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.deleted = append(s.deleted, key)
	s.mu.Unlock()
	return s.DB.Delete(ctx, key)
}

func setup(t *testing.T, a analysis.Analyzer) (*Service, *sql.DB, string) {
	t.Helper()
	database := db.NewTestDB(t)
	svc := New(database, Options{Analyzer: a, Cache: itemcache.New(0, nil)})
	ctx := WithActor(context.Background(), "alice")
	job, err := svc.CreateJob(ctx, "Smith Estate")
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	it, err := svc.CreateItem(ctx, job.ID)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return svc, database, it.ID
}

func TestSessionWorkflowEndToEnd(t *testing.T) {
	a := &stubAnalyzer{prices: map[int]float64{2: 45}}
	svc, _, id := setup(t, a)
	ctx := WithActor(context.Background(), "alice")

	sess := svc.NewSession(id)
	if err := sess.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := sess.Upload(ctx, uploads(t, 3)); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := sess.Upload(ctx, uploads(t, 2)); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	it := sess.Item()
	if len(it.Photos) != 5 || len(it.PhotoGroups) != 2 || it.Status != model.ItemStatusNeedsReview {
		t.Fatalf("after uploads: photos=%d groups=%d status=%s", len(it.Photos), len(it.PhotoGroups), it.Status)
	}
	if g := it.PhotoGroups[1]; g.StartIndex != 3 || g.EndIndex != 4 || g.ItemNumber != 2 {
		t.Errorf("second group = %+v", g)
	}

	proposals, err := sess.Analyze(ctx)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(proposals) != 2 || len(sess.Pending()) != 2 {
		t.Fatalf("proposals=%d pending=%d, want 2/2", len(proposals), len(sess.Pending()))
	}

	sess.ToggleAll()
	err = sess.Approve(ctx)
	var missing *workflow.PriceMissingError
	if !errors.As(err, &missing) || len(missing.ItemNumbers) != 1 || missing.ItemNumbers[0] != 1 {
		t.Fatalf("Approve without price = %v, want price missing for #1", err)
	}
	if err := sess.SetField(1, workflow.FieldPrice, "30"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := sess.Approve(ctx); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	it = sess.Item()
	if it.Status != model.ItemStatusApproved || len(it.ApprovedItems) != 2 || len(sess.Pending()) != 0 {
		t.Fatalf("after approve: status=%s approved=%d pending=%d", it.Status, len(it.ApprovedItems), len(sess.Pending()))
	}

	if err := sess.Upload(ctx, uploads(t, 1)); !errors.Is(err, workflow.ErrConflict) {
		t.Errorf("upload while approved = %v, want conflict", err)
	}

	if err := sess.Reopen(ctx, "missed a chair"); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	it = sess.Item()
	if it.Status != model.ItemStatusNeedsReview || len(it.ApprovedItems) != 2 {
		t.Errorf("after reopen: status=%s approved=%d", it.Status, len(it.ApprovedItems))
	}

	if err := sess.MarkDisposition(ctx, 2, model.DispositionSold, ptr(50)); err != nil {
		t.Fatalf("MarkDisposition: %v", err)
	}
	it = sess.Item()
	if len(it.SoldPhotoIndices) != 2 || it.SoldPhotoIndices[0] != 3 || it.SoldPhotoIndices[1] != 4 {
		t.Errorf("sold = %v, want [3 4]", it.SoldPhotoIndices)
	}
	if a, _ := it.Approved(2); a.EstateSalePrice == nil || *a.EstateSalePrice != 50 {
		t.Errorf("estate sale price not recorded: %+v", a)
	}
}

func ptr(v float64) *float64 { return &v }

func TestUploadRejectsBadImageAndDiscardsStored(t *testing.T) {
	database := db.NewTestDB(t)
	cs := &countingStorage{DB: storage.NewDB(database)}
	svc := New(database, Options{Storage: cs, UploadConcurrency: 1})
	ctx := context.Background()
	job, _ := svc.CreateJob(ctx, "Estate")
	it, _ := svc.CreateItem(ctx, job.ID)

	files := append(uploads(t, 2), workflow.Upload{Filename: "notes.txt", Data: []byte("hello")})
	_, err := svc.UploadPhotos(ctx, it.ID, files)
	if !errors.Is(err, workflow.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}

	got, err := svc.FetchItem(ctx, it.ID)
	if err != nil {
		t.Fatalf("FetchItem: %v", err)
	}
	if len(got.Photos) != 0 || len(got.PhotoGroups) != 0 {
		t.Errorf("failed batch left photos=%d groups=%d", len(got.Photos), len(got.PhotoGroups))
	}
	if len(cs.deleted) != 2 {
		t.Errorf("deleted %d objects, want the 2 stored before the failure", len(cs.deleted))
	}
	for _, key := range cs.deleted {
		if _, _, err := cs.Get(ctx, key); !errors.Is(err, storage.ErrNotExist) {
			t.Errorf("object %s still stored: %v", key, err)
		}
	}
}

func TestUploadUnknownItem(t *testing.T) {
	svc := New(db.NewTestDB(t), Options{})
	_, err := svc.UploadPhotos(context.Background(), "missing", uploads(t, 1))
	if !errors.Is(err, workflow.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestRunAnalysisFailureRecordsNothing(t *testing.T) {
	a := &stubAnalyzer{err: errors.New("provider down")}
	svc, database, id := setup(t, a)
	ctx := context.Background()
	if _, err := svc.UploadPhotos(ctx, id, uploads(t, 2)); err != nil {
		t.Fatalf("UploadPhotos: %v", err)
	}

	_, err := svc.RunAnalysis(ctx, id, nil)
	if !errors.Is(err, workflow.ErrAnalysis) {
		t.Fatalf("err = %v, want analysis failure", err)
	}
	it, _ := store.GetItem(ctx, database, id)
	if len(it.AI) != 0 || len(it.AnalyzedGroups) != 0 {
		t.Errorf("failed analysis recorded ai=%d analyzed=%v", len(it.AI), it.AnalyzedGroups)
	}

	a.err = nil
	got, err := svc.RunAnalysis(ctx, id, nil)
	if err != nil || len(got) != 1 {
		t.Fatalf("retry = %v, %v", got, err)
	}
}

func TestRunAnalysisNothingToDo(t *testing.T) {
	a := &stubAnalyzer{}
	svc, _, id := setup(t, a)
	ctx := context.Background()
	if _, err := svc.UploadPhotos(ctx, id, uploads(t, 1)); err != nil {
		t.Fatalf("UploadPhotos: %v", err)
	}
	if _, err := svc.RunAnalysis(ctx, id, nil); err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}

	got, err := svc.RunAnalysis(ctx, id, []int{1})
	if err != nil || got != nil {
		t.Fatalf("reanalysis = %v, %v; want no-op", got, err)
	}
	if a.calls != 1 {
		t.Errorf("analyzer called %d times, want 1", a.calls)
	}
	if _, err := svc.RunAnalysis(ctx, id, []int{9}); !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("unknown group = %v, want not found", err)
	}
}

func TestMutationsPublishToCache(t *testing.T) {
	database := db.NewTestDB(t)
	cache := itemcache.New(time.Minute, nil)
	svc := New(database, Options{Cache: cache})
	ctx := context.Background()
	job, _ := svc.CreateJob(ctx, "Estate")
	it, _ := svc.CreateItem(ctx, job.ID)

	var events []itemcache.Event
	unsubscribe := cache.Subscribe(func(e itemcache.Event) { events = append(events, e) })
	defer unsubscribe()

	if _, err := svc.UploadPhotos(ctx, it.ID, uploads(t, 1)); err != nil {
		t.Fatalf("UploadPhotos: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("upload published nothing")
	}
	last := events[len(events)-1]
	if last.ID != it.ID || last.Item == nil || len(last.Item.Photos) != 1 {
		t.Errorf("last event = %+v", last)
	}

	cached, ok := cache.Get(it.ID)
	if !ok || len(cached.Photos) != 1 {
		t.Fatalf("cache not refreshed: %v %v", cached, ok)
	}
	got, _ := svc.FetchItem(ctx, it.ID)
	if got != cached {
		t.Error("FetchItem should serve the cached snapshot")
	}
}

func TestEventsCarryActor(t *testing.T) {
	svc, _, id := setup(t, &stubAnalyzer{})
	ctx := WithActor(context.Background(), "bob")
	if _, err := svc.UploadPhotos(ctx, id, uploads(t, 1)); err != nil {
		t.Fatalf("UploadPhotos: %v", err)
	}
	events, err := svc.ListEvents(ctx, id)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	var found bool
	for _, e := range events {
		if e.Kind == model.EventUpload && e.Actor == "bob" {
			found = true
		}
	}
	if !found {
		t.Errorf("no upload event by bob in %+v", events)
	}
	if Actor(context.Background()) != "system" {
		t.Error("default actor should be system")
	}
}

func TestToggleOnlineSaleLeavesItems(t *testing.T) {
	svc, database, id := setup(t, &stubAnalyzer{})
	ctx := context.Background()
	before, _ := store.GetItem(ctx, database, id)

	active, err := svc.ToggleOnlineSale(ctx, before.JobID)
	if err != nil || !active {
		t.Fatalf("ToggleOnlineSale = %v, %v", active, err)
	}
	after, _ := store.GetItem(ctx, database, id)
	if after.Status != before.Status || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("item changed by toggle: %+v -> %+v", before, after)
	}
	if _, err := svc.ToggleOnlineSale(ctx, "missing"); !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("unknown job = %v, want not found", err)
	}
}

func TestCreateJobRequiresName(t *testing.T) {
	svc := New(db.NewTestDB(t), Options{})
	if _, err := svc.CreateJob(context.Background(), "  "); !errors.Is(err, workflow.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

// gateAnalyzer blocks every call until release is closed.
type gateAnalyzer struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func (a *gateAnalyzer) Analyze(ctx context.Context, g analysis.Group) (model.Proposal, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	a.once.Do(func() { close(a.started) })
	select {
	case <-a.release:
	case <-ctx.Done():
		return model.Proposal{}, ctx.Err()
	}
	return model.Proposal{ItemNumber: g.ItemNumber, PhotoIndices: g.Indices(), Title: "Lamp", Tags: []string{}}, nil
}

func TestRunAnalysisOneBatchPerItem(t *testing.T) {
	a := &gateAnalyzer{started: make(chan struct{}), release: make(chan struct{})}
	svc, _, id := setup(t, a)
	ctx := context.Background()
	if _, err := svc.UploadPhotos(ctx, id, uploads(t, 2)); err != nil {
		t.Fatalf("UploadPhotos: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.RunAnalysis(ctx, id, nil)
		done <- err
	}()
	<-a.started

	if _, err := svc.RunAnalysis(ctx, id, nil); !errors.Is(err, workflow.ErrAnalysisInFlight) {
		t.Errorf("second request = %v, want analysis in flight", err)
	}
	close(a.release)
	if err := <-done; err != nil {
		t.Fatalf("first request: %v", err)
	}
	if a.calls != 1 {
		t.Errorf("provider called %d times, want 1", a.calls)
	}

	// The flag is released once the batch finishes.
	if got, err := svc.RunAnalysis(ctx, id, nil); err != nil || got != nil {
		t.Errorf("after batch = %v, %v; want no-op", got, err)
	}
}

func TestCommitApprovalStoreFailureIsApprovalError(t *testing.T) {
	svc, database, id := setup(t, &stubAnalyzer{})
	ctx := context.Background()
	if _, err := svc.UploadPhotos(ctx, id, uploads(t, 1)); err != nil {
		t.Fatalf("UploadPhotos: %v", err)
	}
	if _, err := svc.RunAnalysis(ctx, id, nil); err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}

	err := svc.CommitApproval(ctx, id, []model.ApprovedItem{{ItemNumber: 1}})
	if !errors.Is(err, workflow.ErrPriceMissing) || errors.Is(err, workflow.ErrApproval) {
		t.Errorf("unpriced approval = %v, want price missing only", err)
	}

	database.Close()
	err = svc.CommitApproval(ctx, id, []model.ApprovedItem{{ItemNumber: 1, Price: 20}})
	if !errors.Is(err, workflow.ErrApproval) {
		t.Errorf("store failure = %v, want approval error", err)
	}
}
