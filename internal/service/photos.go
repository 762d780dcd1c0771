package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/estatedesk/internal/imaging"
	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/storage"
	"github.com/erazemk/estatedesk/internal/store"
	"github.com/erazemk/estatedesk/internal/workflow"
)

// UploadPhotos normalizes and stores a batch of photos and appends them to
// the item as one new photo group. Either the whole batch is recorded or
// none of it; objects stored before a failure are deleted again.
func (s *Service) UploadPhotos(ctx context.Context, id string, files []workflow.Upload) (*model.Item, error) {
	const op = "upload photos"
	if len(files) == 0 {
		return nil, workflow.Validation(op, "select at least one photo")
	}
	it, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckUpload(it); err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		stored []string
	)
	photos := make([]model.Photo, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.UploadConcurrency)
	for i, f := range files {
		g.Go(func() error {
			p, err := imaging.Process(f.Data, s.opts.Imaging)
			if err != nil {
				return workflow.Validation(op, fmt.Sprintf("%s: %v", displayName(f, i), err))
			}
			key := storage.NewKey(id, p.Ext)
			if err := s.opts.Storage.Put(gctx, key, p.Data, p.MIME); err != nil {
				return fmt.Errorf("storing %s: %w", displayName(f, i), err)
			}
			mu.Lock()
			stored = append(stored, key)
			mu.Unlock()
			photos[i] = model.Photo{URL: s.opts.Storage.URL(key), Key: key}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.discard(ctx, stored)
		return nil, err
	}

	group, _, err := store.AppendPhotos(ctx, s.db, id, photos, Actor(ctx))
	if err != nil {
		s.discard(ctx, stored)
		return nil, err
	}
	slog.Info("photos uploaded", "item", id, "item_number", group.ItemNumber, "count", group.PhotoCount, "actor", Actor(ctx))

	return s.reload(ctx, id)
}

// discard deletes objects stored for a batch that was not recorded.
func (s *Service) discard(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.opts.Storage.Delete(ctx, key); err != nil {
			slog.Warn("failed to delete orphaned photo", "key", key, "error", err)
		}
	}
}

func displayName(f workflow.Upload, i int) string {
	if f.Filename != "" {
		return f.Filename
	}
	return fmt.Sprintf("photo %d", i+1)
}
