package workflow

import (
	"context"

	"github.com/erazemk/estatedesk/internal/model"
)

// Upload is one photo file handed to Backend.UploadPhotos.
type Upload struct {
	Filename string
	Data     []byte
}

// Backend is the authoritative side of the workflow. Every call is a point of
// possible suspension; callers re-fetch the item afterwards instead of
// assuming its effects.
type Backend interface {
	FetchItem(ctx context.Context, id string) (*model.Item, error)
	UploadPhotos(ctx context.Context, id string, files []Upload) (*model.Item, error)
	RunAnalysis(ctx context.Context, id string, itemNumbers []int) ([]model.Proposal, error)
	CommitApproval(ctx context.Context, id string, items []model.ApprovedItem) error
	ReopenItem(ctx context.Context, id, reason string) error
	MarkDisposition(ctx context.Context, id string, itemNumber int, kind string, price *float64) error
	ToggleOnlineSale(ctx context.Context, jobID string) (bool, error)
}
