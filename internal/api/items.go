package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/service"
	"github.com/erazemk/estatedesk/internal/workflow"
)

// ItemsHandler handles the item intake and approval endpoints.
type ItemsHandler struct {
	Service        *service.Service
	MaxUploadBytes int64
}

type analysisRequest struct {
	ItemNumbers []int `json:"item_numbers" validate:"omitempty,dive,gt=0"`
}

type analysisResponse struct {
	Proposals []model.Proposal `json:"proposals"`
}

type approvalRequest struct {
	Items []approvalItem `json:"items" validate:"required,min=1,dive"`
}

// approvalItem omits photo indices; they always come from the proposal.
type approvalItem struct {
	ItemNumber  int              `json:"item_number" validate:"gt=0"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Price       float64          `json:"price"`
	Dimensions  model.Dimensions `json:"dimensions"`
	Weight      model.Weight     `json:"weight"`
	Material    string           `json:"material"`
	Tags        []string         `json:"tags"`
}

type reopenRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type dispositionRequest struct {
	ItemNumber int      `json:"item_number" validate:"gt=0"`
	Kind       string   `json:"kind" validate:"required,oneof=sold donated hauled"`
	Price      *float64 `json:"price"`
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.FetchItem(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Pending handles GET /api/items/{id}/pending.
func (h *ItemsHandler) Pending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Service.PendingReview(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, pending)
}

// Events handles GET /api/items/{id}/events.
func (h *ItemsHandler) Events(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.ListEvents(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	jsonResponse(w, http.StatusOK, events)
}

// UploadPhotos handles POST /api/items/{id}/photos. Every file in the
// "photos" field becomes part of one new photo group.
func (h *ItemsHandler) UploadPhotos(w http.ResponseWriter, r *http.Request) {
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = 20 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, http.StatusRequestEntityTooLarge, codeValidation, "upload too large")
			return
		}
		writeError(w, r, workflow.Validation("upload photos", "invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["photos"]
	files := make([]workflow.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, r, workflow.Validation("upload photos", "could not read "+fh.Filename))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, r, workflow.Validation("upload photos", "could not read "+fh.Filename))
			return
		}
		files = append(files, workflow.Upload{Filename: fh.Filename, Data: data})
	}

	item, err := h.Service.UploadPhotos(r.Context(), r.PathValue("id"), files)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// Analyze handles POST /api/items/{id}/analysis. An empty body or empty
// item_numbers analyzes every unanalyzed group.
func (h *ItemsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	proposals, err := h.Service.RunAnalysis(r.Context(), r.PathValue("id"), req.ItemNumbers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if proposals == nil {
		proposals = []model.Proposal{}
	}
	jsonResponse(w, http.StatusOK, analysisResponse{Proposals: proposals})
}

// Approve handles POST /api/items/{id}/approvals.
func (h *ItemsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	batch := make([]model.ApprovedItem, len(req.Items))
	for i, a := range req.Items {
		batch[i] = model.ApprovedItem{
			ItemNumber:  a.ItemNumber,
			Title:       a.Title,
			Description: a.Description,
			Category:    a.Category,
			Price:       a.Price,
			Dimensions:  a.Dimensions,
			Weight:      a.Weight,
			Material:    a.Material,
			Tags:        a.Tags,
		}
	}

	id := r.PathValue("id")
	if err := h.Service.CommitApproval(r.Context(), id, batch); err != nil {
		writeError(w, r, err)
		return
	}
	h.Get(w, r)
}

// Reopen handles POST /api/items/{id}/reopen.
func (h *ItemsHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	var req reopenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Service.ReopenItem(r.Context(), r.PathValue("id"), req.Reason); err != nil {
		writeError(w, r, err)
		return
	}
	h.Get(w, r)
}

// MarkDisposition handles POST /api/items/{id}/dispositions.
func (h *ItemsHandler) MarkDisposition(w http.ResponseWriter, r *http.Request) {
	var req dispositionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Service.MarkDisposition(r.Context(), r.PathValue("id"), req.ItemNumber, req.Kind, req.Price); err != nil {
		writeError(w, r, err)
		return
	}
	h.Get(w, r)
}
