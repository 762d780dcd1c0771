package api

import (
	"net/http"

	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/service"
)

// JobsHandler handles job endpoints.
type JobsHandler struct {
	Service *service.Service
}

type createJobRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type advanceStageRequest struct {
	Stage string `json:"stage" validate:"required"`
}

type onlineSaleResponse struct {
	JobID            string `json:"job_id"`
	OnlineSaleActive bool   `json:"is_online_sale_active"`
}

// List handles GET /api/jobs.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Service.ListJobs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []model.Job{}
	}
	jsonResponse(w, http.StatusOK, jobs)
}

// Create handles POST /api/jobs.
func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	job, err := h.Service.CreateJob(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, job)
}

// Get handles GET /api/jobs/{id}.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.Service.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, job)
}

// ListItems handles GET /api/jobs/{id}/items.
func (h *JobsHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListItems(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// CreateItem handles POST /api/jobs/{id}/items.
func (h *JobsHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.CreateItem(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// ToggleOnlineSale handles POST /api/jobs/{id}/online-sale/toggle.
func (h *JobsHandler) ToggleOnlineSale(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	active, err := h.Service.ToggleOnlineSale(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, onlineSaleResponse{JobID: id, OnlineSaleActive: active})
}

// AdvanceStage handles PUT /api/jobs/{id}/stage.
func (h *JobsHandler) AdvanceStage(w http.ResponseWriter, r *http.Request) {
	var req advanceStageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	job, err := h.Service.AdvanceStage(r.Context(), r.PathValue("id"), req.Stage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, job)
}
