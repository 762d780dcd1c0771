package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/erazemk/estatedesk/internal/workflow"
)

// Error codes returned in the "code" field of error responses.
const (
	codeValidation     = "validation"
	codePriceMissing   = "price_missing"
	codeNotFound       = "not_found"
	codeConflict       = "conflict"
	codeAnalysis       = "analysis_failed"
	codeAnalysisBusy   = "analysis_in_progress"
	codeApproval       = "approval_failed"
	codeInternal       = "internal"
	codeUnauthorized   = "unauthorized"
	codeForbidden      = "forbidden"
	codeInvalidRequest = "invalid_request"
)

type errorResponse struct {
	Error       string `json:"error"`
	Code        string `json:"code"`
	ItemNumbers []int  `json:"item_numbers,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, code, message string) {
	jsonResponse(w, status, errorResponse{Error: message, Code: code, RequestID: w.Header().Get(requestIDHeader)})
}

// writeError maps a workflow error onto an HTTP status. Unclassified errors
// are logged and reported as internal.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var missing *workflow.PriceMissingError
	resp := errorResponse{Error: err.Error(), RequestID: RequestID(r.Context())}
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &missing):
		status, resp.Code, resp.ItemNumbers = http.StatusBadRequest, codePriceMissing, missing.ItemNumbers
	case errors.Is(err, workflow.ErrValidation):
		status, resp.Code = http.StatusBadRequest, codeValidation
	case errors.Is(err, workflow.ErrNotFound):
		status, resp.Code = http.StatusNotFound, codeNotFound
	case errors.Is(err, workflow.ErrAnalysisInFlight):
		status, resp.Code = http.StatusConflict, codeAnalysisBusy
	case errors.Is(err, workflow.ErrConflict):
		status, resp.Code = http.StatusConflict, codeConflict
	case errors.Is(err, workflow.ErrAnalysis):
		status, resp.Code = http.StatusBadGateway, codeAnalysis
	case errors.Is(err, workflow.ErrApproval):
		status, resp.Code = http.StatusInternalServerError, codeApproval
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "request_id", resp.RequestID, "error", err)
		resp.Code, resp.Error = codeInternal, "internal error"
	}
	jsonResponse(w, status, resp)
}

var validate = validator.New()

// decodeJSON decodes a JSON request body into target and validates its
// struct tags.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return workflow.Validation("", "invalid request body")
	}
	if err := validate.Struct(target); err != nil {
		return workflow.Validation("", err.Error())
	}
	return nil
}
