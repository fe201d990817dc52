// Package httpx provides the HTTP API for the code generation service.
package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/target/codegen-api/internal/domain/model"
	"github.com/target/codegen-api/internal/service"
)

// ClientIDHeader overrides the caller identity used for rate limiting.
const ClientIDHeader = "X-Client-ID"

// GenerateHandlers provides HTTP handlers for generation and job status.
type GenerateHandlers struct {
	Svc             *service.GenerateService
	DefaultClientID string
}

// Generate handles POST /generate. It blocks until the job finishes or the wait times out.
func (h *GenerateHandlers) Generate(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	resp, err := h.Svc.Generate(r.Context(), h.clientID(r), req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetJob handles GET /jobs/{id}.
func (h *GenerateHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return
	}

	view, err := h.Svc.GetJob(r.Context(), jobID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (h *GenerateHandlers) clientID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(ClientIDHeader)); id != "" {
		return id
	}
	return h.DefaultClientID
}
