package httpx

import (
	"net/http"

	"github.com/target/codegen-api/internal/service"
)

// ProviderHandlers lists the configured LLM providers.
type ProviderHandlers struct {
	Svc *service.ProviderService
}

// List handles GET /providers.
func (h *ProviderHandlers) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Svc.List(r.Context()))
}
