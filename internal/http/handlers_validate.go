package httpx

import (
	"net/http"

	"github.com/target/codegen-api/internal/domain/model"
	"github.com/target/codegen-api/internal/service"
)

// validateHandler handles POST /validate.
func validateHandler(w http.ResponseWriter, r *http.Request) {
	var req model.ValidateCodeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	WriteJSON(w, http.StatusOK, service.ValidateCode(req))
}
