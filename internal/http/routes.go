package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/codegen-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Generate  *service.GenerateService
	Providers *service.ProviderService
	// DefaultClientID identifies callers that send no X-Client-ID header.
	DefaultClientID string
	Logger          *slog.Logger // Optional
}

// NewRouter creates the API mux. Middleware is applied by the caller.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	if services.Generate != nil {
		registerGenerateRoutes(mux, &GenerateHandlers{
			Svc:             services.Generate,
			DefaultClientID: services.DefaultClientID,
		})
	}
	if services.Providers != nil {
		mux.HandleFunc("GET /providers", (&ProviderHandlers{Svc: services.Providers}).List)
	}
	mux.HandleFunc("POST /validate", validateHandler)
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return mux
}

func registerGenerateRoutes(mux *http.ServeMux, h *GenerateHandlers) {
	mux.HandleFunc("POST /generate", h.Generate)
	mux.HandleFunc("GET /jobs/{id}", h.GetJob)
}
