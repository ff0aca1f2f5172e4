package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"tryonserver/internal/domain"
	"tryonserver/internal/infra"
	"tryonserver/internal/orchestrator"
	"tryonserver/internal/providers/youcam"
	"tryonserver/internal/storage"
	"tryonserver/internal/vision"
)

// App bundles the handler dependencies.
type App struct {
	Config       *infra.Config
	Logger       infra.Logger
	Orchestrator *orchestrator.Orchestrator
	Gateway      *youcam.Client
	Products     domain.ProductRepository
	Blobs        storage.BlobStore
	Vision       *vision.Analyzer
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{"error": code, "message": message})
}

// domainError maps sentinel errors onto HTTP statuses. Anything unmatched is a
// 500 with the detail kept out of the response body.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		a.error(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrUnknownTask):
		a.error(w, http.StatusNotFound, "unknown_task", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrProviderRejected):
		a.error(w, http.StatusBadGateway, "provider_rejected", err.Error())
	case errors.Is(err, domain.ErrProviderUnavailable):
		a.error(w, http.StatusBadGateway, "provider_unavailable", "AI provider unreachable")
	default:
		a.Logger.Error().Err(err).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidRequest
	}
	return nil
}
