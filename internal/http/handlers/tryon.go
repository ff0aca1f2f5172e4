package handlers

import (
	"net/http"

	"tryonserver/internal/providers/youcam"
	"tryonserver/internal/tryon"
)

// The shopper-facing try-on flow is stateless: tasks are created and polled
// straight against the provider without a persisted record. Shoppers are
// anonymous and their sessions are ephemeral, so there is nothing to reconcile
// later.

type tryonUploadRequest struct {
	Category     string `json:"category"`
	FileName     string `json:"fileName"`
	ContentType  string `json:"contentType"`
	FileSize     int64  `json:"fileSize"`
	WithSkinTone bool   `json:"withSkinTone"`
}

type tryonProcessRequest struct {
	FileID          string `json:"fileId"`
	Category        string `json:"category"`
	ProductImageURL string `json:"productImageUrl"`
	Gender          string `json:"gender"`
}

type skinToneRequest struct {
	FileID string `json:"fileId"`
}

// TryOnUpload issues a provider upload intent for the shopper's photo on the
// category-resolved file endpoint. When requested it also issues a skin-tone
// upload intent for the same photo; that one is best-effort and its failure
// never blocks the try-on flow.
func (a *App) TryOnUpload(w http.ResponseWriter, r *http.Request) {
	var req tryonUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.FileName == "" || req.ContentType == "" || req.FileSize <= 0 {
		a.error(w, http.StatusBadRequest, "invalid_request", "fileName, contentType and fileSize are required")
		return
	}

	meta := youcam.FileMeta{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		FileSize:    req.FileSize,
	}
	resolved := tryon.ResolveCategory(req.Category)
	intent, err := a.Gateway.InitiateUpload(r.Context(), tryon.FileEndpoint(resolved.Mode), meta)
	if err != nil {
		a.domainError(w, err)
		return
	}

	body := map[string]any{
		"fileId":    intent.FileID,
		"uploadUrl": intent.UploadURL,
		"headers":   intent.Headers,
		"mode":      resolved.Mode,
	}
	if req.WithSkinTone {
		if st, err := a.Gateway.InitiateUpload(r.Context(), tryon.FileEndpointSkinTone, meta); err == nil {
			body["skinTone"] = map[string]any{
				"fileId":    st.FileID,
				"uploadUrl": st.UploadURL,
				"headers":   st.Headers,
			}
		} else {
			a.Logger.Warn().Err(err).Msg("skin tone upload intent failed")
		}
	}
	a.json(w, http.StatusOK, body)
}

// TryOnProcess creates the shopper's try-on task against the provider.
func (a *App) TryOnProcess(w http.ResponseWriter, r *http.Request) {
	var req tryonProcessRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.FileID == "" || req.ProductImageURL == "" {
		a.error(w, http.StatusBadRequest, "invalid_request", "fileId and productImageUrl are required")
		return
	}

	resolved := tryon.ResolveCategory(req.Category)
	payload := tryon.BuildTaskPayload(tryon.TaskPayloadParams{
		Mode:            resolved.Mode,
		UserFileID:      req.FileID,
		ProductImageURL: req.ProductImageURL,
		GarmentCategory: resolved.GarmentCategory,
		Gender:          req.Gender,
	})
	handle, err := a.Gateway.CreateTask(r.Context(), tryon.TaskEndpoint(resolved.Mode), payload)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"taskId":         handle.TaskID,
		"pollIntervalMs": handle.PollInterval.Milliseconds(),
	})
}

// TryOnStatus passes the provider status through unrecorded.
func (a *App) TryOnStatus(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("taskId")
	if taskID == "" {
		a.error(w, http.StatusBadRequest, "invalid_request", "taskId query parameter is required")
		return
	}
	resolved := tryon.ResolveCategory(r.URL.Query().Get("category"))

	status, err := a.Gateway.GetTaskStatus(r.Context(), tryon.TaskEndpoint(resolved.Mode), taskID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	body := map[string]any{"taskId": taskID, "status": status.State}
	switch status.State {
	case youcam.StateSuccess:
		body["resultUrl"] = status.ResultURL
	case youcam.StateFailed:
		body["error"] = status.ErrorDetail
	}
	a.json(w, http.StatusOK, body)
}

// SkinTone runs the blocking skin tone analysis loop and returns the detected
// tones with product recommendations.
func (a *App) SkinTone(w http.ResponseWriter, r *http.Request) {
	var req skinToneRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	report, err := a.Orchestrator.AnalyzeSkinTone(r.Context(), req.FileID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, report)
}
