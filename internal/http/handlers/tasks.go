package handlers

import (
	"net/http"

	"tryonserver/internal/domain"
	"tryonserver/internal/orchestrator"
)

type adSubmitRequest struct {
	SellerID       string `json:"sellerId"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negativePrompt"`
	TemplateID     string `json:"templateId"`
}

type trialSubmitRequest struct {
	SellerID       string `json:"sellerId"`
	ProductID      string `json:"productId"`
	PersonImageURL string `json:"personImageUrl"`
	Gender         string `json:"gender"`
	FileID         string `json:"fileId"`
}

type deleteTaskRequest struct {
	TaskID string `json:"taskId"`
}

// AdsSubmit creates an ad-image generation task.
func (a *App) AdsSubmit(w http.ResponseWriter, r *http.Request) {
	var req adSubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	sub, err := a.Orchestrator.SubmitAdImage(r.Context(), orchestrator.AdImageRequest{
		SellerID:       req.SellerID,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		TemplateID:     req.TemplateID,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, submissionJSON(sub))
}

// AdsStatus polls and reconciles one ad-image task by provider task id.
func (a *App) AdsStatus(w http.ResponseWriter, r *http.Request) {
	a.taskStatus(w, r, domain.TaskKindAdImage)
}

// AdsList returns a seller's ad-image tasks, newest first.
func (a *App) AdsList(w http.ResponseWriter, r *http.Request) {
	a.taskList(w, r, domain.TaskKindAdImage)
}

// AdsDelete removes an ad-image task and its durable asset.
func (a *App) AdsDelete(w http.ResponseWriter, r *http.Request) {
	a.taskDelete(w, r)
}

// TrialsSubmit creates a studio try-on trial task.
func (a *App) TrialsSubmit(w http.ResponseWriter, r *http.Request) {
	var req trialSubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	sub, err := a.Orchestrator.SubmitTrial(r.Context(), orchestrator.TrialRequest{
		SellerID:       req.SellerID,
		ProductID:      req.ProductID,
		PersonImageURL: req.PersonImageURL,
		Gender:         req.Gender,
		ProviderFileID: req.FileID,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, submissionJSON(sub))
}

// TrialsStatus polls and reconciles one trial task by provider task id.
func (a *App) TrialsStatus(w http.ResponseWriter, r *http.Request) {
	a.taskStatus(w, r, domain.TaskKindStudioTrial)
}

// TrialsList returns a seller's trial tasks, newest first.
func (a *App) TrialsList(w http.ResponseWriter, r *http.Request) {
	a.taskList(w, r, domain.TaskKindStudioTrial)
}

// TrialsDelete removes a trial task and its durable asset.
func (a *App) TrialsDelete(w http.ResponseWriter, r *http.Request) {
	a.taskDelete(w, r)
}

func (a *App) taskStatus(w http.ResponseWriter, r *http.Request, kind domain.TaskKind) {
	taskID := r.URL.Query().Get("taskId")
	if taskID == "" {
		a.error(w, http.StatusBadRequest, "invalid_request", "taskId query parameter is required")
		return
	}
	res, err := a.Orchestrator.PollAndReconcile(r.Context(), kind, taskID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	body := map[string]any{
		"taskId": taskID,
		"status": res.Status,
	}
	switch res.Status {
	case domain.TaskStatusSuccess:
		body["resultUrl"] = res.ResultURL
	case domain.TaskStatusFailed:
		body["error"] = res.Error
	}
	a.json(w, http.StatusOK, body)
}

func (a *App) taskList(w http.ResponseWriter, r *http.Request, kind domain.TaskKind) {
	sellerID := r.URL.Query().Get("sellerId")
	tasks, err := a.Orchestrator.ListTasks(r.Context(), kind, sellerID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	items := make([]map[string]any, 0, len(tasks))
	for i := range tasks {
		items = append(items, taskJSON(&tasks[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) taskDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteTaskRequest
	if err := decodeJSON(r, &req); err != nil || req.TaskID == "" {
		a.error(w, http.StatusBadRequest, "invalid_request", "taskId is required")
		return
	}
	rec, err := a.Orchestrator.DeleteTask(r.Context(), req.TaskID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"deleted": rec.ID})
}

func submissionJSON(sub *orchestrator.Submission) map[string]any {
	return map[string]any{
		"id":             sub.InternalID,
		"taskId":         sub.ProviderTaskID,
		"status":         domain.TaskStatusProcessing,
		"pollIntervalMs": sub.PollInterval.Milliseconds(),
	}
}

func taskJSON(t *domain.TaskRecord) map[string]any {
	item := map[string]any{
		"id":        t.ID,
		"taskId":    t.ProviderTaskID,
		"status":    t.Status,
		"createdAt": t.CreatedAt,
		"updatedAt": t.UpdatedAt,
	}
	switch t.Status {
	case domain.TaskStatusSuccess:
		item["resultUrl"] = t.DurableResultURL
	case domain.TaskStatusFailed:
		item["error"] = t.ErrorMessage
	}
	if t.Kind == domain.TaskKindStudioTrial {
		item["product"] = map[string]any{
			"id":       t.ProductID,
			"name":     t.ProductName,
			"category": t.ProductCategory,
			"imageUrl": t.ProductImageURL,
		}
	}
	return item
}
