// Package orchestrator coordinates provider task submission and the poll-time
// reconciliation that drives records into their terminal state. Records are
// created only after the provider accepted a task, and every terminal
// transition goes through the store's conditional compare-and-set, so repeated
// or concurrent polls converge on one stored outcome.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tryonserver/internal/domain"
	"tryonserver/internal/infra"
	"tryonserver/internal/obs"
	"tryonserver/internal/providers/youcam"
	"tryonserver/internal/relocate"
	"tryonserver/internal/tryon"
)

// ProviderGateway is the slice of the provider client the orchestrator needs.
type ProviderGateway interface {
	UploadBytes(ctx context.Context, endpoint string, data []byte) (string, error)
	CreateTask(ctx context.Context, endpoint string, payload any) (*youcam.TaskHandle, error)
	GetTaskStatus(ctx context.Context, endpoint, taskID string) (*youcam.TaskStatus, error)
}

// Relocator re-hosts provider result assets durably.
type Relocator interface {
	Relocate(ctx context.Context, sourceURL, folder string, tags []string) (*relocate.Result, error)
	Delete(ctx context.Context, handle string)
}

// Options wires an Orchestrator. HTTPClient fetches person images for the
// direct-upload trial path; a default is installed when nil.
type Options struct {
	Tasks      domain.TaskRepository
	Products   domain.ProductRepository
	Gateway    ProviderGateway
	Relocator  Relocator
	Logger     infra.Logger
	HTTPClient *http.Client
}

// Orchestrator owns the task lifecycle state machine.
type Orchestrator struct {
	tasks      domain.TaskRepository
	products   domain.ProductRepository
	gateway    ProviderGateway
	relocator  Relocator
	logger     infra.Logger
	httpClient *http.Client
}

// NewOrchestrator validates the wiring and constructs an Orchestrator.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Tasks == nil || opts.Products == nil || opts.Gateway == nil || opts.Relocator == nil {
		return nil, errors.New("orchestrator: tasks, products, gateway and relocator are required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Orchestrator{
		tasks:      opts.Tasks,
		products:   opts.Products,
		gateway:    opts.Gateway,
		relocator:  opts.Relocator,
		logger:     opts.Logger,
		httpClient: httpClient,
	}, nil
}

// AdImageRequest are the inputs of an ad image generation task.
type AdImageRequest struct {
	SellerID       string
	Prompt         string
	NegativePrompt string
	TemplateID     string
	Steps          int
	CfgScale       int
	WidthRatio     int
	HeightRatio    int
}

// TrialRequest are the inputs of a studio try-on trial task.
type TrialRequest struct {
	SellerID       string
	ProductID      string
	PersonImageURL string
	Gender         string
	ProviderFileID string
}

// Submission is returned to the caller, who drives subsequent polling.
type Submission struct {
	InternalID     string
	ProviderTaskID string
	PollInterval   time.Duration
}

// PollResult is one observed task outcome. For terminal records it reflects
// the stored state, not this poll's own work.
type PollResult struct {
	Status    domain.TaskStatus
	ResultURL string
	Error     string
	Record    *domain.TaskRecord
}

// SubmitAdImage validates the request, creates the provider text-to-image task
// and persists the processing record. Provider first: a failed submission
// leaves nothing behind, and a record's existence proves the provider-side
// (potentially billable) job exists.
func (o *Orchestrator) SubmitAdImage(ctx context.Context, req AdImageRequest) (*Submission, error) {
	if req.SellerID == "" || req.Prompt == "" || req.TemplateID == "" {
		obs.TaskSubmissions.WithLabelValues(string(domain.TaskKindAdImage), "invalid").Inc()
		return nil, fmt.Errorf("%w: sellerId, prompt and templateId are required", domain.ErrInvalidRequest)
	}
	if req.Steps <= 0 {
		req.Steps = 10
	}
	if req.CfgScale <= 0 {
		req.CfgScale = 4
	}
	if req.WidthRatio <= 0 {
		req.WidthRatio = 3
	}
	if req.HeightRatio <= 0 {
		req.HeightRatio = 4
	}

	payload := map[string]any{
		"prompt":          req.Prompt,
		"negative_prompt": req.NegativePrompt,
		"template_id":     req.TemplateID,
		"steps":           req.Steps,
		"cfg_scale":       req.CfgScale,
		"width_ratio":     req.WidthRatio,
		"height_ratio":    req.HeightRatio,
	}
	input, _ := json.Marshal(domain.AdImageInput{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		TemplateID:     req.TemplateID,
	})
	return o.submit(ctx, tryon.TaskEndpointTextToImage, payload, &domain.TaskRecord{
		ID:      "ad_image_" + uuid.NewString(),
		OwnerID: req.SellerID,
		Kind:    domain.TaskKindAdImage,
		Input:   input,
	})
}

// SubmitTrial validates the request, resolves the product category to a
// provider mode and submits the try-on task. When the caller has no provider
// file id yet, the person image is fetched and uploaded to the provider here.
func (o *Orchestrator) SubmitTrial(ctx context.Context, req TrialRequest) (*Submission, error) {
	if req.SellerID == "" || req.ProductID == "" || req.PersonImageURL == "" {
		obs.TaskSubmissions.WithLabelValues(string(domain.TaskKindStudioTrial), "invalid").Inc()
		return nil, fmt.Errorf("%w: sellerId, productId and personImageUrl are required", domain.ErrInvalidRequest)
	}
	gender := req.Gender
	if gender != "male" {
		gender = "female"
	}

	product, err := o.products.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, req.ProductID)
		}
		return nil, err
	}

	resolved := tryon.ResolveCategory(product.Category)
	if req.ProviderFileID == "" {
		fileID, err := o.uploadPersonImage(ctx, tryon.FileEndpoint(resolved.Mode), req.PersonImageURL)
		if err != nil {
			obs.TaskSubmissions.WithLabelValues(string(domain.TaskKindStudioTrial), "rejected").Inc()
			return nil, err
		}
		req.ProviderFileID = fileID
	}
	payload := tryon.BuildTaskPayload(tryon.TaskPayloadParams{
		Mode:            resolved.Mode,
		UserFileID:      req.ProviderFileID,
		ProductImageURL: product.ImageURL,
		GarmentCategory: resolved.GarmentCategory,
		Gender:          gender,
	})
	input, _ := json.Marshal(domain.TrialInput{
		ProductID:      req.ProductID,
		PersonImageURL: req.PersonImageURL,
		Gender:         gender,
		ProviderFileID: req.ProviderFileID,
	})
	return o.submit(ctx, tryon.TaskEndpoint(resolved.Mode), payload, &domain.TaskRecord{
		ID:        "trial_" + uuid.NewString(),
		OwnerID:   req.SellerID,
		Kind:      domain.TaskKindStudioTrial,
		ProductID: req.ProductID,
		Input:     input,
	})
}

func (o *Orchestrator) submit(ctx context.Context, endpoint string, payload any, record *domain.TaskRecord) (*Submission, error) {
	handle, err := o.gateway.CreateTask(ctx, endpoint, payload)
	if err != nil {
		obs.TaskSubmissions.WithLabelValues(string(record.Kind), "rejected").Inc()
		return nil, err
	}

	record.ProviderTaskID = handle.TaskID
	record.Status = domain.TaskStatusProcessing
	if err := o.tasks.Create(ctx, record); err != nil {
		if errors.Is(err, domain.ErrDuplicateTask) {
			// A fresh provider task id collided with a stored record: either a
			// provider id reuse or a replay. Never overwrite the existing record.
			o.logger.Error().Str("provider_task_id", handle.TaskID).Msg("provider task id collision")
			return nil, fmt.Errorf("task id consistency violation: %w", err)
		}
		return nil, err
	}

	obs.TaskSubmissions.WithLabelValues(string(record.Kind), "accepted").Inc()
	o.logger.Info().
		Str("task_id", record.ID).
		Str("provider_task_id", handle.TaskID).
		Str("kind", string(record.Kind)).
		Msg("task submitted")
	return &Submission{
		InternalID:     record.ID,
		ProviderTaskID: handle.TaskID,
		PollInterval:   handle.PollInterval,
	}, nil
}

// PollAndReconcile fetches provider status for a non-terminal record and
// applies the matching terminal transition exactly once. Terminal records are
// answered from the store without contacting the provider: the provider URL
// may already be expired and the stored outcome is authoritative.
func (o *Orchestrator) PollAndReconcile(ctx context.Context, kind domain.TaskKind, providerTaskID string) (*PollResult, error) {
	task, err := o.tasks.GetByProviderTaskID(ctx, kind, providerTaskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTask, providerTaskID)
		}
		return nil, err
	}

	if task.Status.Terminal() {
		obs.Reconciliations.WithLabelValues(string(kind), "already_terminal").Inc()
		return resultFromRecord(task), nil
	}

	status, err := o.gateway.GetTaskStatus(ctx, o.statusEndpoint(task), providerTaskID)
	if err != nil {
		var apiErr *youcam.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusNotFound) {
			// The provider no longer knows the task; it will never complete.
			return o.fail(ctx, task, "task expired or not found")
		}
		obs.Reconciliations.WithLabelValues(string(kind), "transient_error").Inc()
		return nil, err
	}

	switch status.State {
	case youcam.StateRunning:
		obs.Reconciliations.WithLabelValues(string(kind), "processing").Inc()
		return resultFromRecord(task), nil

	case youcam.StateFailed:
		return o.fail(ctx, task, status.ErrorDetail)

	case youcam.StateSuccess:
		if status.ResultURL == "" {
			return o.fail(ctx, task, "no result in provider response")
		}
		return o.succeed(ctx, task, status.ResultURL)
	}

	obs.Reconciliations.WithLabelValues(string(kind), "transient_error").Inc()
	return nil, fmt.Errorf("unexpected provider state %q for task %s", status.State, providerTaskID)
}

func (o *Orchestrator) succeed(ctx context.Context, task *domain.TaskRecord, providerResultURL string) (*PollResult, error) {
	res, err := o.relocator.Relocate(ctx, providerResultURL, resultFolder(task.Kind), []string{"ai-generated", string(task.Kind), task.OwnerID})
	if err != nil {
		phase := "upload"
		if errors.Is(err, domain.ErrSourceFetchFailed) {
			phase = "fetch"
		}
		obs.RelocationFailures.WithLabelValues(phase).Inc()
		// The provider-side job succeeded but the pipeline could not finish.
		// Terminal anyway: the first poll that observes a terminal provider
		// outcome must leave a terminal record.
		return o.fail(ctx, task, "relocation failed: "+err.Error())
	}

	record, applied, err := o.tasks.TransitionToSuccess(ctx, task.Kind, task.ProviderTaskID, providerResultURL, res.DurableURL, res.Handle)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent poller committed first. Its stored result wins; this
		// poller's upload is an orphan to discard.
		o.relocator.Delete(ctx, res.Handle)
		obs.Reconciliations.WithLabelValues(string(task.Kind), "race_lost").Inc()
		return resultFromRecord(record), nil
	}

	obs.Reconciliations.WithLabelValues(string(task.Kind), "success").Inc()
	o.logger.Info().
		Str("provider_task_id", task.ProviderTaskID).
		Str("durable_url", res.DurableURL).
		Msg("task reconciled to success")
	return resultFromRecord(record), nil
}

func (o *Orchestrator) fail(ctx context.Context, task *domain.TaskRecord, message string) (*PollResult, error) {
	if message == "" {
		message = "AI processing failed"
	}
	record, applied, err := o.tasks.TransitionToFailed(ctx, task.Kind, task.ProviderTaskID, message)
	if err != nil {
		return nil, err
	}
	if !applied {
		obs.Reconciliations.WithLabelValues(string(task.Kind), "race_lost").Inc()
	} else {
		obs.Reconciliations.WithLabelValues(string(task.Kind), "failed").Inc()
		o.logger.Info().
			Str("provider_task_id", task.ProviderTaskID).
			Str("error", message).
			Msg("task reconciled to failure")
	}
	return resultFromRecord(record), nil
}

// ListTasks returns an owner's records of one kind, newest first.
func (o *Orchestrator) ListTasks(ctx context.Context, kind domain.TaskKind, ownerID string) ([]domain.TaskRecord, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: ownerId is required", domain.ErrInvalidRequest)
	}
	return o.tasks.ListByOwner(ctx, kind, ownerID)
}

// DeleteTask removes the record and, best-effort, its durable asset. Blob
// cleanup failure never blocks the deletion the caller asked for.
func (o *Orchestrator) DeleteTask(ctx context.Context, id string) (*domain.TaskRecord, error) {
	record, err := o.tasks.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.DurableResultHandle != "" {
		o.relocator.Delete(ctx, record.DurableResultHandle)
	}
	return record, nil
}

// uploadPersonImage pulls the person photo and pushes its bytes straight to
// the provider's file endpoint for the resolved mode.
func (o *Orchestrator) uploadPersonImage(ctx context.Context, fileEndpoint, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: invalid person image url %q", domain.ErrSourceFetchFailed, imageURL)
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSourceFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: person image returned status %d", domain.ErrSourceFetchFailed, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read person image: %v", domain.ErrSourceFetchFailed, err)
	}
	return o.gateway.UploadBytes(ctx, fileEndpoint, data)
}

func (o *Orchestrator) statusEndpoint(task *domain.TaskRecord) string {
	if task.Kind == domain.TaskKindAdImage {
		return tryon.TaskEndpointTextToImage
	}
	return tryon.TaskEndpoint(tryon.ResolveCategory(task.ProductCategory).Mode)
}

func resultFolder(kind domain.TaskKind) string {
	if kind == domain.TaskKindAdImage {
		return "ad-images"
	}
	return "studio/trials"
}

func resultFromRecord(task *domain.TaskRecord) *PollResult {
	result := &PollResult{Status: task.Status, Record: task}
	switch task.Status {
	case domain.TaskStatusSuccess:
		result.ResultURL = task.DurableResultURL
	case domain.TaskStatusFailed:
		result.Error = task.ErrorMessage
	}
	return result
}
