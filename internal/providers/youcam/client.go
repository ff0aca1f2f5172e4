// Package youcam is a thin gateway to the YouCam S2S v2.0 API. It performs one
// outbound call per operation: no retries, no caching, no persistence. Callers
// own retry policy and state.
package youcam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tryonserver/internal/domain"
	"tryonserver/internal/infra"
)

// ErrMissingAPIKey indicates the client was configured without credentials.
var ErrMissingAPIKey = errors.New("youcam: api key is required")

const defaultBaseURL = "https://yce-api-01.makeupar.com"

// DefaultPollInterval is used when the provider omits polling_interval.
const DefaultPollInterval = 2 * time.Second

// Options configures the YouCam client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs authenticated HTTP calls to the YouCam API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// APIError is a non-2xx provider response. It unwraps to
// domain.ErrProviderRejected so callers can classify without string checks.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("youcam: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return domain.ErrProviderRejected
}

// FileMeta describes the file a client intends to upload.
type FileMeta struct {
	FileName    string
	ContentType string
	FileSize    int64
}

// UploadIntent carries signed upload credentials returned by the provider. The
// caller pushes bytes directly to UploadURL with the given headers.
type UploadIntent struct {
	FileID    string
	UploadURL string
	Headers   map[string]string
}

// TaskHandle identifies a created provider task.
type TaskHandle struct {
	TaskID       string
	PollInterval time.Duration
}

// TaskState is the normalized provider task state.
type TaskState string

const (
	StateRunning TaskState = "running"
	StateSuccess TaskState = "success"
	StateFailed  TaskState = "failed"
)

// TaskStatus is one live observation of a provider task. RawResults holds the
// unparsed results object for task families whose result is not a URL.
type TaskStatus struct {
	State       TaskState
	ResultURL   string
	ErrorDetail string
	RawResults  json.RawMessage
}

type fileIntentRequest struct {
	Files []fileIntentEntry `json:"files"`
}

type fileIntentEntry struct {
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type fileIntentData struct {
	Files []struct {
		FileID   string `json:"file_id"`
		Requests []struct {
			URL     string            `json:"url"`
			Headers map[string]string `json:"headers"`
		} `json:"requests"`
	} `json:"files"`
}

type taskCreateData struct {
	TaskID          string `json:"task_id"`
	PollingInterval int    `json:"polling_interval"`
}

type taskStatusData struct {
	TaskStatus      string          `json:"task_status"`
	ErrorMessage    string          `json:"error_message"`
	PollingInterval int             `json:"polling_interval"`
	Results         json.RawMessage `json:"results"`
}

// InitiateUpload requests signed upload credentials on the given file endpoint.
func (c *Client) InitiateUpload(ctx context.Context, endpoint string, meta FileMeta) (*UploadIntent, error) {
	payload := fileIntentRequest{Files: []fileIntentEntry{{
		ContentType: meta.ContentType,
		FileName:    meta.FileName,
		FileSize:    meta.FileSize,
	}}}
	env, err := c.postJSON(ctx, endpoint, payload)
	if err != nil {
		return nil, err
	}
	var data fileIntentData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("youcam: decode upload intent: %w", err)
	}
	if len(data.Files) == 0 || data.Files[0].FileID == "" || len(data.Files[0].Requests) == 0 {
		return nil, errors.New("youcam: upload intent missing file id or upload url")
	}
	file := data.Files[0]
	return &UploadIntent{
		FileID:    file.FileID,
		UploadURL: file.Requests[0].URL,
		Headers:   file.Requests[0].Headers,
	}, nil
}

// UploadBytes pushes raw bytes to a direct-upload file endpoint and returns
// the provider file id.
func (c *Client) UploadBytes(ctx context.Context, endpoint string, data []byte) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("youcam: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	env, err := c.do(req)
	if err != nil {
		return "", err
	}
	// Some endpoints nest file_id under data, some return it at top level.
	var nested struct {
		FileID string `json:"file_id"`
	}
	if len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, &nested)
	}
	if nested.FileID == "" {
		_ = json.Unmarshal(env.raw, &nested)
	}
	if nested.FileID == "" {
		return "", errors.New("youcam: upload response missing file id")
	}
	return nested.FileID, nil
}

// CreateTask submits a task on the given task endpoint. A 2xx response without
// a task id is a provider contract violation surfaced as ErrMissingTaskID.
func (c *Client) CreateTask(ctx context.Context, endpoint string, payload any) (*TaskHandle, error) {
	env, err := c.postJSON(ctx, endpoint, payload)
	if err != nil {
		return nil, err
	}
	var data taskCreateData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("youcam: decode task response: %w", err)
		}
	}
	if data.TaskID == "" {
		return nil, domain.ErrMissingTaskID
	}
	interval := DefaultPollInterval
	if data.PollingInterval > 0 {
		interval = time.Duration(data.PollingInterval) * time.Millisecond
	}
	c.logger.Debug().Str("endpoint", endpoint).Str("task_id", data.TaskID).Msg("youcam: task created")
	return &TaskHandle{TaskID: data.TaskID, PollInterval: interval}, nil
}

// GetTaskStatus fetches current task state. Every call hits the provider live;
// the state changes out-of-band so caching would serve stale terminal results.
func (c *Client) GetTaskStatus(ctx context.Context, endpoint, taskID string) (*TaskStatus, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"/"+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("youcam: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Cache-Control", "no-store")

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var data taskStatusData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("youcam: decode status response: %w", err)
		}
	}

	status := &TaskStatus{RawResults: data.Results}
	switch {
	case data.TaskStatus == "failed" || data.ErrorMessage != "":
		status.State = StateFailed
		status.ErrorDetail = data.ErrorMessage
		if status.ErrorDetail == "" {
			status.ErrorDetail = "AI processing failed"
		}
	case data.TaskStatus == "success" || data.TaskStatus == "done" || data.TaskStatus == "completed":
		status.State = StateSuccess
		var results struct {
			URL string `json:"url"`
		}
		if len(data.Results) > 0 {
			_ = json.Unmarshal(data.Results, &results)
		}
		status.ResultURL = results.URL
	default:
		status.State = StateRunning
	}
	return status, nil
}

type decodedEnvelope struct {
	envelope
	raw []byte
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) (*decodedEnvelope, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("youcam: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("youcam: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*decodedEnvelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrProviderUnavailable, err)
	}

	env := &decodedEnvelope{raw: raw}
	_ = json.Unmarshal(raw, &env.envelope)

	if resp.StatusCode >= 300 {
		message := env.Error
		if message == "" {
			message = env.Message
		}
		if message == "" {
			message = strings.TrimSpace(string(raw))
		}
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", req.URL.Path).Msg("youcam: request rejected")
		return nil, &APIError{StatusCode: resp.StatusCode, Message: message}
	}
	return env, nil
}
