package youcam

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tryonserver/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{APIKey: "test-key", BaseURL: srv.URL})
}

func TestInitiateUploadParsesIntent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/s2s/v2.0/file/bag" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		w.Write([]byte(`{"data":{"files":[{"file_id":"f-1","requests":[{"url":"https://upload.example.com/x","headers":{"Content-Type":"image/png"}}]}]}}`))
	})

	intent, err := client.InitiateUpload(context.Background(), "/s2s/v2.0/file/bag", FileMeta{
		FileName:    "photo.png",
		ContentType: "image/png",
		FileSize:    1234,
	})
	if err != nil {
		t.Fatalf("InitiateUpload: %v", err)
	}
	if intent.FileID != "f-1" || intent.UploadURL != "https://upload.example.com/x" {
		t.Fatalf("unexpected intent: %+v", intent)
	}
	if intent.Headers["Content-Type"] != "image/png" {
		t.Fatalf("headers not propagated: %+v", intent.Headers)
	}
}

func TestCreateTaskReturnsHandle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"task_id":"t-9","polling_interval":1500}}`))
	})

	handle, err := client.CreateTask(context.Background(), "/s2s/v2.0/task/cloth", map[string]any{"src_file_id": "f"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if handle.TaskID != "t-9" {
		t.Fatalf("task id = %q", handle.TaskID)
	}
	if handle.PollInterval != 1500*time.Millisecond {
		t.Fatalf("poll interval = %v", handle.PollInterval)
	}
}

func TestCreateTaskMissingTaskID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	})

	_, err := client.CreateTask(context.Background(), "/s2s/v2.0/task/cloth", map[string]any{})
	if !errors.Is(err, domain.ErrMissingTaskID) {
		t.Fatalf("err = %v, want ErrMissingTaskID", err)
	}
}

func TestCreateTaskRejectedPropagatesMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"bad garment category"}`))
	})

	_, err := client.CreateTask(context.Background(), "/s2s/v2.0/task/cloth", map[string]any{})
	if !errors.Is(err, domain.ErrProviderRejected) {
		t.Fatalf("err = %v, want ErrProviderRejected", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err is not *APIError: %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Message != "bad garment category" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
}

func TestCreateTaskTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on
	client := NewClient(Options{APIKey: "k", BaseURL: srv.URL})

	_, err := client.CreateTask(context.Background(), "/s2s/v2.0/task/cloth", map[string]any{})
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestGetTaskStatusNormalization(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		state     TaskState
		resultURL string
		detail    string
	}{
		{"running", `{"data":{"task_status":"running"}}`, StateRunning, "", ""},
		{"success", `{"data":{"task_status":"success","results":{"url":"https://r.example.com/a.png"}}}`, StateSuccess, "https://r.example.com/a.png", ""},
		{"done", `{"data":{"task_status":"done","results":{"url":"https://r.example.com/b.png"}}}`, StateSuccess, "https://r.example.com/b.png", ""},
		{"completed", `{"data":{"task_status":"completed"}}`, StateSuccess, "", ""},
		{"failed", `{"data":{"task_status":"failed","error_message":"bad pose"}}`, StateFailed, "", "bad pose"},
		{"failed_default_detail", `{"data":{"task_status":"failed"}}`, StateFailed, "", "AI processing failed"},
		{"error_message_wins", `{"data":{"task_status":"running","error_message":"cut short"}}`, StateFailed, "", "cut short"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/s2s/v2.0/task/cloth/t-1" {
					t.Errorf("path = %q", r.URL.Path)
				}
				if got := r.Header.Get("Cache-Control"); got != "no-store" {
					t.Errorf("cache-control = %q", got)
				}
				w.Write([]byte(tc.body))
			})

			status, err := client.GetTaskStatus(context.Background(), "/s2s/v2.0/task/cloth", "t-1")
			if err != nil {
				t.Fatalf("GetTaskStatus: %v", err)
			}
			if status.State != tc.state {
				t.Fatalf("state = %q, want %q", status.State, tc.state)
			}
			if status.ResultURL != tc.resultURL {
				t.Fatalf("result url = %q, want %q", status.ResultURL, tc.resultURL)
			}
			if status.ErrorDetail != tc.detail {
				t.Fatalf("detail = %q, want %q", status.ErrorDetail, tc.detail)
			}
		})
	}
}

func TestUploadBytesTopLevelFileID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Content-Type"); got != "application/octet-stream" {
			t.Errorf("content-type = %q", got)
		}
		w.Write([]byte(`{"file_id":"f-top"}`))
	})

	fileID, err := client.UploadBytes(context.Background(), "/s2s/v2.0/file/selfie", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("UploadBytes: %v", err)
	}
	if fileID != "f-top" {
		t.Fatalf("file id = %q", fileID)
	}
}

func TestMissingAPIKey(t *testing.T) {
	client := NewClient(Options{})
	if _, err := client.CreateTask(context.Background(), "/x", nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
	if _, err := client.GetTaskStatus(context.Background(), "/x", "t"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}
