package domain

import "time"

// TaskKind enumerates the two persisted asynchronous task families.
type TaskKind string

const (
	TaskKindAdImage     TaskKind = "ad_image"
	TaskKindStudioTrial TaskKind = "studio_trial"
)

// TaskStatus enumerates task lifecycle states.
type TaskStatus string

const (
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusSuccess    TaskStatus = "success"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailed
}

// TaskRecord is the persisted state of one provider-side job. A record exists
// only after the provider accepted the task, so its presence is proof the
// external side effect already happened.
type TaskRecord struct {
	ID             string
	OwnerID        string
	Kind           TaskKind
	ProductID      string
	ProviderTaskID string
	Status         TaskStatus
	Input          []byte

	// ProviderResultURL is the transient provider-hosted URL, kept for audit.
	// DurableResultURL/Handle are set iff status is success; ErrorMessage iff failed.
	ProviderResultURL   string
	DurableResultURL    string
	DurableResultHandle string
	ErrorMessage        string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Joined product context, populated on studio trial reads.
	ProductName     string
	ProductCategory string
	ProductImageURL string
}

// AdImageInput holds the kind-specific inputs of an ad image task.
type AdImageInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	TemplateID     string `json:"template_id"`
}

// TrialInput holds the kind-specific inputs of a studio trial task.
type TrialInput struct {
	ProductID      string `json:"product_id"`
	PersonImageURL string `json:"person_image_url"`
	Gender         string `json:"gender"`
	ProviderFileID string `json:"provider_file_id"`
}
