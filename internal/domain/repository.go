package domain

import "context"

// TaskRepository defines persistence for task records. All mutation after
// creation goes through the two conditional transition methods; callers never
// read-modify-write a record themselves.
type TaskRepository interface {
	// Create inserts a new processing record. Returns ErrDuplicateTask if the
	// provider task id already exists for the kind.
	Create(ctx context.Context, task *TaskRecord) error

	GetByID(ctx context.Context, id string) (*TaskRecord, error)
	GetByProviderTaskID(ctx context.Context, kind TaskKind, providerTaskID string) (*TaskRecord, error)

	// TransitionToSuccess applies the terminal success transition iff the record
	// is still processing. The returned bool is true when this call committed
	// the transition; false means the record was already terminal and the
	// returned record carries the previously stored outcome.
	TransitionToSuccess(ctx context.Context, kind TaskKind, providerTaskID, providerResultURL, durableURL, durableHandle string) (*TaskRecord, bool, error)

	// TransitionToFailed has the same conditional semantics for failure.
	TransitionToFailed(ctx context.Context, kind TaskKind, providerTaskID, errorMessage string) (*TaskRecord, bool, error)

	// ListByOwner returns the owner's records of one kind, newest first.
	ListByOwner(ctx context.Context, kind TaskKind, ownerID string) ([]TaskRecord, error)

	// Delete removes the record and returns it, or ErrNotFound.
	Delete(ctx context.Context, id string) (*TaskRecord, error)
}

// ProductRepository defines persistence for catalog products.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	ListBySeller(ctx context.Context, sellerID string) ([]Product, error)
	ListBySkinTones(ctx context.Context, tones []string, limit int) ([]Product, error)
	Delete(ctx context.Context, id string) (*Product, error)
}
