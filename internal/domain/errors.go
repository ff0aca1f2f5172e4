package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrUnknownTask    = errors.New("unknown task")
	ErrDuplicateTask  = errors.New("duplicate provider task id")
	ErrInvalidRequest = errors.New("invalid request")

	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderRejected    = errors.New("provider rejected request")
	ErrMissingTaskID       = errors.New("provider response missing task id")

	ErrSourceFetchFailed = errors.New("result fetch failed")
	ErrStoreUploadFailed = errors.New("blob store upload failed")
)
