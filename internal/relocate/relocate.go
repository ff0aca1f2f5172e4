// Package relocate moves transient provider-hosted result assets into the
// durable blob store. Provider URLs expire after a window, so a fetch failure
// is surfaced distinctly from an upload failure: the former means the result
// is gone and the job must be regenerated, the latter that the store is down.
package relocate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tryonserver/internal/domain"
	"tryonserver/internal/infra"
	"tryonserver/internal/storage"
)

// Options configures the relocation service.
type Options struct {
	Store          storage.BlobStore
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Service downloads provider result bytes and re-uploads them durably.
// Relocate is not idempotent; the caller must invoke it at most once per
// recorded terminal success.
type Service struct {
	store      storage.BlobStore
	httpClient *http.Client
	logger     *infra.Logger
}

// Result locates the re-hosted asset.
type Result struct {
	DurableURL string
	Handle     string
}

// NewService constructs a relocation service.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("relocate: blob store is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Service{store: opts.Store, httpClient: httpClient, logger: logger}, nil
}

// Relocate downloads the source fully into memory and uploads it to the blob
// store under the given folder.
func (s *Service) Relocate(ctx context.Context, sourceURL, folder string, tags []string) (*Result, error) {
	parsed, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil || parsed.Scheme == "" {
		return nil, fmt.Errorf("%w: invalid source url %q", domain.ErrSourceFetchFailed, sourceURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrSourceFetchFailed, err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: source returned status %d", domain.ErrSourceFetchFailed, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrSourceFetchFailed, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	obj, err := s.store.Upload(ctx, data, storage.UploadOptions{
		Folder:      folder,
		ContentType: contentType,
		Tags:        tags,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUploadFailed, err)
	}
	s.logger.Debug().Str("source", sourceURL).Str("handle", obj.Handle).Msg("relocate: asset re-hosted")
	return &Result{DurableURL: obj.URL, Handle: obj.Handle}, nil
}

// Delete removes a durable asset best-effort. Failures are logged, never
// returned; the caller's own operation must not be blocked by store cleanup.
func (s *Service) Delete(ctx context.Context, handle string) {
	if strings.TrimSpace(handle) == "" {
		return
	}
	if err := s.store.Delete(ctx, handle); err != nil {
		s.logger.Warn().Err(err).Str("handle", handle).Msg("relocate: blob cleanup failed")
	}
}
