package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tryonserver/internal/domain"
	"tryonserver/internal/providers/youcam"
	"tryonserver/internal/relocate"
)

// memTaskRepo is an in-memory TaskRepository with the same compare-and-set
// contract as the PostgreSQL implementation.
type memTaskRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.TaskRecord
	byKey   map[string]*domain.TaskRecord
	created int
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{
		byID:  make(map[string]*domain.TaskRecord),
		byKey: make(map[string]*domain.TaskRecord),
	}
}

func taskKey(kind domain.TaskKind, providerTaskID string) string {
	return string(kind) + "/" + providerTaskID
}

func (r *memTaskRepo) Create(_ context.Context, task *domain.TaskRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := taskKey(task.Kind, task.ProviderTaskID)
	if _, exists := r.byKey[key]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateTask, task.ProviderTaskID)
	}
	clone := *task
	clone.CreatedAt = time.Now()
	clone.UpdatedAt = clone.CreatedAt
	r.byID[clone.ID] = &clone
	r.byKey[key] = &clone
	r.created++
	return nil
}

func (r *memTaskRepo) GetByID(_ context.Context, id string) (*domain.TaskRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *task
	return &clone, nil
}

func (r *memTaskRepo) GetByProviderTaskID(_ context.Context, kind domain.TaskKind, providerTaskID string) (*domain.TaskRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.byKey[taskKey(kind, providerTaskID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *task
	return &clone, nil
}

func (r *memTaskRepo) TransitionToSuccess(_ context.Context, kind domain.TaskKind, providerTaskID, providerResultURL, durableURL, durableHandle string) (*domain.TaskRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.byKey[taskKey(kind, providerTaskID)]
	if !ok {
		return nil, false, domain.ErrNotFound
	}
	if task.Status != domain.TaskStatusProcessing {
		clone := *task
		return &clone, false, nil
	}
	task.Status = domain.TaskStatusSuccess
	task.ProviderResultURL = providerResultURL
	task.DurableResultURL = durableURL
	task.DurableResultHandle = durableHandle
	task.UpdatedAt = time.Now()
	clone := *task
	return &clone, true, nil
}

func (r *memTaskRepo) TransitionToFailed(_ context.Context, kind domain.TaskKind, providerTaskID, errorMessage string) (*domain.TaskRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.byKey[taskKey(kind, providerTaskID)]
	if !ok {
		return nil, false, domain.ErrNotFound
	}
	if task.Status != domain.TaskStatusProcessing {
		clone := *task
		return &clone, false, nil
	}
	task.Status = domain.TaskStatusFailed
	task.ErrorMessage = errorMessage
	task.UpdatedAt = time.Now()
	clone := *task
	return &clone, true, nil
}

func (r *memTaskRepo) ListByOwner(_ context.Context, kind domain.TaskKind, ownerID string) ([]domain.TaskRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tasks []domain.TaskRecord
	for _, task := range r.byID {
		if task.Kind == kind && task.OwnerID == ownerID {
			tasks = append(tasks, *task)
		}
	}
	return tasks, nil
}

func (r *memTaskRepo) Delete(_ context.Context, id string) (*domain.TaskRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byKey, taskKey(task.Kind, task.ProviderTaskID))
	return task, nil
}

type memProductRepo struct {
	products map[string]*domain.Product
	byTones  []domain.Product
}

func (r *memProductRepo) Create(_ context.Context, product *domain.Product) error {
	r.products[product.ID] = product
	return nil
}

func (r *memProductRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

func (r *memProductRepo) ListBySeller(_ context.Context, _ string) ([]domain.Product, error) {
	return nil, nil
}

func (r *memProductRepo) ListBySkinTones(_ context.Context, _ []string, _ int) ([]domain.Product, error) {
	return r.byTones, nil
}

func (r *memProductRepo) Delete(_ context.Context, id string) (*domain.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(r.products, id)
	return product, nil
}

type stubGateway struct {
	mu          sync.Mutex
	createCalls []string
	statusCalls []string
	uploadCalls []string

	createFn func(endpoint string, payload any) (*youcam.TaskHandle, error)
	statusFn func(endpoint, taskID string) (*youcam.TaskStatus, error)
	uploadFn func(endpoint string, data []byte) (string, error)
}

func (g *stubGateway) UploadBytes(_ context.Context, endpoint string, data []byte) (string, error) {
	g.mu.Lock()
	g.uploadCalls = append(g.uploadCalls, endpoint)
	g.mu.Unlock()
	if g.uploadFn != nil {
		return g.uploadFn(endpoint, data)
	}
	return "uploaded-file-1", nil
}

func (g *stubGateway) CreateTask(_ context.Context, endpoint string, payload any) (*youcam.TaskHandle, error) {
	g.mu.Lock()
	g.createCalls = append(g.createCalls, endpoint)
	g.mu.Unlock()
	return g.createFn(endpoint, payload)
}

func (g *stubGateway) GetTaskStatus(_ context.Context, endpoint, taskID string) (*youcam.TaskStatus, error) {
	g.mu.Lock()
	g.statusCalls = append(g.statusCalls, endpoint)
	g.mu.Unlock()
	return g.statusFn(endpoint, taskID)
}

func (g *stubGateway) statusCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.statusCalls)
}

type stubRelocator struct {
	mu      sync.Mutex
	seq     atomic.Int64
	err     error
	relocs  int
	deleted []string
}

func (r *stubRelocator) Relocate(_ context.Context, sourceURL, folder string, _ []string) (*relocate.Result, error) {
	r.mu.Lock()
	r.relocs++
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	n := r.seq.Add(1)
	return &relocate.Result{
		DurableURL: fmt.Sprintf("https://cdn.example.com/%s/asset-%d.png", folder, n),
		Handle:     fmt.Sprintf("%s/asset-%d", folder, n),
	}, nil
}

func (r *stubRelocator) Delete(_ context.Context, handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, handle)
}

type fixture struct {
	orch      *Orchestrator
	tasks     *memTaskRepo
	products  *memProductRepo
	gateway   *stubGateway
	relocator *stubRelocator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tasks := newMemTaskRepo()
	products := &memProductRepo{products: make(map[string]*domain.Product)}
	gateway := &stubGateway{
		createFn: func(string, any) (*youcam.TaskHandle, error) {
			return &youcam.TaskHandle{TaskID: "t1", PollInterval: time.Second}, nil
		},
		statusFn: func(string, string) (*youcam.TaskStatus, error) {
			return &youcam.TaskStatus{State: youcam.StateRunning}, nil
		},
	}
	relocator := &stubRelocator{}
	orch, err := NewOrchestrator(Options{
		Tasks:     tasks,
		Products:  products,
		Gateway:   gateway,
		Relocator: relocator,
		Logger:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return &fixture{orch: orch, tasks: tasks, products: products, gateway: gateway, relocator: relocator}
}

func (f *fixture) addProduct(id, category string) {
	f.products.products[id] = &domain.Product{
		ID:       id,
		SellerID: "seller-1",
		Name:     "Demo",
		Category: category,
		ImageURL: "https://img.example.com/" + id + ".png",
	}
}

func validAdImage() AdImageRequest {
	return AdImageRequest{SellerID: "seller-1", Prompt: "red dress on beach", TemplateID: "tpl-1"}
}

func validTrial() TrialRequest {
	return TrialRequest{
		SellerID:       "seller-1",
		ProductID:      "prod-1",
		PersonImageURL: "https://img.example.com/person.png",
		ProviderFileID: "file-1",
	}
}

func TestSubmitAdImageValidation(t *testing.T) {
	f := newFixture(t)
	for _, req := range []AdImageRequest{
		{Prompt: "p", TemplateID: "tpl"},
		{SellerID: "s", TemplateID: "tpl"},
		{SellerID: "s", Prompt: "p"},
	} {
		if _, err := f.orch.SubmitAdImage(context.Background(), req); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("SubmitAdImage(%+v) err = %v, want ErrInvalidRequest", req, err)
		}
	}
	if len(f.gateway.createCalls) != 0 {
		t.Fatalf("invalid requests reached the provider: %v", f.gateway.createCalls)
	}
}

func TestSubmitAdImageProviderFirst(t *testing.T) {
	f := newFixture(t)
	f.gateway.createFn = func(string, any) (*youcam.TaskHandle, error) {
		return nil, fmt.Errorf("%w: connection refused", domain.ErrProviderUnavailable)
	}

	_, err := f.orch.SubmitAdImage(context.Background(), validAdImage())
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
	if f.tasks.created != 0 {
		t.Fatal("record persisted before provider acceptance")
	}
}

func TestSubmitAdImageCreatesRecord(t *testing.T) {
	f := newFixture(t)
	sub, err := f.orch.SubmitAdImage(context.Background(), validAdImage())
	if err != nil {
		t.Fatalf("SubmitAdImage: %v", err)
	}
	if sub.ProviderTaskID != "t1" {
		t.Errorf("ProviderTaskID = %q, want t1", sub.ProviderTaskID)
	}
	if !strings.HasPrefix(sub.InternalID, "ad_image_") {
		t.Errorf("InternalID = %q, want ad_image_ prefix", sub.InternalID)
	}

	rec, err := f.tasks.GetByProviderTaskID(context.Background(), domain.TaskKindAdImage, "t1")
	if err != nil {
		t.Fatalf("GetByProviderTaskID: %v", err)
	}
	if rec.Status != domain.TaskStatusProcessing {
		t.Errorf("Status = %q, want processing", rec.Status)
	}
	if rec.OwnerID != "seller-1" {
		t.Errorf("OwnerID = %q, want seller-1", rec.OwnerID)
	}
}

func TestSubmitAdImageDuplicateProviderID(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orch.SubmitAdImage(context.Background(), validAdImage()); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	// Provider hands out the same id again; the stored record must survive.
	if _, err := f.orch.SubmitAdImage(context.Background(), validAdImage()); !errors.Is(err, domain.ErrDuplicateTask) {
		t.Fatalf("second submit err = %v, want ErrDuplicateTask", err)
	}
	if f.tasks.created != 1 {
		t.Fatalf("created = %d, want 1", f.tasks.created)
	}
}

func TestSubmitTrialResolvesAccessoryEndpoint(t *testing.T) {
	f := newFixture(t)
	f.addProduct("prod-1", "ai_bag")

	sub, err := f.orch.SubmitTrial(context.Background(), validTrial())
	if err != nil {
		t.Fatalf("SubmitTrial: %v", err)
	}
	if !strings.HasPrefix(sub.InternalID, "trial_") {
		t.Errorf("InternalID = %q, want trial_ prefix", sub.InternalID)
	}
	if got := f.gateway.createCalls[0]; got != "/s2s/v2.0/task/bag" {
		t.Errorf("create endpoint = %q, want /s2s/v2.0/task/bag", got)
	}
}

func TestSubmitTrialDirectUpload(t *testing.T) {
	f := newFixture(t)
	f.addProduct("prod-1", "ai_scarf")

	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("person-bytes"))
	}))
	defer imgSrv.Close()

	var uploaded []byte
	f.gateway.uploadFn = func(_ string, data []byte) (string, error) {
		uploaded = data
		return "file-77", nil
	}

	req := validTrial()
	req.ProviderFileID = ""
	req.PersonImageURL = imgSrv.URL + "/p.png"
	if _, err := f.orch.SubmitTrial(context.Background(), req); err != nil {
		t.Fatalf("SubmitTrial: %v", err)
	}

	if got := f.gateway.uploadCalls[0]; got != "/s2s/v2.0/file/scarf" {
		t.Errorf("upload endpoint = %q, want /s2s/v2.0/file/scarf", got)
	}
	if string(uploaded) != "person-bytes" {
		t.Errorf("uploaded = %q", uploaded)
	}

	rec, err := f.tasks.GetByProviderTaskID(context.Background(), domain.TaskKindStudioTrial, "t1")
	if err != nil {
		t.Fatalf("GetByProviderTaskID: %v", err)
	}
	var input domain.TrialInput
	if err := json.Unmarshal(rec.Input, &input); err != nil {
		t.Fatalf("unmarshal input: %v", err)
	}
	if input.ProviderFileID != "file-77" {
		t.Errorf("ProviderFileID = %q, want file-77", input.ProviderFileID)
	}
}

func TestSubmitTrialUnknownProduct(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orch.SubmitTrial(context.Background(), validTrial()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(f.gateway.createCalls) != 0 {
		t.Fatal("unknown product reached the provider")
	}
}

func TestPollUnknownTask(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orch.PollAndReconcile(context.Background(), domain.TaskKindAdImage, "nope"); !errors.Is(err, domain.ErrUnknownTask) {
		t.Fatalf("err = %v, want ErrUnknownTask", err)
	}
}

func TestPollRunningStaysProcessing(t *testing.T) {
	f := newFixture(t)
	mustSubmitAd(t, f)

	res, err := f.orch.PollAndReconcile(context.Background(), domain.TaskKindAdImage, "t1")
	if err != nil {
		t.Fatalf("PollAndReconcile: %v", err)
	}
	if res.Status != domain.TaskStatusProcessing {
		t.Errorf("Status = %q, want processing", res.Status)
	}
}

func TestPollSuccessRelocatesAndCommits(t *testing.T) {
	f := newFixture(t)
	mustSubmitAd(t, f)
	f.gateway.statusFn = func(string, string) (*youcam.TaskStatus, error) {
		return &youcam.TaskStatus{State: youcam.StateSuccess, ResultURL: "https://provider.example.com/r.png"}, nil
	}

	res, err := f.orch.PollAndReconcile(context.Background(), domain.TaskKindAdImage, "t1")
	if err != nil {
		t.Fatalf("PollAndReconcile: %v", err)
	}
	if res.Status != domain.TaskStatusSuccess {
		t.Fatalf("Status = %q, want success", res.Status)
	}
	if !strings.HasPrefix(res.ResultURL, "https://cdn.example.com/ad-images/") {
		t.Errorf("ResultURL = %q, want durable cdn url", res.ResultURL)
	}
	if res.Record.ProviderResultURL != "https://provider.example.com/r.png" {
		t.Errorf("ProviderResultURL = %q", res.Record.ProviderResultURL)
	}
}

func TestPollTerminalShortCircuits(t *testing.T) {
	f := newFixture(t)
	mustSubmitAd(t, f)
	f.gateway.statusFn = func(string, string) (*youcam.TaskStatus, error) {
		return &youcam.TaskStatus{State: youcam.StateSuccess, ResultURL: "https://provider.example.com/r.png"}, nil
	}

	first, err := f.orch.PollAndReconcile(context.Background(), domain.TaskKindAdImage, "t1")
	if err != nil {
		t.Fatalf("first poll: %v", err)
	}
	calls := f.gateway.statusCallCount()

	// Terminal records answer from the store; the provider must not be asked
	// again even if its URL has since expired.
	f.gateway.statusFn = func(string, string) (*youcam.TaskStatus, error) {
		t.Fatal("provider polled for a terminal record")
		return nil, nil
	}
	for i := 0; i < 3; i++ {
		res, err := f.orch.PollAndReconcile(context.Background(), domain.TaskKindAdImage, "t1")
		if err != nil {
			t.Fatalf("repeat poll: %v", err)
		}
		if res.ResultURL != first.ResultURL {
			t.Errorf("ResultURL = %q, want %q", res.ResultURL, first.ResultURL)
		}
	}
	if f.gateway.statusCallCount() != calls {
		t.Fatal("status endpoint called after terminal transition")
	}
	if f.relocator.relocs != 1 {
		t.Fatalf("relocations = %d, want 1", f.relocator.relocs)
	}
}

func TestPollProviderFailure(t *testing.T) {
	f := newFixture(t)
	mustSubmitAd(t, f)
	f.gateway.statusFn = func(string, string) (*youcam.TaskStatus, error) {
		return &youcam.TaskStatus{State: youcam.StateFailed, ErrorDetail: "nsfw content detected"}, nil
	}

	res, err := f.orch.PollAndReconcile(context.Background(), domain.TaskKindAdImage, "t1")
	if err != nil {
		t.Fatalf("PollAndReconcile: %v", err)
	}
	if res.Status != domain.TaskStatusFailed {
		t.Fatalf("Status = %q, want failed", res.Status)
	}
	if res.Error != "nsfw content detected" {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestPollSuccessWithoutResultURL(t *testing.T) {
	f := newFixture(t)
	mustSubmitAd(t, f)
	f.gateway.statusFn = func(string, string) (*youcam.TaskStatus, error) {
		return &youcam.TaskStatus{State: youcam.StateSuccess}, nil
	}

	res, err := f.orch.PollAndReconcile(context.Background(), domain.TaskKindAdImage, "t1")
	if err != nil {
		t.Fatalf("PollAndReconcile: %v", err)
	}
	if res.Status != domain.TaskStatusFailed {
		t.Fatalf("Status = %q, want failed", res.Status)
	}
	if res.Error != "no result in provider response" {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestPollExpiredProviderTask(t *testing.T) {
	f := newFixture(t)
	mustSubmitAd(t, f)
	f.gateway.statusFn = func(string, string) (*youcam.TaskStatus, error) {
		return nil, &youcam.APIError{StatusCode: 400, Message: "Invalid task id"}
	}

	res, err := f.orch.PollAndReconcile(context.Background(), domain.TaskKindAdImage, "t1")
	if err != nil {
		t.Fatalf("PollAndReconcile: %v", err)
	}
	if res.Status != domain.TaskStatusFailed {
		t.Fatalf("Status = %q, want failed", res.Status)
	}
	if res.Error != "task expired or not found" {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestPollTransientProviderError(t *testing.T) {
	f := newFixture(t)
	mustSubmitAd(t, f)
	f.gateway.statusFn = func(string, string) (*youcam.TaskStatus, error) {
		return nil, fmt.Errorf("%w: timeout", domain.ErrProviderUnavailable)
	}

	if _, err := f.orch.PollAndReconcile(context.Background(), domain.TaskKindAdImage, "t1"); !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}

	// Transient errors leave the record open for the next poll.
	rec, err := f.tasks.GetByProviderTaskID(context.Background(), domain.TaskKindAdImage, "t1")
	if err != nil {
		t.Fatalf("GetByProviderTaskID: %v", err)
	}
	if rec.Status != domain.TaskStatusProcessing {
		t.Errorf("Status = %q, want processing", rec.Status)
	}
}

func TestPollRelocationFailureFails(t *testing.T) {
	f := newFixture(t)
	mustSubmitAd(t, f)
	f.gateway.statusFn = func(string, string) (*youcam.TaskStatus, error) {
		return &youcam.TaskStatus{State: youcam.StateSuccess, ResultURL: "https://provider.example.com/r.png"}, nil
	}
	f.relocator.err = fmt.Errorf("%w: source returned status 410", domain.ErrSourceFetchFailed)

	res, err := f.orch.PollAndReconcile(context.Background(), domain.TaskKindAdImage, "t1")
	if err != nil {
		t.Fatalf("PollAndReconcile: %v", err)
	}
	if res.Status != domain.TaskStatusFailed {
		t.Fatalf("Status = %q, want failed", res.Status)
	}
	if !strings.HasPrefix(res.Error, "relocation failed: ") {
		t.Errorf("Error = %q, want relocation failed prefix", res.Error)
	}
}

func TestPollConcurrentSuccessSingleWinner(t *testing.T) {
	f := newFixture(t)
	mustSubmitAd(t, f)
	f.gateway.statusFn = func(string, string) (*youcam.TaskStatus, error) {
		return &youcam.TaskStatus{State: youcam.StateSuccess, ResultURL: "https://provider.example.com/r.png"}, nil
	}

	const pollers = 8
	results := make([]*PollResult, pollers)
	errs := make([]error, pollers)
	var wg sync.WaitGroup
	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.orch.PollAndReconcile(context.Background(), domain.TaskKindAdImage, "t1")
		}(i)
	}
	wg.Wait()

	rec, err := f.tasks.GetByProviderTaskID(context.Background(), domain.TaskKindAdImage, "t1")
	if err != nil {
		t.Fatalf("GetByProviderTaskID: %v", err)
	}
	if rec.Status != domain.TaskStatusSuccess {
		t.Fatalf("Status = %q, want success", rec.Status)
	}
	for i := 0; i < pollers; i++ {
		if errs[i] != nil {
			t.Fatalf("poller %d: %v", i, errs[i])
		}
		if results[i].ResultURL != rec.DurableResultURL {
			t.Errorf("poller %d ResultURL = %q, want winner %q", i, results[i].ResultURL, rec.DurableResultURL)
		}
	}

	// Every losing upload was discarded; only the winner's handle remains.
	f.relocator.mu.Lock()
	defer f.relocator.mu.Unlock()
	if got, want := len(f.relocator.deleted), f.relocator.relocs-1; got != want {
		t.Errorf("deleted handles = %d, want %d", got, want)
	}
	for _, handle := range f.relocator.deleted {
		if handle == rec.DurableResultHandle {
			t.Errorf("winner handle %q was deleted", handle)
		}
	}
}

func TestTrialStatusEndpointFollowsProductCategory(t *testing.T) {
	f := newFixture(t)
	f.addProduct("prod-1", "ai_hat")
	if _, err := f.orch.SubmitTrial(context.Background(), validTrial()); err != nil {
		t.Fatalf("SubmitTrial: %v", err)
	}

	// The in-memory repo does not join product context; mirror what the SQL
	// join would populate.
	f.tasks.mu.Lock()
	for _, rec := range f.tasks.byID {
		rec.ProductCategory = "ai_hat"
	}
	f.tasks.mu.Unlock()

	if _, err := f.orch.PollAndReconcile(context.Background(), domain.TaskKindStudioTrial, "t1"); err != nil {
		t.Fatalf("PollAndReconcile: %v", err)
	}
	if got := f.gateway.statusCalls[0]; got != "/s2s/v2.0/task/hat" {
		t.Errorf("status endpoint = %q, want /s2s/v2.0/task/hat", got)
	}
}

func TestDeleteTaskCleansDurableAsset(t *testing.T) {
	f := newFixture(t)
	sub := mustSubmitAd(t, f)
	f.gateway.statusFn = func(string, string) (*youcam.TaskStatus, error) {
		return &youcam.TaskStatus{State: youcam.StateSuccess, ResultURL: "https://provider.example.com/r.png"}, nil
	}
	if _, err := f.orch.PollAndReconcile(context.Background(), domain.TaskKindAdImage, "t1"); err != nil {
		t.Fatalf("PollAndReconcile: %v", err)
	}

	rec, err := f.orch.DeleteTask(context.Background(), sub.InternalID)
	if err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if len(f.relocator.deleted) != 1 || f.relocator.deleted[0] != rec.DurableResultHandle {
		t.Errorf("deleted = %v, want [%s]", f.relocator.deleted, rec.DurableResultHandle)
	}
	if _, err := f.tasks.GetByID(context.Background(), sub.InternalID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("record still present after delete: %v", err)
	}
}

func mustSubmitAd(t *testing.T, f *fixture) *Submission {
	t.Helper()
	sub, err := f.orch.SubmitAdImage(context.Background(), validAdImage())
	if err != nil {
		t.Fatalf("SubmitAdImage: %v", err)
	}
	return sub
}
