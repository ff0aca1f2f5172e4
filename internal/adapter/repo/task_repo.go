package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tryonserver/internal/domain"
)

const pgUniqueViolation = "23505"

// Column list shared by every task read. Product context is joined for studio
// trials; COALESCE keeps nullable columns scannable into plain strings.
const taskColumns = `
	t.id, t.owner_id, t.kind, COALESCE(t.product_id, ''), t.provider_task_id, t.status, t.input,
	COALESCE(t.provider_result_url, ''), COALESCE(t.durable_result_url, ''),
	COALESCE(t.durable_result_handle, ''), COALESCE(t.error_message, ''),
	t.created_at, t.updated_at,
	COALESCE(p.name, ''), COALESCE(p.category, ''), COALESCE(p.image_url, '')`

const taskFrom = `
FROM tryon_tasks t
LEFT JOIN products p ON p.id = t.product_id`

// TaskRepositoryPG implements domain.TaskRepository on PostgreSQL. The two
// transition methods are single-statement compare-and-sets; the conditional
// WHERE plus the rows-affected check is what closes the race between
// concurrent pollers across orchestrator instances.
type TaskRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a task repository backed by PostgreSQL.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepositoryPG {
	return &TaskRepositoryPG{pool: pool}
}

// Create inserts a new processing record.
func (r *TaskRepositoryPG) Create(ctx context.Context, task *domain.TaskRecord) error {
	query := `
INSERT INTO tryon_tasks (id, owner_id, kind, product_id, provider_task_id, status, input)
VALUES ($1, $2, $3, $4, $5, 'processing', $6);
`
	_, err := r.pool.Exec(ctx, query,
		task.ID,
		task.OwnerID,
		task.Kind,
		nullableText(task.ProductID),
		task.ProviderTaskID,
		task.Input,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateTask, task.ProviderTaskID)
		}
		return err
	}
	return nil
}

// GetByID fetches a task by its internal identifier.
func (r *TaskRepositoryPG) GetByID(ctx context.Context, id string) (*domain.TaskRecord, error) {
	query := `SELECT ` + taskColumns + taskFrom + ` WHERE t.id = $1;`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByProviderTaskID fetches a task by the provider's join key.
func (r *TaskRepositoryPG) GetByProviderTaskID(ctx context.Context, kind domain.TaskKind, providerTaskID string) (*domain.TaskRecord, error) {
	query := `SELECT ` + taskColumns + taskFrom + ` WHERE t.kind = $1 AND t.provider_task_id = $2;`
	return r.scanOne(r.pool.QueryRow(ctx, query, kind, providerTaskID))
}

// TransitionToSuccess applies the terminal success transition iff the record
// is still processing.
func (r *TaskRepositoryPG) TransitionToSuccess(ctx context.Context, kind domain.TaskKind, providerTaskID, providerResultURL, durableURL, durableHandle string) (*domain.TaskRecord, bool, error) {
	query := `
UPDATE tryon_tasks
SET status = 'success',
    provider_result_url = $3,
    durable_result_url = $4,
    durable_result_handle = $5,
    updated_at = NOW()
WHERE kind = $1 AND provider_task_id = $2 AND status = 'processing';
`
	tag, err := r.pool.Exec(ctx, query, kind, providerTaskID, providerResultURL, durableURL, durableHandle)
	if err != nil {
		return nil, false, err
	}
	return r.afterTransition(ctx, kind, providerTaskID, tag)
}

// TransitionToFailed applies the terminal failure transition iff the record is
// still processing.
func (r *TaskRepositoryPG) TransitionToFailed(ctx context.Context, kind domain.TaskKind, providerTaskID, errorMessage string) (*domain.TaskRecord, bool, error) {
	query := `
UPDATE tryon_tasks
SET status = 'failed',
    error_message = $3,
    updated_at = NOW()
WHERE kind = $1 AND provider_task_id = $2 AND status = 'processing';
`
	tag, err := r.pool.Exec(ctx, query, kind, providerTaskID, errorMessage)
	if err != nil {
		return nil, false, err
	}
	return r.afterTransition(ctx, kind, providerTaskID, tag)
}

// ListByOwner returns the owner's records of one kind, newest first.
func (r *TaskRepositoryPG) ListByOwner(ctx context.Context, kind domain.TaskKind, ownerID string) ([]domain.TaskRecord, error) {
	query := `SELECT ` + taskColumns + taskFrom + `
WHERE t.kind = $1 AND t.owner_id = $2
ORDER BY t.created_at DESC;`
	rows, err := r.pool.Query(ctx, query, kind, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.TaskRecord
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// Delete removes the record and returns it.
func (r *TaskRepositoryPG) Delete(ctx context.Context, id string) (*domain.TaskRecord, error) {
	query := `
DELETE FROM tryon_tasks
WHERE id = $1
RETURNING id, owner_id, kind, COALESCE(product_id, ''), provider_task_id, status, input,
	COALESCE(provider_result_url, ''), COALESCE(durable_result_url, ''),
	COALESCE(durable_result_handle, ''), COALESCE(error_message, ''),
	created_at, updated_at, '', '', '';
`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *TaskRepositoryPG) afterTransition(ctx context.Context, kind domain.TaskKind, providerTaskID string, tag pgconn.CommandTag) (*domain.TaskRecord, bool, error) {
	task, err := r.GetByProviderTaskID(ctx, kind, providerTaskID)
	if err != nil {
		return nil, false, err
	}
	return task, tag.RowsAffected() == 1, nil
}

func (r *TaskRepositoryPG) scanOne(row pgx.Row) (*domain.TaskRecord, error) {
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

func scanTask(row pgx.Row) (*domain.TaskRecord, error) {
	var task domain.TaskRecord
	if err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Kind,
		&task.ProductID,
		&task.ProviderTaskID,
		&task.Status,
		&task.Input,
		&task.ProviderResultURL,
		&task.DurableResultURL,
		&task.DurableResultHandle,
		&task.ErrorMessage,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.ProductName,
		&task.ProductCategory,
		&task.ProductImageURL,
	); err != nil {
		return nil, err
	}
	return &task, nil
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ domain.TaskRepository = (*TaskRepositoryPG)(nil)
