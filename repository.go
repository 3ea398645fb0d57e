package ghola

import (
	"context"
	"time"
)

// Repository is the entity-facing facade: reads go through the read hook
// chain (the soft delete filter is installed there at construction), writes
// expose the soft delete and restore operations on top of the engine's
// update primitives.
//
// The mutation operations never consult the decider: a caller soft-deleting
// or restoring rows has already taken an explicit position on deleted-row
// visibility, and only SELECT-style reads are intercepted.
type Repository[T any, ID comparable] struct {
	engine  Engine[T]
	sd      *SoftDelete
	entity  string
	hooks   []ReadHook
	logger  QueryLogger
	metrics *Metrics
}

// RepositoryOption customizes a repository at construction time
type RepositoryOption[T any, ID comparable] func(*Repository[T, ID])

// WithLogger sets the query logger
func WithLogger[T any, ID comparable](logger QueryLogger) RepositoryOption[T, ID] {
	return func(r *Repository[T, ID]) {
		r.logger = logger
	}
}

// WithMetrics attaches a Prometheus metrics collector
func WithMetrics[T any, ID comparable](m *Metrics) RepositoryOption[T, ID] {
	return func(r *Repository[T, ID]) {
		r.metrics = m
	}
}

// WithReadHook appends a custom read hook. Custom hooks run before the
// soft delete hook, so their rewrites are filtered too.
func WithReadHook[T any, ID comparable](h ReadHook) RepositoryOption[T, ID] {
	return func(r *Repository[T, ID]) {
		r.hooks = append(r.hooks, h)
	}
}

// NewRepository creates a repository for one entity. The soft delete read
// hook is installed unconditionally and runs last in the hook chain; the
// only per-call escape hatch is the IncludeDeleted option.
func NewRepository[T any, ID comparable](engine Engine[T], sd *SoftDelete, entity string, opts ...RepositoryOption[T, ID]) *Repository[T, ID] {
	r := &Repository[T, ID]{
		engine: engine,
		sd:     sd,
		entity: entity,
		logger: NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.hooks = append(r.hooks, sd.ReadHook())
	return r
}

// SoftDeleteFilter exposes the repository's decider/rewriter component
func (r *Repository[T, ID]) SoftDeleteFilter() *SoftDelete {
	return r.sd
}

func (r *Repository[T, ID]) runReadHooks(op OperationKind, q *Query, opts Options) (*Query, Options) {
	for _, h := range r.hooks {
		q, opts = h(op, q, opts)
	}
	return q, opts
}

// recordInjection counts reads where the hook chain added the exclusion
// predicate that was not present in the caller's query
func (r *Repository[T, ID]) recordInjection(before, after *Query) {
	if r.metrics == nil {
		return
	}
	if !r.sd.hasExcludeDeletedPredicate(before) && r.sd.hasExcludeDeletedPredicate(after) {
		r.metrics.RecordFilterInjection(r.entity)
	}
}

func (r *Repository[T, ID]) observe(ctx context.Context, operation string, start time.Time, err error) {
	logOperation(r.logger, ctx, operation, r.entity, start, err)
	if r.metrics != nil {
		r.metrics.RecordOperationDuration(operation, r.entity, time.Since(start))
	}
}

// Query returns all rows matching q, with the read hook chain applied
func (r *Repository[T, ID]) Query(ctx context.Context, q *Query, opts Options) ([]T, error) {
	start := time.Now()
	hq, opts := r.runReadHooks(OpKindQuery, q, opts)
	r.recordInjection(q, hq)
	results, err := r.engine.Select(ctx, hq)
	r.observe(ctx, "query", start, err)
	return results, err
}

// All returns every row of the entity (minus soft-deleted rows by default)
func (r *Repository[T, ID]) All(ctx context.Context, opts Options) ([]T, error) {
	return r.Query(ctx, From(r.entity), opts)
}

// One returns the first row matching q, or ErrItemNotFound
func (r *Repository[T, ID]) One(ctx context.Context, q *Query, opts Options) (*T, error) {
	start := time.Now()
	hq, opts := r.runReadHooks(OpKindOne, q, opts)
	r.recordInjection(q, hq)
	results, err := r.engine.Select(ctx, hq.Limit(1))
	if err == nil && len(results) == 0 {
		err = ErrItemNotFound
	}
	r.observe(ctx, "one", start, err)
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

// Get returns the row with the given primary key, or ErrItemNotFound
func (r *Repository[T, ID]) Get(ctx context.Context, id ID, opts Options) (*T, error) {
	start := time.Now()
	q := From(r.entity).Where(Compare(r.engine.PrimaryKey(), OpEqual, id))
	hq, opts := r.runReadHooks(OpKindGet, q, opts)
	r.recordInjection(q, hq)
	results, err := r.engine.Select(ctx, hq.Limit(1))
	if err == nil && len(results) == 0 {
		err = ErrItemNotFound
	}
	r.observe(ctx, "get", start, err)
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

// Count returns the number of rows matching q
func (r *Repository[T, ID]) Count(ctx context.Context, q *Query, opts Options) (int64, error) {
	start := time.Now()
	hq, opts := r.runReadHooks(OpKindCount, q, opts)
	r.recordInjection(q, hq)
	count, err := r.engine.Count(ctx, hq)
	r.observe(ctx, "count", start, err)
	return count, err
}

// Exists reports whether a row with the given primary key exists
func (r *Repository[T, ID]) Exists(ctx context.Context, id ID, opts Options) (bool, error) {
	start := time.Now()
	q := From(r.entity).Where(Compare(r.engine.PrimaryKey(), OpEqual, id))
	hq, opts := r.runReadHooks(OpKindExists, q, opts)
	r.recordInjection(q, hq)
	count, err := r.engine.Count(ctx, hq)
	r.observe(ctx, "exists", start, err)
	return count > 0, err
}

// Insert stores a new row
func (r *Repository[T, ID]) Insert(ctx context.Context, item *T) error {
	start := time.Now()
	err := r.engine.Insert(ctx, item)
	r.observe(ctx, "insert", start, err)
	return err
}

// SoftDeleteAll marks every row matched by q as deleted, stamping the
// deletion timestamp with the current UTC instant. The caller's query is
// used as-is with no additional filtering. Returns the affected row count
// and, when q carries a projection, the updated rows.
func (r *Repository[T, ID]) SoftDeleteAll(ctx context.Context, q *Query) (int64, []T, error) {
	start := time.Now()
	count, results, err := r.engine.UpdateAll(ctx, q, []FieldChange{{Field: r.sd.Field(), Value: nowUTC()}})
	if err == nil && r.metrics != nil {
		r.metrics.RecordSoftDeletedRows(r.entity, count)
	}
	r.observe(ctx, "soft_delete_all", start, err)
	return count, results, err
}

// SoftRestoreAll clears the deletion timestamp on every row matched by q
// that is currently deleted. Rows that are not deleted are not touched and
// not counted.
func (r *Repository[T, ID]) SoftRestoreAll(ctx context.Context, q *Query) (int64, []T, error) {
	start := time.Now()
	nq := q.Where(Not(IsNull(r.sd.Field())))
	count, results, err := r.engine.UpdateAll(ctx, nq, []FieldChange{{Field: r.sd.Field(), Value: nil}})
	if err == nil && r.metrics != nil {
		r.metrics.RecordSoftRestoredRows(r.entity, count)
	}
	r.observe(ctx, "soft_restore_all", start, err)
	return count, results, err
}

// SoftDelete stamps the changeset's entity with the deletion timestamp and
// performs a normal update. Wrap a bare entity with Change. A failed
// validation returns a *ValidationError and writes nothing.
func (r *Repository[T, ID]) SoftDelete(ctx context.Context, cs *Changeset[T]) (*T, error) {
	start := time.Now()
	item, err := r.engine.Update(ctx, cs.Set(r.sd.Field(), nowUTC()))
	if err == nil && r.metrics != nil {
		r.metrics.RecordSoftDeletedRows(r.entity, 1)
	}
	r.observe(ctx, "soft_delete", start, err)
	return item, err
}

// MustSoftDelete is SoftDelete for pre-validated input: it panics on any
// error instead of returning it
func (r *Repository[T, ID]) MustSoftDelete(ctx context.Context, cs *Changeset[T]) *T {
	item, err := r.SoftDelete(ctx, cs)
	if err != nil {
		panic(err)
	}
	return item
}

// SoftRestore clears the deletion timestamp on the changeset's entity and
// performs a normal update
func (r *Repository[T, ID]) SoftRestore(ctx context.Context, cs *Changeset[T]) (*T, error) {
	start := time.Now()
	item, err := r.engine.Update(ctx, cs.Set(r.sd.Field(), nil))
	if err == nil && r.metrics != nil {
		r.metrics.RecordSoftRestoredRows(r.entity, 1)
	}
	r.observe(ctx, "soft_restore", start, err)
	return item, err
}

// MustSoftRestore is SoftRestore that panics on any error
func (r *Repository[T, ID]) MustSoftRestore(ctx context.Context, cs *Changeset[T]) *T {
	item, err := r.SoftRestore(ctx, cs)
	if err != nil {
		panic(err)
	}
	return item
}
