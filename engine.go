package ghola

import "context"

// OperationKind names a read-style repository operation for read hooks
type OperationKind string

const (
	OpKindQuery  OperationKind = "query"
	OpKindOne    OperationKind = "one"
	OpKindGet    OperationKind = "get"
	OpKindCount  OperationKind = "count"
	OpKindExists OperationKind = "exists"
)

// Options is a per-call bag of named overrides. Keys are free-form; the only
// key this package interprets is IncludeDeleted.
type Options map[string]any

// IncludeDeleted, when set to true in an Options bag, disables the automatic
// soft delete filter for that single call.
const IncludeDeleted = "include_deleted"

// Bool reads a boolean option; absent or non-boolean values read as false
func (o Options) Bool(key string) bool {
	if o == nil {
		return false
	}
	b, ok := o[key].(bool)
	return ok && b
}

// ReadHook intercepts every read-style operation before it reaches the
// engine. Hooks may return a rewritten query; they must treat the input as
// immutable and derive copies instead of mutating it.
type ReadHook func(op OperationKind, q *Query, opts Options) (*Query, Options)

// FieldChange sets one field to a value; a nil value clears the field
type FieldChange struct {
	Field string
	Value any
}

// Engine executes queries and mutations against a storage backend. The
// repository facade is backend-agnostic; engines own SQL generation,
// connections and transactional guarantees, and pass constraint violations
// through untranslated.
type Engine[T any] interface {
	// Select returns all rows matching the query
	Select(ctx context.Context, q *Query) ([]T, error)

	// Count returns the number of rows matching the query
	Count(ctx context.Context, q *Query) (int64, error)

	// UpdateAll applies the field changes to every row matching the query.
	// It returns the affected row count and, only when the query carries a
	// projection, the updated rows; otherwise results is nil.
	UpdateAll(ctx context.Context, q *Query, changes []FieldChange) (int64, []T, error)

	// Update validates the changeset and persists its changes to the single
	// row identified by the changeset's entity. A failed validation returns
	// a *ValidationError and writes nothing.
	Update(ctx context.Context, cs *Changeset[T]) (*T, error)

	// Insert stores a new row
	Insert(ctx context.Context, item *T) error

	// PrimaryKey returns the entity's primary key field name
	PrimaryKey() string
}
