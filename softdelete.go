package ghola

import "time"

// SoftDeleteOptions configures soft delete behavior
type SoftDeleteOptions struct {
	// DeletedAtField is the column holding the deletion timestamp.
	// Default: "deleted_at"
	DeletedAtField string
}

// DefaultSoftDeleteOptions returns the default soft delete configuration
func DefaultSoftDeleteOptions() *SoftDeleteOptions {
	return &SoftDeleteOptions{
		DeletedAtField: "deleted_at",
	}
}

// SoftDelete decides whether queries need the deleted-row exclusion filter
// and rewrites them when they do. It is stateless beyond its schema and
// field name and safe for concurrent use.
type SoftDelete struct {
	schema *Schema
	field  string
}

// NewSoftDelete creates a soft delete filter over the given schema.
// A nil opts uses the defaults.
func NewSoftDelete(schema *Schema, opts *SoftDeleteOptions) *SoftDelete {
	if opts == nil {
		opts = DefaultSoftDeleteOptions()
	}
	field := opts.DeletedAtField
	if field == "" {
		field = "deleted_at"
	}
	return &SoftDelete{schema: schema, field: field}
}

// Field returns the deletion timestamp field name
func (sd *SoftDelete) Field() string {
	return sd.field
}

// ApplyFilter returns the query with the deleted-row exclusion predicate
// appended, or the query unchanged when:
//   - it already carries the explicit include-deleted predicate
//     (the caller has taken responsibility for deleted-row visibility),
//   - its entity is not soft-deletable or cannot be resolved,
//   - the exclusion predicate is already present, so repeated application
//     is a no-op.
//
// The rewrite is append-only: existing predicates, projections and ordering
// are never touched.
func (sd *SoftDelete) ApplyFilter(q *Query) *Query {
	if q == nil {
		return nil
	}
	if sd.HasIncludeDeletedPredicate(q) {
		return q
	}
	if !sd.IsSoftDeletable(q) {
		return q
	}
	if sd.hasExcludeDeletedPredicate(q) {
		return q
	}
	return q.Where(IsNull(sd.field))
}

// ReadHook returns the interception hook the repository installs for every
// read-style operation. Precedence, highest first: the per-call
// IncludeDeleted option, the explicit in-query include-deleted predicate,
// non-deletability, then default filter injection.
func (sd *SoftDelete) ReadHook() ReadHook {
	return func(op OperationKind, q *Query, opts Options) (*Query, Options) {
		if opts.Bool(IncludeDeleted) {
			return q, opts
		}
		return sd.ApplyFilter(q), opts
	}
}

// nowUTC is the timestamp written by soft delete operations. Truncated to
// microseconds so a value round-trips unchanged through a Postgres
// timestamp column.
func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
