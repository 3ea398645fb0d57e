package ghola

import "context"

// CachedRepository wraps a Repository with a cache-aside Redis layer for
// primary key lookups. Soft delete and restore invalidate the affected
// entries; calls that include deleted rows bypass the cache entirely, since
// a cached entity cannot reflect per-call visibility.
//
// Bulk operations without a projection cannot name the rows they touched;
// their cache entries age out with the TTL. Use a projected query when
// prompt invalidation matters.
type CachedRepository[T any, ID comparable] struct {
	base  *Repository[T, ID]
	cache *RedisCache[T, ID]
	getID func(*T) ID
}

// NewCachedRepository wraps base with the cache layer
func NewCachedRepository[T any, ID comparable](base *Repository[T, ID], cache *RedisCache[T, ID], getID func(*T) ID) *CachedRepository[T, ID] {
	return &CachedRepository[T, ID]{base: base, cache: cache, getID: getID}
}

// Get returns the row with the given primary key, consulting the cache
// first. Cache errors other than a miss fall through to the base
// repository.
func (r *CachedRepository[T, ID]) Get(ctx context.Context, id ID, opts Options) (*T, error) {
	if opts.Bool(IncludeDeleted) {
		return r.base.Get(ctx, id, opts)
	}

	if item, err := r.cache.Get(ctx, id); err == nil {
		return item, nil
	}

	item, err := r.base.Get(ctx, id, opts)
	if err != nil {
		return nil, err
	}
	// best effort: a failed cache write must not fail the read
	_ = r.cache.Set(ctx, id, item)
	return item, nil
}

// Query delegates to the base repository; list results are not cached
func (r *CachedRepository[T, ID]) Query(ctx context.Context, q *Query, opts Options) ([]T, error) {
	return r.base.Query(ctx, q, opts)
}

// All delegates to the base repository
func (r *CachedRepository[T, ID]) All(ctx context.Context, opts Options) ([]T, error) {
	return r.base.All(ctx, opts)
}

// Count delegates to the base repository
func (r *CachedRepository[T, ID]) Count(ctx context.Context, q *Query, opts Options) (int64, error) {
	return r.base.Count(ctx, q, opts)
}

// Insert stores the row and primes the cache
func (r *CachedRepository[T, ID]) Insert(ctx context.Context, item *T) error {
	if err := r.base.Insert(ctx, item); err != nil {
		return err
	}
	_ = r.cache.Set(ctx, r.getID(item), item)
	return nil
}

// SoftDelete marks the entity deleted and invalidates its cache entry
func (r *CachedRepository[T, ID]) SoftDelete(ctx context.Context, cs *Changeset[T]) (*T, error) {
	item, err := r.base.SoftDelete(ctx, cs)
	if err != nil {
		return nil, err
	}
	_ = r.cache.Delete(ctx, r.getID(item))
	return item, nil
}

// MustSoftDelete is SoftDelete that panics on any error
func (r *CachedRepository[T, ID]) MustSoftDelete(ctx context.Context, cs *Changeset[T]) *T {
	item, err := r.SoftDelete(ctx, cs)
	if err != nil {
		panic(err)
	}
	return item
}

// SoftRestore restores the entity and invalidates its cache entry
func (r *CachedRepository[T, ID]) SoftRestore(ctx context.Context, cs *Changeset[T]) (*T, error) {
	item, err := r.base.SoftRestore(ctx, cs)
	if err != nil {
		return nil, err
	}
	_ = r.cache.Delete(ctx, r.getID(item))
	return item, nil
}

// MustSoftRestore is SoftRestore that panics on any error
func (r *CachedRepository[T, ID]) MustSoftRestore(ctx context.Context, cs *Changeset[T]) *T {
	item, err := r.SoftRestore(ctx, cs)
	if err != nil {
		panic(err)
	}
	return item
}

// SoftDeleteAll marks all matched rows deleted, invalidating the entries
// named by a projected result set
func (r *CachedRepository[T, ID]) SoftDeleteAll(ctx context.Context, q *Query) (int64, []T, error) {
	count, results, err := r.base.SoftDeleteAll(ctx, q)
	r.invalidate(ctx, results)
	return count, results, err
}

// SoftRestoreAll restores all matched deleted rows, invalidating the
// entries named by a projected result set
func (r *CachedRepository[T, ID]) SoftRestoreAll(ctx context.Context, q *Query) (int64, []T, error) {
	count, results, err := r.base.SoftRestoreAll(ctx, q)
	r.invalidate(ctx, results)
	return count, results, err
}

func (r *CachedRepository[T, ID]) invalidate(ctx context.Context, items []T) {
	for i := range items {
		_ = r.cache.Delete(ctx, r.getID(&items[i]))
	}
}
