package ghola

// IsSoftDeletable reports whether the query targets an entity that declares
// the deletion timestamp field. The query's source is resolved through
// sub-query indirection to the innermost concrete entity; a query with no
// resolvable source, or over an unregistered entity, is simply not
// soft-deletable. Never fails for any well-formed query.
func (sd *SoftDelete) IsSoftDeletable(q *Query) bool {
	if q == nil {
		return false
	}
	entity, ok := q.Source()
	if !ok {
		return false
	}
	fields, ok := sd.schema.Fields(entity)
	if !ok {
		return false
	}
	return fields.Has(sd.field)
}

// HasIncludeDeletedPredicate reports whether the query already carries the
// explicit include-deleted predicate: the exact shape
// Not(IsNull(deletedAtField)). The match is structural and narrow on
// purpose; a logically equivalent predicate written with different
// operators, such as Compare(field, "!=", nil), is not recognized.
func (sd *SoftDelete) HasIncludeDeletedPredicate(q *Query) bool {
	if q == nil {
		return false
	}
	marker := Not(IsNull(sd.field))
	for _, p := range q.preds {
		if p.Equal(marker) {
			return true
		}
	}
	return false
}

// hasExcludeDeletedPredicate reports whether the query already carries the
// exclusion predicate ApplyFilter would inject, keeping ApplyFilter
// idempotent.
func (sd *SoftDelete) hasExcludeDeletedPredicate(q *Query) bool {
	if q == nil {
		return false
	}
	marker := IsNull(sd.field)
	for _, p := range q.preds {
		if p.Equal(marker) {
			return true
		}
	}
	return false
}
