package ghola

// Changeset tracks a set of field changes against one entity, plus the
// validations that must hold before an engine persists them. Build one with
// Change, add changes with Set, attach validations with Validate, then hand
// it to an Update-style operation.
type Changeset[T any] struct {
	entity     *T
	changes    []FieldChange
	validators []func(*Changeset[T])
	errs       []FieldError
}

// Change wraps an entity in an empty changeset
func Change[T any](entity *T) *Changeset[T] {
	return &Changeset[T]{entity: entity}
}

// Set records a field change. Setting the same field twice keeps the later
// value in the earlier position.
func (c *Changeset[T]) Set(field string, value any) *Changeset[T] {
	for i := range c.changes {
		if c.changes[i].Field == field {
			c.changes[i].Value = value
			return c
		}
	}
	c.changes = append(c.changes, FieldChange{Field: field, Value: value})
	return c
}

// Validate attaches a validation function. Validators run when an engine
// applies the changeset, in attachment order, and report problems through
// AddError.
func (c *Changeset[T]) Validate(fn func(*Changeset[T])) *Changeset[T] {
	c.validators = append(c.validators, fn)
	return c
}

// AddError records a field-level validation failure
func (c *Changeset[T]) AddError(field, message string) {
	c.errs = append(c.errs, FieldError{Field: field, Message: message})
}

// Entity returns the changeset's underlying entity
func (c *Changeset[T]) Entity() *T {
	return c.entity
}

// Changes returns a copy of the recorded field changes in order
func (c *Changeset[T]) Changes() []FieldChange {
	return append([]FieldChange(nil), c.changes...)
}

// GetChange returns the recorded value for a field, if any
func (c *Changeset[T]) GetChange(field string) (any, bool) {
	for _, ch := range c.changes {
		if ch.Field == field {
			return ch.Value, true
		}
	}
	return nil, false
}

// Errors returns the accumulated field errors
func (c *Changeset[T]) Errors() []FieldError {
	return append([]FieldError(nil), c.errs...)
}

// check runs the validators and converts any accumulated field errors into
// a *ValidationError. Engines call it before touching storage.
func (c *Changeset[T]) check(entity string) *ValidationError {
	for _, fn := range c.validators {
		fn(c)
	}
	if len(c.errs) == 0 {
		return nil
	}
	return &ValidationError{Entity: entity, Fields: append([]FieldError(nil), c.errs...)}
}
