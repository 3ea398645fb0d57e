package ghola

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrItemNotFound         = errors.New("item not found")
	ErrDuplicateItem        = errors.New("item already exists")
	ErrNoUpdateItem         = errors.New("no item has been updated")
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// FieldError describes a single invalid field in a changeset
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError is returned by Update-style operations when a changeset
// fails validation. Nothing has been written to storage when it is returned.
type ValidationError struct {
	Entity string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		msgs[i] = fe.Error()
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Entity, strings.Join(msgs, "; "))
}
