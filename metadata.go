package ghola

import (
	"fmt"
	"reflect"
	"sync"
)

// FieldSet is the set of field names an entity declares
type FieldSet map[string]struct{}

// Has reports whether the set contains the field
func (fs FieldSet) Has(field string) bool {
	_, ok := fs[field]
	return ok
}

// Schema maps entity names to their declared field sets. It is the metadata
// resolver the soft delete decider consults; entities are registered once at
// startup and lookups are read-mostly.
type Schema struct {
	mu     sync.RWMutex
	fields map[string]FieldSet
}

// NewSchema creates an empty schema registry
func NewSchema() *Schema {
	return &Schema{fields: make(map[string]FieldSet)}
}

// Register reflects over T's `db` struct tags and registers the resulting
// field set under the entity name
func Register[T any](s *Schema, entity string) error {
	cols, err := columnsOf[T]()
	if err != nil {
		return fmt.Errorf("register %s: %w", entity, err)
	}
	fs := make(FieldSet, len(cols))
	for _, c := range cols {
		fs[c] = struct{}{}
	}
	s.mu.Lock()
	s.fields[entity] = fs
	s.mu.Unlock()
	return nil
}

// RegisterFields registers an explicit field set under the entity name,
// for callers that do not use struct tags
func (s *Schema) RegisterFields(entity string, fields ...string) {
	fs := make(FieldSet, len(fields))
	for _, f := range fields {
		fs[f] = struct{}{}
	}
	s.mu.Lock()
	s.fields[entity] = fs
	s.mu.Unlock()
}

// Fields returns the field set registered for the entity
func (s *Schema) Fields(entity string) (FieldSet, bool) {
	s.mu.RLock()
	fs, ok := s.fields[entity]
	s.mu.RUnlock()
	return fs, ok
}

// columnsOf lists T's `db`-tagged column names in declaration order
func columnsOf[T any]() ([]string, error) {
	var t T
	typ := reflect.TypeOf(t)
	if typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity type must be a struct")
	}

	var columns []string
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("db")
		if tag != "" && tag != "-" {
			columns = append(columns, tag)
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no db-tagged columns found")
	}
	return columns, nil
}

// fieldIndexOf maps T's column names to struct field indexes
func fieldIndexOf[T any]() (map[string]int, error) {
	var t T
	typ := reflect.TypeOf(t)
	if typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity type must be a struct")
	}

	index := make(map[string]int)
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("db")
		if tag != "" && tag != "-" {
			index[tag] = i
		}
	}
	if len(index) == 0 {
		return nil, fmt.Errorf("no db-tagged columns found")
	}
	return index, nil
}

// fieldByIndex reads a struct field's value by index
func fieldByIndex[T any](item *T, idx int) any {
	return reflect.ValueOf(item).Elem().Field(idx).Interface()
}

// fieldAddrByIndex returns a pointer to a struct field by index, for row
// scanning
func fieldAddrByIndex[T any](item *T, idx int) any {
	return reflect.ValueOf(item).Elem().Field(idx).Addr().Interface()
}

// applyChanges assigns each change to the matching struct field. A nil
// change value zeroes the field (nil pointer for pointer fields); non-pointer
// targets accept assignable or convertible values, and pointer targets
// accept bare values by boxing them.
func applyChanges[T any](item *T, index map[string]int, changes []FieldChange) error {
	v := reflect.ValueOf(item).Elem()
	for _, ch := range changes {
		idx, ok := index[ch.Field]
		if !ok {
			return fmt.Errorf("unknown field %q", ch.Field)
		}
		f := v.Field(idx)

		if ch.Value == nil {
			f.Set(reflect.Zero(f.Type()))
			continue
		}

		val := reflect.ValueOf(ch.Value)
		if f.Kind() == reflect.Ptr && val.Kind() != reflect.Ptr {
			if !val.Type().ConvertibleTo(f.Type().Elem()) {
				return fmt.Errorf("cannot assign %T to field %q", ch.Value, ch.Field)
			}
			p := reflect.New(f.Type().Elem())
			p.Elem().Set(val.Convert(f.Type().Elem()))
			f.Set(p)
			continue
		}

		if val.Type().AssignableTo(f.Type()) {
			f.Set(val)
			continue
		}
		if val.Type().ConvertibleTo(f.Type()) {
			f.Set(val.Convert(f.Type()))
			continue
		}
		return fmt.Errorf("cannot assign %T to field %q", ch.Value, ch.Field)
	}
	return nil
}
