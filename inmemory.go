package ghola

import (
	"context"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// InMemoryEngine is an in-memory implementation of the Engine interface,
// useful for tests and prototyping. Rows live in a map keyed by ID; predicate
// evaluation runs over the entities' db-tagged fields via reflection.
type InMemoryEngine[T any, ID comparable] struct {
	mu      sync.RWMutex
	data    map[ID]*T
	entity  string
	getID   func(*T) ID
	columns []string
	index   map[string]int
}

// NewInMemoryEngine creates an in-memory engine for the named entity.
// getID extracts an element's identifier.
func NewInMemoryEngine[T any, ID comparable](entity string, getID func(*T) ID) (*InMemoryEngine[T, ID], error) {
	columns, err := columnsOf[T]()
	if err != nil {
		return nil, err
	}
	index, err := fieldIndexOf[T]()
	if err != nil {
		return nil, err
	}
	return &InMemoryEngine[T, ID]{
		data:    make(map[ID]*T),
		entity:  entity,
		getID:   getID,
		columns: columns,
		index:   index,
	}, nil
}

func (e *InMemoryEngine[T, ID]) PrimaryKey() string {
	return e.columns[0]
}

func (e *InMemoryEngine[T, ID]) Insert(_ context.Context, item *T) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.getID(item)
	if _, exists := e.data[id]; exists {
		return ErrDuplicateItem
	}
	cp := *item
	e.data[id] = &cp
	return nil
}

func (e *InMemoryEngine[T, ID]) Select(_ context.Context, q *Query) ([]T, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var results []T
	for _, item := range e.data {
		if e.matches(item, q.preds) {
			results = append(results, *item)
		}
	}
	return e.applyOrdering(results, q), nil
}

func (e *InMemoryEngine[T, ID]) Count(_ context.Context, q *Query) (int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var count int64
	for _, item := range e.data {
		if e.matches(item, q.preds) {
			count++
		}
	}
	return count, nil
}

func (e *InMemoryEngine[T, ID]) UpdateAll(_ context.Context, q *Query, changes []FieldChange) (int64, []T, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var count int64
	var results []T
	returning := len(q.selects) > 0
	for _, item := range e.data {
		if !e.matches(item, q.preds) {
			continue
		}
		if err := applyChanges(item, e.index, changes); err != nil {
			return count, results, err
		}
		count++
		if returning {
			results = append(results, *item)
		}
	}
	return count, results, nil
}

func (e *InMemoryEngine[T, ID]) Update(_ context.Context, cs *Changeset[T]) (*T, error) {
	if verr := cs.check(e.entity); verr != nil {
		return nil, verr
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.getID(cs.Entity())
	if _, exists := e.data[id]; !exists {
		return nil, ErrNoUpdateItem
	}
	if err := applyChanges(cs.Entity(), e.index, cs.changes); err != nil {
		return nil, err
	}
	cp := *cs.Entity()
	e.data[id] = &cp
	return cs.Entity(), nil
}

// matches treats the predicate list as an implicit conjunction
func (e *InMemoryEngine[T, ID]) matches(item *T, preds []Predicate) bool {
	for _, p := range preds {
		if !e.eval(item, p) {
			return false
		}
	}
	return true
}

func (e *InMemoryEngine[T, ID]) eval(item *T, p Predicate) bool {
	switch p.Kind {
	case PredicateCompare:
		val, ok := e.fieldValue(item, p.Field)
		if !ok || val == nil {
			return false
		}
		return evalCompare(val, p.Operator, p.Value)
	case PredicateIsNull:
		val, ok := e.fieldValue(item, p.Field)
		return ok && val == nil
	case PredicateNot:
		if len(p.Children) != 1 {
			return false
		}
		return !e.eval(item, p.Children[0])
	case PredicateAnd:
		for _, c := range p.Children {
			if !e.eval(item, c) {
				return false
			}
		}
		return true
	case PredicateOr:
		for _, c := range p.Children {
			if e.eval(item, c) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// fieldValue returns the dereferenced field value; a nil pointer field
// reads as (nil, true), an unknown field as (nil, false)
func (e *InMemoryEngine[T, ID]) fieldValue(item *T, field string) (any, bool) {
	idx, ok := e.index[field]
	if !ok {
		return nil, false
	}
	f := reflect.ValueOf(item).Elem().Field(idx)
	if f.Kind() == reflect.Ptr {
		if f.IsNil() {
			return nil, true
		}
		f = f.Elem()
	}
	return f.Interface(), true
}

func (e *InMemoryEngine[T, ID]) applyOrdering(results []T, q *Query) []T {
	if len(q.sort) > 0 {
		sort.SliceStable(results, func(i, j int) bool {
			for _, sf := range q.sort {
				av, _ := e.fieldValue(&results[i], sf.Field)
				bv, _ := e.fieldValue(&results[j], sf.Field)
				c := compareNullable(av, bv)
				if c == 0 {
					continue
				}
				if sf.Direction == SortDesc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if q.offset != nil {
		if *q.offset >= len(results) {
			return nil
		}
		results = results[*q.offset:]
	}
	if q.limit != nil && *q.limit < len(results) {
		results = results[:*q.limit]
	}
	return results
}

func evalCompare(a any, op string, b any) bool {
	switch op {
	case OpEqual:
		return equalValues(a, b)
	case OpNotEqual:
		return !equalValues(a, b)
	case OpGreaterThan:
		return compareValues(a, b) > 0
	case OpGreaterOrEqual:
		return compareValues(a, b) >= 0
	case OpLessThan:
		return compareValues(a, b) < 0
	case OpLessOrEqual:
		return compareValues(a, b) <= 0
	case OpLike:
		s, okS := a.(string)
		pattern, okP := b.(string)
		return okS && okP && likeMatch(s, pattern)
	default:
		// unsupported operator
		return false
	}
}

func equalValues(a, b any) bool {
	if af, ok := toFloat64(a); ok {
		if bf, ok := toFloat64(b); ok {
			return af == bf
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
	}
	return reflect.DeepEqual(a, b)
}

func compareValues(a, b any) int {
	af, okA := toFloat64(a)
	bf, okB := toFloat64(b)
	if okA && okB {
		if af < bf {
			return -1
		} else if af > bf {
			return 1
		}
		return 0
	}

	at, okA := a.(time.Time)
	bt, okB := b.(time.Time)
	if okA && okB {
		if at.Before(bt) {
			return -1
		} else if at.After(bt) {
			return 1
		}
		return 0
	}

	// non-numeric, non-time values compare as strings
	as, okA := a.(string)
	bs, okB := b.(string)
	if okA && okB {
		if as < bs {
			return -1
		} else if as > bs {
			return 1
		}
		return 0
	}

	return 0 // fallback
}

// compareNullable orders nil before any value
func compareNullable(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return compareValues(a, b)
	}
}

func likeMatch(s, pattern string) bool {
	var b strings.Builder
	b.WriteString("(?s)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	return err == nil && re.MatchString(s)
}

func toFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}
