package ghola

// SortDirection indicates ascending or descending order
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// SortField is one ORDER BY entry
type SortField struct {
	Field     string
	Direction SortDirection
}

// Query is an immutable description of a read or write target: one source
// entity (or a sub-query), an ordered list of predicates, an optional
// projection, sort fields and limit/offset. Builder methods never mutate
// the receiver; they return a derived copy with the addition applied.
type Query struct {
	entity  string
	sub     *Query
	preds   []Predicate
	selects []string
	sort    []SortField
	limit   *int
	offset  *int
}

// From starts a query against the named entity
func From(entity string) *Query {
	return &Query{entity: entity}
}

// FromQuery starts a query whose source is another query
func FromQuery(sub *Query) *Query {
	return &Query{sub: sub}
}

func (q *Query) clone() *Query {
	c := &Query{
		entity: q.entity,
		sub:    q.sub,
		preds:  append([]Predicate(nil), q.preds...),
		sort:   append([]SortField(nil), q.sort...),
	}
	if q.selects != nil {
		c.selects = append([]string(nil), q.selects...)
	}
	if q.limit != nil {
		l := *q.limit
		c.limit = &l
	}
	if q.offset != nil {
		o := *q.offset
		c.offset = &o
	}
	return c
}

// Where returns a copy of the query with the predicates appended. Existing
// predicates keep their positions; Where never removes or reorders anything.
func (q *Query) Where(ps ...Predicate) *Query {
	c := q.clone()
	c.preds = append(c.preds, ps...)
	return c
}

// Select returns a copy of the query projecting only the given fields
func (q *Query) Select(fields ...string) *Query {
	c := q.clone()
	c.selects = append(c.selects, fields...)
	return c
}

// OrderBy returns a copy of the query with a sort field appended
func (q *Query) OrderBy(field string, dir SortDirection) *Query {
	c := q.clone()
	c.sort = append(c.sort, SortField{Field: field, Direction: dir})
	return c
}

// Limit returns a copy of the query with the row limit set
func (q *Query) Limit(n int) *Query {
	c := q.clone()
	c.limit = &n
	return c
}

// Offset returns a copy of the query with the row offset set
func (q *Query) Offset(n int) *Query {
	c := q.clone()
	c.offset = &n
	return c
}

// Source resolves the concrete entity the query targets, unwrapping
// sub-query sources recursively. ok is false when the query bottoms out
// without a named entity.
func (q *Query) Source() (entity string, ok bool) {
	for q != nil {
		if q.entity != "" {
			return q.entity, true
		}
		q = q.sub
	}
	return "", false
}

// Predicates returns a copy of the query's predicate list in order
func (q *Query) Predicates() []Predicate {
	return append([]Predicate(nil), q.preds...)
}

// Projection returns a copy of the query's selected fields; nil means
// the full entity is selected
func (q *Query) Projection() []string {
	if q.selects == nil {
		return nil
	}
	return append([]string(nil), q.selects...)
}
