package ghola

import "reflect"

// Comparison operators supported by the query model and the engines
const (
	OpEqual          = "="
	OpNotEqual       = "!="
	OpGreaterThan    = ">"
	OpGreaterOrEqual = ">="
	OpLessThan       = "<"
	OpLessOrEqual    = "<="
	OpLike           = "LIKE"
)

// PredicateKind identifies the variant of a Predicate
type PredicateKind uint8

const (
	// PredicateCompare is a field/operator/value comparison
	PredicateCompare PredicateKind = iota

	// PredicateIsNull matches rows whose field holds no value
	PredicateIsNull

	// PredicateNot negates its single child
	PredicateNot

	// PredicateAnd matches when all children match
	PredicateAnd

	// PredicateOr matches when any child matches
	PredicateOr
)

// Predicate is one filter clause of a query. It is a closed set of variants:
// comparisons and null checks at the leaves, negation/conjunction/disjunction
// above them. Predicates are plain values and safe to share.
type Predicate struct {
	Kind     PredicateKind
	Field    string
	Operator string
	Value    any
	Children []Predicate
}

// Compare builds a field/operator/value comparison predicate
func Compare(field string, operator string, value any) Predicate {
	return Predicate{Kind: PredicateCompare, Field: field, Operator: operator, Value: value}
}

// IsNull builds a predicate matching rows where field holds no value
func IsNull(field string) Predicate {
	return Predicate{Kind: PredicateIsNull, Field: field}
}

// Not negates a predicate
func Not(p Predicate) Predicate {
	return Predicate{Kind: PredicateNot, Children: []Predicate{p}}
}

// And groups predicates so that all of them must match
func And(ps ...Predicate) Predicate {
	return Predicate{Kind: PredicateAnd, Children: ps}
}

// Or groups predicates so that at least one of them must match
func Or(ps ...Predicate) Predicate {
	return Predicate{Kind: PredicateOr, Children: ps}
}

// Equal reports whether two predicates have exactly the same structure:
// same kind, field, operator, value and children, in order. There is no
// semantic normalization; Not(IsNull("f")) and Compare("f", "!=", nil)
// are different predicates.
func (p Predicate) Equal(other Predicate) bool {
	if p.Kind != other.Kind || p.Field != other.Field || p.Operator != other.Operator {
		return false
	}
	if !reflect.DeepEqual(p.Value, other.Value) {
		return false
	}
	if len(p.Children) != len(other.Children) {
		return false
	}
	for i := range p.Children {
		if !p.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}
