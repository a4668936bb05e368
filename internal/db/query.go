package db

import (
	"fmt"
	"sort"
	"strings"
)

// Operator is a comparison operator usable in a Condition.
type Operator string

const (
	// OpEq matches equal values.
	OpEq Operator = "="
	// OpLt matches values lower than the operand.
	OpLt Operator = "<"
	// OpGt matches values greater than the operand.
	OpGt Operator = ">"
	// OpLte matches values lower than or equal to the operand.
	OpLte Operator = "<="
	// OpGte matches values greater than or equal to the operand.
	OpGte Operator = ">="
)

// Valid reports whether o is a supported operator.
func (o Operator) Valid() bool {
	switch o {
	case OpEq, OpLt, OpGt, OpLte, OpGte:
		return true
	default:
		return false
	}
}

// Holds reports whether a comparison result (as returned by a three way
// compare of field value against operand) satisfies o.
func (o Operator) Holds(cmp int) bool {
	switch o {
	case OpEq:
		return cmp == 0
	case OpLt:
		return cmp < 0
	case OpGt:
		return cmp > 0
	case OpLte:
		return cmp <= 0
	case OpGte:
		return cmp >= 0
	default:
		return false
	}
}

// Condition is one predicate: Field Op Value.
type Condition struct {
	Field string
	Op    Operator
	Value any
}

// Conditions are combined with AND, in order.
type Conditions []Condition

// Eq builds an equality condition.
func Eq(field string, value any) Condition { return Condition{Field: field, Op: OpEq, Value: value} }

// Lt builds a lower-than condition.
func Lt(field string, value any) Condition { return Condition{Field: field, Op: OpLt, Value: value} }

// Gt builds a greater-than condition.
func Gt(field string, value any) Condition { return Condition{Field: field, Op: OpGt, Value: value} }

// Lte builds a lower-or-equal condition.
func Lte(field string, value any) Condition { return Condition{Field: field, Op: OpLte, Value: value} }

// Gte builds a greater-or-equal condition.
func Gte(field string, value any) Condition { return Condition{Field: field, Op: OpGte, Value: value} }

// Where turns a field to value map into equality conditions ordered by field name.
func Where(fields map[string]any) Conditions {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}

	sort.Strings(names)

	out := make(Conditions, 0, len(names))
	for _, n := range names {
		out = append(out, Eq(n, fields[n]))
	}

	return out
}

// Validate checks that every condition names a field and uses a supported operator.
func (c Conditions) Validate() error {
	for _, cond := range c {
		if strings.TrimSpace(cond.Field) == "" {
			return fmt.Errorf("%w: empty field", ErrInvalidCondition)
		}

		if !cond.Op.Valid() {
			return fmt.Errorf("%w: operator %q on %s", ErrInvalidCondition, cond.Op, cond.Field)
		}
	}

	return nil
}

// Direction is a sort direction.
type Direction string

const (
	// Asc sorts from the smallest value.
	Asc Direction = "ASC"
	// Desc sorts from the largest value.
	Desc Direction = "DESC"
)

// SortRule orders results by one field.
type SortRule struct {
	Field     string
	Direction Direction
}

// SortAsc sorts ascending by field.
func SortAsc(field string) SortRule { return SortRule{Field: field, Direction: Asc} }

// SortDesc sorts descending by field.
func SortDesc(field string) SortRule { return SortRule{Field: field, Direction: Desc} }

// Limit restricts results to Count rows after skipping Offset rows.
type Limit struct {
	Offset int
	Count  int
}

// First limits results to the first n rows.
func First(n int) *Limit { return &Limit{Count: n} }

// Range skips offset rows then takes count rows.
func Range(offset, count int) *Limit { return &Limit{Offset: offset, Count: count} }

// Apply returns the bounds [lo, hi) of the limit for n rows.
func (l *Limit) Apply(n int) (int, int) {
	if l == nil {
		return 0, n
	}

	lo := max(l.Offset, 0)
	if lo > n {
		return n, n
	}

	hi := n
	if l.Count >= 0 && lo+l.Count < n {
		hi = lo + l.Count
	}

	return lo, hi
}

// Query selects objects from a collection.
type Query struct {
	// KeyField keys the result set by that field's value. Rows with a blank
	// key are appended positionally instead.
	KeyField   string
	Conditions Conditions
	Sort       []SortRule
	Limit      *Limit
}
