package seekly

import (
	"sort"

	"github.com/nqd/flat"
	"github.com/seekly/seekly-go/errors"
	"github.com/spf13/cast"
)

// WhereOp is an operator used to compare a value to a records field value in a where clause
type WhereOp string

const (
	// Eq matches on equality
	Eq WhereOp = "eq"
	// Neq matches on inequality
	Neq WhereOp = "neq"
	// Gt matches on greater than
	Gt WhereOp = "gt"
	// Gte matches on greater than or equal to
	Gte WhereOp = "gte"
	// Lt matches on less than
	Lt WhereOp = "lt"
	// Lte matches on less than or equal to
	Lte WhereOp = "lte"
	// In matches on an element being contained in a list
	In WhereOp = "in"
	// Contains matches on text containing a substring
	Contains WhereOp = "contains"
	// Exists matches on the presence of a field, regardless of value
	Exists WhereOp = "exists"
)

var whereOps = map[WhereOp]struct{}{
	Eq: {}, Neq: {}, Gt: {}, Gte: {}, Lt: {}, Lte: {}, In: {}, Contains: {}, Exists: {},
}

// Where is a field-level filter leaf comparing a records field value against a value
type Where struct {
	// Field is the field to compare against a records field value
	Field string `json:"field"`
	// Op is an operator used to compare the field against the value
	Op WhereOp `json:"op"`
	// Value is a value to compare against a records field value
	Value any `json:"value,omitempty"`
}

// Connector joins filter clauses with a logical operator
type Connector string

const (
	// ConnectorAnd requires all clauses to match
	ConnectorAnd Connector = "and"
	// ConnectorOr requires at least one clause to match
	ConnectorOr Connector = "or"
)

// Filter is a predicate tree: either a single Where leaf or a Connector over
// child filters. A zero Filter means no filtering.
type Filter struct {
	// Where is the leaf predicate (leaf nodes only)
	Where *Where `json:"where,omitempty"`
	// Connector is the logical operator joining Clauses (internal nodes only)
	Connector Connector `json:"connector,omitempty"`
	// Clauses are the child filters (internal nodes only)
	Clauses []Filter `json:"clauses,omitempty"`
}

// IsZero returns true if the filter contains no predicate
func (f Filter) IsZero() bool {
	return f.Where == nil && len(f.Clauses) == 0
}

// Validate validates the predicate tree and returns a validation error if one exists
func (f Filter) Validate() error {
	if f.IsZero() {
		return nil
	}
	if f.Where != nil {
		if len(f.Clauses) > 0 || f.Connector != "" {
			return errors.New(errors.Config, "filter node must be either a leaf or a connector, not both")
		}
		if f.Where.Field == "" {
			return errors.New(errors.Config, "empty required field: 'filter.where.field'")
		}
		if _, ok := whereOps[f.Where.Op]; !ok {
			return errors.New(errors.Config, "unknown filter operator: '%s'", f.Where.Op)
		}
		if f.Where.Op != Exists && f.Where.Value == nil {
			return errors.New(errors.Config, "empty filter value for field '%s'", f.Where.Field)
		}
		return nil
	}
	if f.Connector != ConnectorAnd && f.Connector != ConnectorOr {
		return errors.New(errors.Config, "unknown filter connector: '%s'", f.Connector)
	}
	for _, c := range f.Clauses {
		if c.IsZero() {
			return errors.New(errors.Config, "empty clause under '%s' connector", f.Connector)
		}
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Equal matches records whose field equals the value
func Equal(field string, value any) Filter {
	return Filter{Where: &Where{Field: field, Op: Eq, Value: value}}
}

// NotEqual matches records whose field does not equal the value
func NotEqual(field string, value any) Filter {
	return Filter{Where: &Where{Field: field, Op: Neq, Value: value}}
}

// GreaterThan matches records whose field is greater than the value
func GreaterThan(field string, value any) Filter {
	return Filter{Where: &Where{Field: field, Op: Gt, Value: value}}
}

// GreaterThanEqual matches records whose field is greater than or equal to the value
func GreaterThanEqual(field string, value any) Filter {
	return Filter{Where: &Where{Field: field, Op: Gte, Value: value}}
}

// LessThan matches records whose field is less than the value
func LessThan(field string, value any) Filter {
	return Filter{Where: &Where{Field: field, Op: Lt, Value: value}}
}

// LessThanEqual matches records whose field is less than or equal to the value
func LessThanEqual(field string, value any) Filter {
	return Filter{Where: &Where{Field: field, Op: Lte, Value: value}}
}

// ContainedIn matches records whose field value is contained in the list
func ContainedIn(field string, values ...any) Filter {
	return Filter{Where: &Where{Field: field, Op: In, Value: values}}
}

// ContainsText matches records whose text field contains the substring
func ContainsText(field string, value string) Filter {
	return Filter{Where: &Where{Field: field, Op: Contains, Value: value}}
}

// FieldExists matches records where the field is present
func FieldExists(field string) Filter {
	return Filter{Where: &Where{Field: field, Op: Exists}}
}

// And joins filters so that all must match
func And(clauses ...Filter) Filter {
	return Filter{Connector: ConnectorAnd, Clauses: clauses}
}

// Or joins filters so that at least one must match
func Or(clauses ...Filter) Filter {
	return Filter{Connector: ConnectorOr, Clauses: clauses}
}

// FilterFrom normalizes the flat object-literal filter shorthand into a
// predicate tree. Keys are (possibly nested) field paths; a scalar value means
// equality and an operator object ({"gt": 5}) selects the operator. All entries
// are joined with an and connector, ordered by field for a deterministic tree.
//
//	FilterFrom(map[string]any{
//		"author":              "smith",
//		"details.word_count":  map[string]any{"gte": 100},
//	})
func FilterFrom(shorthand map[string]any) (Filter, error) {
	if len(shorthand) == 0 {
		return Filter{}, nil
	}
	flattened, err := flat.Flatten(shorthand, &flat.Options{Delimiter: ".", Safe: true})
	if err != nil {
		return Filter{}, errors.Wrap(err, errors.Config, "failed to flatten filter shorthand")
	}
	fields := make([]string, 0, len(flattened))
	clauses := make(map[string][]Filter, len(flattened))
	for field, value := range flattened {
		field, leaf, trimmed := trimOperatorSuffix(field, value)
		if _, ok := clauses[field]; !ok {
			fields = append(fields, field)
		}
		if trimmed {
			clauses[field] = append(clauses[field], leaf)
			continue
		}
		clauses[field] = append(clauses[field], Equal(field, value))
	}
	sort.Strings(fields)
	var all []Filter
	for _, field := range fields {
		leaves := clauses[field]
		sort.Slice(leaves, func(i, j int) bool { return leaves[i].Where.Op < leaves[j].Where.Op })
		all = append(all, leaves...)
	}
	if len(all) == 1 {
		return all[0], nil
	}
	return And(all...), nil
}

// trimOperatorSuffix splits a flattened key like details.word_count.gte into
// the field path and an operator leaf. Safe-mode flattening leaves list values
// intact, so only operator objects produce suffixed keys.
func trimOperatorSuffix(key string, value any) (string, Filter, bool) {
	idx := -1
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '.' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return key, Filter{}, false
	}
	op := WhereOp(key[idx+1:])
	if _, ok := whereOps[op]; !ok {
		return key, Filter{}, false
	}
	field := key[:idx]
	if op == Exists {
		if cast.ToBool(value) {
			return field, FieldExists(field), true
		}
		return field, Filter{Where: &Where{Field: field, Op: Exists, Value: false}}, true
	}
	return field, Filter{Where: &Where{Field: field, Op: op, Value: value}}, true
}
