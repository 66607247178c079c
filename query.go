package seekly

import (
	"github.com/samber/lo"
	"github.com/seekly/seekly-go/errors"
)

// OrderByDirection indicates whether results should be sorted in ascending or descending order
type OrderByDirection string

const (
	// ASC indicates ascending order
	ASC OrderByDirection = "asc"
	// DESC indicates descending order
	DESC OrderByDirection = "desc"
)

// OrderBy orders the result set by a given field in a given direction.
// Multiple entries define tie-break order with the first entry taking priority.
type OrderBy struct {
	// Field is the field to sort on
	Field string `json:"field"`
	// Direction is the sort direction
	Direction OrderByDirection `json:"direction"`
}

// GroupBy groups search results by a property
type GroupBy struct {
	// Property is the property to group on
	Property string `json:"property"`
	// MaxGroups caps the number of groups returned
	MaxGroups int `json:"maxGroups"`
}

// Rerank re-scores search results against a query on a single property
type Rerank struct {
	// Query is the reranking query
	Query string `json:"query"`
	// Property is the property the reranker reads
	Property string `json:"property"`
}

// Query is the immutable clause model for one logical query against a
// collection. Builders produce successive Query values; the compiler consumes
// one per execution. A Query is never mutated after construction, so a value
// can be retained and reused as a template.
type Query struct {
	// Collection is the target collection
	Collection string `json:"collection"`
	// Select is the ordered field paths to return; empty means all scalar fields
	Select []Path `json:"select,omitempty"`
	// Filter is the predicate tree restricting the candidate set
	Filter Filter `json:"filter,omitempty"`
	// Search is the optional search directive (at most one variant)
	Search *Search `json:"search,omitempty"`
	// Rerank optionally re-scores search results
	Rerank *Rerank `json:"rerank,omitempty"`
	// SpellCheck requests backend-side correction metadata
	SpellCheck bool `json:"spellCheck,omitempty"`
	// GroupBy optionally groups results
	GroupBy *GroupBy `json:"groupBy,omitempty"`
	// OrderBy is the ordered list of sort directives
	OrderBy []OrderBy `json:"orderBy,omitempty"`
	// Limit caps the number of records returned
	Limit *int `json:"limit,omitempty"`
	// Offset skips records before the first returned one
	Offset *int `json:"offset,omitempty"`
	// Generate is the optional generation directive
	Generate *Generate `json:"generate,omitempty"`
	// Aggregation turns the query into a grouped statistical summary
	Aggregation *Aggregation `json:"aggregation,omitempty"`
}

// Clone returns a deep copy of the query. Shared slices and nested directives
// are copied so the clone can be specialized without touching the original.
func (q Query) Clone() Query {
	out := q
	out.Select = append([]Path(nil), q.Select...)
	out.OrderBy = append([]OrderBy(nil), q.OrderBy...)
	out.Filter = q.Filter.clone()
	if q.Search != nil {
		s := *q.Search
		if s.About != nil {
			a := *s.About
			s.About = &a
		}
		if s.Match != nil {
			m := *s.Match
			m.Properties = append([]string(nil), m.Properties...)
			s.Match = &m
		}
		if s.Find != nil {
			f := *s.Find
			f.Weights = lo.PickBy(f.Weights, func(string, float64) bool { return true })
			s.Find = &f
		}
		if s.NearVector != nil {
			n := *s.NearVector
			n.Vector = append([]float32(nil), n.Vector...)
			s.NearVector = &n
		}
		if s.Similar != nil {
			sim := *s.Similar
			s.Similar = &sim
		}
		out.Search = &s
	}
	if q.Rerank != nil {
		r := *q.Rerank
		out.Rerank = &r
	}
	if q.GroupBy != nil {
		g := *q.GroupBy
		out.GroupBy = &g
	}
	if q.Limit != nil {
		out.Limit = lo.ToPtr(*q.Limit)
	}
	if q.Offset != nil {
		out.Offset = lo.ToPtr(*q.Offset)
	}
	if q.Generate != nil {
		g := *q.Generate
		if g.FromOne != nil {
			f := *g.FromOne
			f.Messages = append([]Message(nil), f.Messages...)
			g.FromOne = &f
		}
		if g.FromMany != nil {
			f := *g.FromMany
			f.Properties = append([]string(nil), f.Properties...)
			f.Messages = append([]Message(nil), f.Messages...)
			g.FromMany = &f
		}
		if g.Ask != nil {
			a := *g.Ask
			g.Ask = &a
		}
		out.Generate = &g
	}
	if q.Aggregation != nil {
		a := *q.Aggregation
		a.Aggregates = append([]Aggregate(nil), a.Aggregates...)
		out.Aggregation = &a
	}
	return out
}

func (f Filter) clone() Filter {
	out := f
	if f.Where != nil {
		w := *f.Where
		out.Where = &w
	}
	if len(f.Clauses) > 0 {
		out.Clauses = lo.Map(f.Clauses, func(c Filter, _ int) Filter { return c.clone() })
	}
	return out
}

// Validate validates the query and returns a validation error if one exists
func (q Query) Validate() error {
	if q.Collection == "" {
		return errors.New(errors.Config, "empty required field: 'collection'")
	}
	for _, p := range q.Select {
		if p.IsZero() {
			return errors.New(errors.Config, "empty field path in select clause")
		}
	}
	if err := q.Filter.Validate(); err != nil {
		return err
	}
	if q.Search != nil {
		if err := q.Search.Validate(); err != nil {
			return err
		}
	}
	if q.Rerank != nil {
		if q.Search == nil {
			return errors.New(errors.Config, "rerank requires an active search clause")
		}
		if q.GroupBy != nil {
			return errors.New(errors.Config, "rerank is unsupported together with groupBy")
		}
		if q.Rerank.Query == "" || q.Rerank.Property == "" {
			return errors.New(errors.Config, "rerank requires both a query and a property")
		}
	}
	if q.SpellCheck {
		if q.Search == nil {
			return errors.New(errors.Config, "spellCheck requires an active search clause")
		}
		if q.Search.vectorBased() {
			return errors.New(errors.Config, "spellCheck is unsupported with '%s' search", q.Search.Kind)
		}
	}
	if q.GroupBy != nil {
		if q.GroupBy.Property == "" {
			return errors.New(errors.Config, "empty required field: 'groupBy.property'")
		}
		if q.GroupBy.MaxGroups < 0 {
			return errors.New(errors.Config, "groupBy maxGroups must not be negative")
		}
	}
	for _, ob := range q.OrderBy {
		if ob.Field == "" {
			return errors.New(errors.Config, "empty required field: 'orderBy.field'")
		}
		if ob.Direction != ASC && ob.Direction != DESC {
			return errors.New(errors.Config, "unknown sort direction: '%s'", ob.Direction)
		}
	}
	if q.Limit != nil && *q.Limit < 0 {
		return errors.New(errors.Config, "limit must not be negative")
	}
	if q.Offset != nil && *q.Offset < 0 {
		return errors.New(errors.Config, "offset must not be negative")
	}
	if q.Generate != nil {
		if err := q.Generate.Validate(); err != nil {
			return err
		}
		if q.Aggregation != nil {
			return errors.New(errors.Config, "generate is unsupported together with aggregation")
		}
	}
	if q.Aggregation != nil {
		if err := q.Aggregation.Validate(); err != nil {
			return err
		}
	}
	return nil
}
