package seekly

import (
	"github.com/seekly/seekly-go/errors"
)

// AggregateFunction is a statistical function applied to a field within an aggregation
type AggregateFunction string

const (
	// AggregateSum calculates the sum
	AggregateSum AggregateFunction = "sum"
	// AggregateMin calculates the min
	AggregateMin AggregateFunction = "min"
	// AggregateMax calculates the max
	AggregateMax AggregateFunction = "max"
	// AggregateAvg calculates the avg
	AggregateAvg AggregateFunction = "avg"
	// AggregateCount calculates the count
	AggregateCount AggregateFunction = "count"
)

var aggregateFunctions = map[AggregateFunction]struct{}{
	AggregateSum: {}, AggregateMin: {}, AggregateMax: {}, AggregateAvg: {}, AggregateCount: {},
}

// Aggregate is an aggregate function applied to a field
type Aggregate struct {
	Function AggregateFunction `json:"function"`
	Field    string            `json:"field"`
}

// Aggregation turns a query into a grouped statistical summary instead of a
// record retrieval; results come back as group descriptors, not records.
type Aggregation struct {
	// Aggregates are the per-field statistics to compute
	Aggregates []Aggregate `json:"aggregates"`
}

// Validate validates the aggregation and returns a validation error if one exists
func (a Aggregation) Validate() error {
	if len(a.Aggregates) == 0 {
		return errors.New(errors.Config, "empty required field: 'aggregation.aggregates'")
	}
	for _, agg := range a.Aggregates {
		if agg.Field == "" {
			return errors.New(errors.Config, "empty required field: 'aggregation.aggregates.field'")
		}
		if _, ok := aggregateFunctions[agg.Function]; !ok {
			return errors.New(errors.Config, "unknown aggregate function: '%s'", agg.Function)
		}
	}
	return nil
}
