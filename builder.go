package seekly

import (
	"context"

	"github.com/samber/lo"
	"github.com/seekly/seekly-go/errors"
)

// Builder accumulates query clauses through chainable methods. Every method
// returns a new Builder over a cloned Query - the receiver is never mutated,
// so a partially built query can be retained as a template and specialized
// along independent chains.
//
// Structural validation happens as clauses are attached; the first invalid
// clause poisons the chain and surfaces from Query or Execute.
type Builder struct {
	query  Query
	err    error
	client *Client
}

// Collection starts a new query against the given collection
func Collection(name string) *Builder {
	b := &Builder{query: Query{Collection: name}}
	if name == "" {
		b.err = errors.New(errors.Config, "empty required field: 'collection'")
	}
	return b
}

// fork clones the builder so the prior value stays untouched
func (b *Builder) fork() *Builder {
	return &Builder{query: b.query.Clone(), err: b.err, client: b.client}
}

// fail marks the chain with its first configuration error
func (b *Builder) fail(err error) *Builder {
	next := b.fork()
	if next.err == nil {
		next.err = err
	}
	return next
}

// Select adds field paths to return. Paths use dot notation; numeric segments
// address array elements (details.dimensions.0.width).
func (b *Builder) Select(fields ...string) *Builder {
	if b.err != nil {
		return b
	}
	paths, err := ParsePaths(fields...)
	if err != nil {
		return b.fail(err)
	}
	next := b.fork()
	next.query.Select = append(next.query.Select, paths...)
	return next
}

// Where attaches a predicate tree built from the operator constructors
// (Equal, GreaterThan, And, Or, ...). Repeated calls are joined with And.
func (b *Builder) Where(filter Filter) *Builder {
	if b.err != nil {
		return b
	}
	if err := filter.Validate(); err != nil {
		return b.fail(err)
	}
	next := b.fork()
	if next.query.Filter.IsZero() {
		next.query.Filter = filter
	} else {
		next.query.Filter = And(next.query.Filter, filter)
	}
	return next
}

// WhereMap attaches a filter from the flat object-literal shorthand; it
// normalizes to the same predicate tree as the constructor form.
func (b *Builder) WhereMap(shorthand map[string]any) *Builder {
	if b.err != nil {
		return b
	}
	filter, err := FilterFrom(shorthand)
	if err != nil {
		return b.fail(err)
	}
	if filter.IsZero() {
		return b.fork()
	}
	return b.Where(filter)
}

// setSearch attaches a search variant, rejecting a second variant
func (b *Builder) setSearch(s Search) *Builder {
	if b.err != nil {
		return b
	}
	if b.query.Search != nil {
		return b.fail(errors.New(errors.Config, "search variant already set: '%s'", b.query.Search.Kind))
	}
	if err := s.Validate(); err != nil {
		return b.fail(err)
	}
	next := b.fork()
	next.query.Search = &s
	return next
}

// About attaches a semantic concept search. An optional certainty sets the
// minimum certainty threshold.
func (b *Builder) About(concept string, certainty ...float64) *Builder {
	about := &AboutSearch{Concept: concept}
	if len(certainty) > 0 {
		about.Certainty = lo.ToPtr(certainty[0])
	}
	return b.setSearch(Search{Kind: KindAbout, About: about})
}

// Match attaches a keyword search, optionally restricted to the given properties
func (b *Builder) Match(text string, properties ...string) *Builder {
	return b.setSearch(Search{Kind: KindMatch, Match: &MatchSearch{Text: text, Properties: properties}})
}

// FindOption configures a hybrid search
type FindOption func(*FindSearch)

// WithFusion selects the hybrid fusion algorithm
func WithFusion(fusion FusionType) FindOption {
	return func(f *FindSearch) {
		f.Fusion = fusion
	}
}

// WithPropertyWeights boosts individual properties in the keyword pass
func WithPropertyWeights(weights map[string]float64) FindOption {
	return func(f *FindSearch) {
		f.Weights = weights
	}
}

// Find attaches a hybrid search fusing keyword and semantic ranking; alpha
// weighs semantic (1) against keyword (0).
func (b *Builder) Find(text string, alpha float64, opts ...FindOption) *Builder {
	find := &FindSearch{Text: text, Alpha: alpha}
	for _, opt := range opts {
		opt(find)
	}
	return b.setSearch(Search{Kind: KindFind, Find: find})
}

// NearVector attaches a raw vector proximity search with a maximum distance threshold
func (b *Builder) NearVector(vector []float32, distance float64) *Builder {
	return b.setSearch(Search{Kind: KindNearVector, NearVector: &NearVectorSearch{
		Vector:   vector,
		Distance: lo.ToPtr(distance),
	}})
}

// NearRecordVector attaches a vector proximity search seeded by the stored
// vector of an existing record
func (b *Builder) NearRecordVector(sourceID string, property string, distance float64) *Builder {
	return b.setSearch(Search{Kind: KindNearVector, NearVector: &NearVectorSearch{
		SourceID: sourceID,
		Property: property,
		Distance: lo.ToPtr(distance),
	}})
}

// Similar attaches a record-similarity search seeded by an existing record,
// with an optional maximum distance threshold
func (b *Builder) Similar(sourceID string, distance ...float64) *Builder {
	similar := &SimilarSearch{SourceID: sourceID}
	if len(distance) > 0 {
		similar.Distance = lo.ToPtr(distance[0])
	}
	return b.setSearch(Search{Kind: KindSimilar, Similar: similar})
}

// Rerank re-scores search results against the query on a single property.
// Requires an active search clause and is unsupported together with GroupBy.
func (b *Builder) Rerank(query string, property string) *Builder {
	if b.err != nil {
		return b
	}
	if b.query.Search == nil {
		return b.fail(errors.New(errors.Config, "rerank requires an active search clause"))
	}
	if b.query.GroupBy != nil {
		return b.fail(errors.New(errors.Config, "rerank is unsupported together with groupBy"))
	}
	if query == "" || property == "" {
		return b.fail(errors.New(errors.Config, "rerank requires both a query and a property"))
	}
	next := b.fork()
	next.query.Rerank = &Rerank{Query: query, Property: property}
	return next
}

// SpellCheck requests backend-side correction metadata for the search text.
// Requires an active text-based search clause.
func (b *Builder) SpellCheck() *Builder {
	if b.err != nil {
		return b
	}
	if b.query.Search == nil {
		return b.fail(errors.New(errors.Config, "spellCheck requires an active search clause"))
	}
	if b.query.Search.vectorBased() {
		return b.fail(errors.New(errors.Config, "spellCheck is unsupported with '%s' search", b.query.Search.Kind))
	}
	next := b.fork()
	next.query.SpellCheck = true
	return next
}

// GroupBy groups results by a property, capped at maxGroups groups
func (b *Builder) GroupBy(property string, maxGroups int) *Builder {
	if b.err != nil {
		return b
	}
	if property == "" {
		return b.fail(errors.New(errors.Config, "empty required field: 'groupBy.property'"))
	}
	if maxGroups < 0 {
		return b.fail(errors.New(errors.Config, "groupBy maxGroups must not be negative"))
	}
	if b.query.Rerank != nil {
		return b.fail(errors.New(errors.Config, "rerank is unsupported together with groupBy"))
	}
	next := b.fork()
	next.query.GroupBy = &GroupBy{Property: property, MaxGroups: maxGroups}
	return next
}

// OrderBy appends a sort directive; earlier directives take priority on ties
func (b *Builder) OrderBy(field string, direction OrderByDirection) *Builder {
	if b.err != nil {
		return b
	}
	if field == "" {
		return b.fail(errors.New(errors.Config, "empty required field: 'orderBy.field'"))
	}
	if direction != ASC && direction != DESC {
		return b.fail(errors.New(errors.Config, "unknown sort direction: '%s'", direction))
	}
	next := b.fork()
	next.query.OrderBy = append(next.query.OrderBy, OrderBy{Field: field, Direction: direction})
	return next
}

// Limit caps the number of records returned
func (b *Builder) Limit(limit int) *Builder {
	if b.err != nil {
		return b
	}
	if limit < 0 {
		return b.fail(errors.New(errors.Config, "limit must not be negative"))
	}
	next := b.fork()
	next.query.Limit = lo.ToPtr(limit)
	return next
}

// Offset skips records before the first returned one. Offset without limit is
// legal and bounded only by the backend maximum.
func (b *Builder) Offset(offset int) *Builder {
	if b.err != nil {
		return b
	}
	if offset < 0 {
		return b.fail(errors.New(errors.Config, "offset must not be negative"))
	}
	next := b.fork()
	next.query.Offset = lo.ToPtr(offset)
	return next
}

// setGenerate attaches a generation directive, rejecting a second one
func (b *Builder) setGenerate(g Generate) *Builder {
	if b.err != nil {
		return b
	}
	if b.query.Generate != nil {
		return b.fail(errors.New(errors.Config, "generate directive already set: '%s'", b.query.Generate.Kind))
	}
	if err := g.Validate(); err != nil {
		return b.fail(err)
	}
	next := b.fork()
	next.query.Generate = &g
	return next
}

// GenerateFromOne generates one result per record from a prompt template whose
// placeholders are resolved against each records selected fields
func (b *Builder) GenerateFromOne(prompt string, options ...ModelOptions) *Builder {
	return b.setGenerate(Generate{Kind: KindFromOne, FromOne: &FromOne{Prompt: prompt, Options: firstOption(options)}})
}

// GenerateFromOneMessages generates one result per record from a verbatim message list
func (b *Builder) GenerateFromOneMessages(messages []Message, options ...ModelOptions) *Builder {
	return b.setGenerate(Generate{Kind: KindFromOne, FromOne: &FromOne{Messages: messages, Options: firstOption(options)}})
}

// GenerateFromMany synthesizes one result from the full candidate set; the
// property list restricts which selected fields feed the synthesis
func (b *Builder) GenerateFromMany(task string, properties []string, options ...ModelOptions) *Builder {
	return b.setGenerate(Generate{Kind: KindFromMany, FromMany: &FromMany{Task: task, Properties: properties, Options: firstOption(options)}})
}

// GenerateFromManyMessages synthesizes one result from a verbatim message list
func (b *Builder) GenerateFromManyMessages(messages []Message, options ...ModelOptions) *Builder {
	return b.setGenerate(Generate{Kind: KindFromMany, FromMany: &FromMany{Messages: messages, Options: firstOption(options)}})
}

// Ask answers a question from the candidate set, returning the answer and the
// source records that contributed to it
func (b *Builder) Ask(question string, options ...ModelOptions) *Builder {
	return b.setGenerate(Generate{Kind: KindAsk, Ask: &Ask{Question: question, Options: firstOption(options)}})
}

// AggregateBy turns the query into a grouped statistical summary
func (b *Builder) AggregateBy(aggregates ...Aggregate) *Builder {
	if b.err != nil {
		return b
	}
	agg := Aggregation{Aggregates: aggregates}
	if err := agg.Validate(); err != nil {
		return b.fail(err)
	}
	if b.query.Generate != nil {
		return b.fail(errors.New(errors.Config, "generate is unsupported together with aggregation"))
	}
	next := b.fork()
	next.query.Aggregation = &agg
	return next
}

// Query finalizes the builder and returns the accumulated clause model
func (b *Builder) Query() (Query, error) {
	if b.err != nil {
		return Query{}, b.err
	}
	q := b.query.Clone()
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Execute compiles and executes the query through the bound client
func (b *Builder) Execute(ctx context.Context) (*Result, error) {
	if b.client == nil {
		return nil, errors.New(errors.Config, "builder is not bound to a client - use Client.Collection")
	}
	return b.client.Execute(ctx, b)
}

func firstOption(options []ModelOptions) ModelOptions {
	if len(options) > 0 {
		return options[0]
	}
	return ModelOptions{}
}
