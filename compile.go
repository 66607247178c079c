package seekly

import (
	"encoding/json"
	"strconv"

	"github.com/huandu/xstrings"
	"github.com/samber/lo"
	"github.com/seekly/seekly-go/errors"
)

// RequestKind is the wire-level request kind
type RequestKind string

const (
	// RequestGet retrieves records
	RequestGet RequestKind = "get"
	// RequestAggregate retrieves grouped statistical summaries
	RequestAggregate RequestKind = "aggregate"
)

// FilterStage marks when the filter applies relative to search ranking
type FilterStage string

// FilterStagePre restricts the candidate set before search ranking is
// computed. This ordering is part of the backend contract and is always
// encoded explicitly when a filter and a search coexist - filtering after
// ranking would change both result sets and scores.
const FilterStagePre FilterStage = "pre"

// SelectionNode is one node of the wire selection tree. Field nodes carry a
// property name; index nodes address a single array element.
type SelectionNode struct {
	// Field is the property name (field nodes only)
	Field string `json:"field,omitempty"`
	// Index is the array element (index nodes only)
	Index *int `json:"index,omitempty"`
	// Children are the nested selections beneath this node
	Children []SelectionNode `json:"children,omitempty"`
}

// WireGenerate is the wire form of a generation directive
type WireGenerate struct {
	Kind GenerateKind `json:"kind"`
	// Substitution marks whether prompt placeholders resolve server-side or
	// are passed through verbatim for the client
	Substitution Substitution `json:"substitution"`
	Prompt       string       `json:"prompt,omitempty"`
	Task         string       `json:"task,omitempty"`
	Question     string       `json:"question,omitempty"`
	Properties   []string     `json:"properties,omitempty"`
	Messages     []Message    `json:"messages,omitempty"`
	Options      ModelOptions `json:"options,omitempty"`
}

// Request is the wire-ready form of one clause model. Marshalling a Request is
// deterministic: compiling the same Query twice yields byte-identical json.
type Request struct {
	Kind       RequestKind     `json:"kind"`
	Collection string          `json:"collection"`
	Selection  []SelectionNode `json:"selection,omitempty"`
	Filter     *Filter         `json:"filter,omitempty"`
	// FilterStage is set to pre whenever Filter and Search coexist
	FilterStage FilterStage   `json:"filterStage,omitempty"`
	Search      *Search       `json:"search,omitempty"`
	Rerank      *Rerank       `json:"rerank,omitempty"`
	SpellCheck  bool          `json:"spellCheck,omitempty"`
	GroupBy     *GroupBy      `json:"groupBy,omitempty"`
	OrderBy     []OrderBy     `json:"orderBy,omitempty"`
	Limit       *int          `json:"limit,omitempty"`
	Offset      *int          `json:"offset,omitempty"`
	Generate    *WireGenerate `json:"generate,omitempty"`
	Aggregates  []Aggregate   `json:"aggregates,omitempty"`
}

// Bytes returns the request as wire json
func (r *Request) Bytes() []byte {
	bits, _ := json.Marshal(r)
	return bits
}

// Compile transforms a clause model into a wire request. Compilation is pure:
// it performs no I/O and the same query always compiles to the same bytes.
func Compile(q Query) (*Request, error) {
	if q.Search != nil && q.Search.variantCount() > 1 {
		// unreachable through the builder; kept as an internal invariant check
		// rather than silently picking a variant
		return nil, errors.New(errors.Internal, "internal invariant violation: %d search variants on one query", q.Search.variantCount())
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	req := &Request{
		Kind:       RequestGet,
		Collection: canonicalCollection(q.Collection),
		Selection:  buildSelectionTree(q.Select),
		Search:     q.Search,
		Rerank:     q.Rerank,
		SpellCheck: q.SpellCheck,
		GroupBy:    q.GroupBy,
		OrderBy:    append([]OrderBy(nil), q.OrderBy...),
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	if !q.Filter.IsZero() {
		filter := q.Filter.clone()
		req.Filter = &filter
		if q.Search != nil {
			req.FilterStage = FilterStagePre
		}
	}
	if q.Aggregation != nil {
		req.Kind = RequestAggregate
		req.Aggregates = append([]Aggregate(nil), q.Aggregation.Aggregates...)
	}
	if q.Generate != nil {
		req.Generate = compileGenerate(*q.Generate)
	}
	return req, nil
}

// canonicalCollection normalizes a collection identifier to its wire form.
// Registry lookups use the same form, so a lowercase alias resolves to the
// collection the compiled request targets.
func canonicalCollection(name string) string {
	return xstrings.FirstRuneToUpper(name)
}

func compileGenerate(g Generate) *WireGenerate {
	wire := &WireGenerate{
		Kind:         g.Kind,
		Substitution: g.substitution(),
	}
	switch g.Kind {
	case KindFromOne:
		wire.Prompt = g.FromOne.Prompt
		wire.Messages = g.FromOne.Messages
		wire.Options = g.FromOne.Options
	case KindFromMany:
		wire.Task = g.FromMany.Task
		wire.Properties = g.FromMany.Properties
		wire.Messages = g.FromMany.Messages
		wire.Options = g.FromMany.Options
	case KindAsk:
		// ask is a synthesis over the full candidate set whose placeholders
		// always resolve server-side
		wire.Question = g.Ask.Question
		wire.Options = g.Ask.Options
		wire.Substitution = SubstitutionServer
	}
	return wire
}

// buildSelectionTree expands dot-notation paths into the backends nested
// selection tree. Paths sharing a prefix merge into one branch; numeric
// segments become index nodes, preserved distinctly from property names.
func buildSelectionTree(paths []Path) []SelectionNode {
	var nodes []SelectionNode
	for _, p := range paths {
		nodes = mergeSegments(nodes, p.Segments())
	}
	return nodes
}

func mergeSegments(nodes []SelectionNode, segments []Segment) []SelectionNode {
	if len(segments) == 0 {
		return nodes
	}
	head, tail := segments[0], segments[1:]
	idx := lo.IndexOf(lo.Map(nodes, nodeKey), segmentKey(head))
	if idx < 0 {
		node := SelectionNode{}
		if head.Kind == SegmentIndex {
			node.Index = lo.ToPtr(head.Index)
		} else {
			node.Field = head.Name
		}
		nodes = append(nodes, node)
		idx = len(nodes) - 1
	}
	nodes[idx].Children = mergeSegments(nodes[idx].Children, tail)
	return nodes
}

func nodeKey(n SelectionNode, _ int) string {
	if n.Index != nil {
		return segmentKey(Segment{Kind: SegmentIndex, Index: *n.Index})
	}
	return segmentKey(Segment{Kind: SegmentField, Name: n.Field})
}

func segmentKey(s Segment) string {
	if s.Kind == SegmentIndex {
		return "#" + strconv.Itoa(s.Index)
	}
	return "." + s.Name
}

// BatchStrategy selects how a compiled batch travels to the backend
type BatchStrategy string

const (
	// BatchMultiplexed sends all member requests in one combined envelope
	BatchMultiplexed BatchStrategy = "multiplexed"
	// BatchIndependent sends each member request on its own
	BatchIndependent BatchStrategy = "independent"
)

// CompiledBatch is a set of compiled requests plus the strategy for sending
// them. Member order matches the input query order.
type CompiledBatch struct {
	Strategy BatchStrategy `json:"strategy"`
	Requests []*Request    `json:"requests"`
}

// CompileBatch compiles multiple independent clause models for one batched
// execution. When the transport supports multiplexed requests the batch
// compiles into one combined envelope, otherwise into independent requests;
// the executor stays agnostic either way.
func CompileBatch(queries []Query, multiplex bool) (*CompiledBatch, error) {
	requests := make([]*Request, 0, len(queries))
	for _, q := range queries {
		req, err := Compile(q)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	strategy := BatchIndependent
	if multiplex {
		strategy = BatchMultiplexed
	}
	return &CompiledBatch{Strategy: strategy, Requests: requests}, nil
}
