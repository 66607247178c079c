package seekly

import (
	"github.com/samber/lo"
	"github.com/seekly/seekly-go/errors"
	"github.com/seekly/seekly-go/util"
	"github.com/spf13/cast"
)

// Additional is per-record relevance metadata attached by search queries.
// Plain retrieval omits all of it.
type Additional struct {
	// Certainty is the backend certainty in [0,1] (semantic/hybrid search)
	Certainty *float64 `json:"certainty,omitempty"`
	// Distance is the vector distance (nearVector/similar search)
	Distance *float64 `json:"distance,omitempty"`
	// Score is the relevance score (keyword/hybrid search)
	Score *float64 `json:"score,omitempty"`
	// SpellCheck carries backend-side correction metadata when requested
	SpellCheck *SpellCheckResult `json:"spellCheck,omitempty"`
}

// SpellCheckResult is backend-side spelling correction metadata
type SpellCheckResult struct {
	// Original is the query text as submitted
	Original string `json:"original"`
	// Corrected is the corrected query text the backend searched with
	Corrected string `json:"corrected"`
}

// GeneratedResult is one generation outcome. For fromOne runs a failure
// generating for one record surfaces in that entry's Error without
// invalidating the others.
type GeneratedResult struct {
	// Result is the generated text
	Result string `json:"result"`
	// Error is the per-entry generation failure, if any
	Error string `json:"error,omitempty"`
}

// ResultRecord is one normalized payload record
type ResultRecord struct {
	// Record is the selected field payload
	Record *Record `json:"record"`
	// Additional is the per-record search metadata
	Additional Additional `json:"additional,omitempty"`
	// Generated is the per-record generation outcome (fromOne only),
	// positionally aligned with the payload
	Generated *GeneratedResult `json:"generated,omitempty"`
}

// ResultMeta carries result-set counts
type ResultMeta struct {
	// Count is the number of records returned
	Count int `json:"count"`
	// Total is the total number of matching records, when reported
	Total int `json:"total,omitempty"`
}

// AggregateGroup is one grouped statistical summary. Aggregate payloads are
// structurally distinct from record payloads and never forced into the record
// shape.
type AggregateGroup struct {
	// Key is the group key value
	Key any `json:"key"`
	// Count is the number of records in the group
	Count int `json:"count"`
	// Fields maps field name to per-function statistics
	Fields map[string]map[string]float64 `json:"fields,omitempty"`
}

// Answer is a question-answering outcome with its cited source records
type Answer struct {
	// Text is the answer text
	Text string `json:"text"`
	// Sources are the records that contributed to the answer
	Sources []*Record `json:"sources,omitempty"`
}

// Result is the uniform result envelope every query shape normalizes into
type Result struct {
	// Payload is the record sequence (empty for aggregate queries)
	Payload []ResultRecord `json:"payload,omitempty"`
	// Meta carries result-set counts when reported
	Meta *ResultMeta `json:"meta,omitempty"`
	// Generated is the single synthesis outcome (fromMany)
	Generated *GeneratedResult `json:"generated,omitempty"`
	// Answer is the question-answering outcome (ask)
	Answer *Answer `json:"answer,omitempty"`
	// Groups is the aggregate payload variant
	Groups []AggregateGroup `json:"groups,omitempty"`
	// Errors are backend-reported errors; their presence never aborts
	// normalization of the successfully returned portion
	Errors []EnvelopeError `json:"errors,omitempty"`
}

// Normalize maps a raw backend envelope into the uniform result envelope. The
// originating request determines which sections are expected; backend errors
// surface in Errors without discarding the rest of the envelope.
func Normalize(req *Request, envelope *RawEnvelope) (*Result, error) {
	if envelope == nil {
		return nil, errors.New(errors.Internal, "nil envelope")
	}
	result := &Result{
		Errors: append([]EnvelopeError(nil), envelope.Errors...),
	}
	if envelope.Meta != nil {
		meta := &ResultMeta{}
		if err := util.Decode(envelope.Meta, meta); err != nil {
			return nil, errors.Wrap(err, errors.Internal, "failed to decode meta section")
		}
		result.Meta = meta
	}
	if req.Kind == RequestAggregate {
		groups, err := normalizeGroups(envelope.Groups)
		if err != nil {
			return nil, err
		}
		result.Groups = groups
		return result, nil
	}
	for _, raw := range envelope.Records {
		rec, err := normalizeRecord(raw)
		if err != nil {
			result.Errors = append(result.Errors, EnvelopeError{Message: errors.Extract(err).Error()})
			continue
		}
		result.Payload = append(result.Payload, rec)
	}
	if req.Generate != nil {
		switch req.Generate.Kind {
		case KindFromOne:
			// every payload record owns exactly one generation slot, failed or not
			for i := range result.Payload {
				if result.Payload[i].Generated == nil {
					result.Payload[i].Generated = &GeneratedResult{}
				}
			}
		case KindFromMany:
			result.Generated = envelope.Generated
			if result.Generated == nil {
				result.Generated = &GeneratedResult{}
			}
		case KindAsk:
			answer := &Answer{}
			if envelope.Answer != nil {
				answer.Text = envelope.Answer.Text
				for _, raw := range envelope.Answer.Sources {
					rec, err := normalizeRecord(raw)
					if err != nil {
						result.Errors = append(result.Errors, EnvelopeError{Message: errors.Extract(err).Error()})
						continue
					}
					answer.Sources = append(answer.Sources, rec.Record)
				}
			}
			result.Answer = answer
		}
	}
	return result, nil
}

func normalizeRecord(raw RawRecord) (ResultRecord, error) {
	rec, err := NewRecordFrom(raw.Fields)
	if err != nil {
		return ResultRecord{}, errors.Wrap(err, errors.Internal, "malformed record in envelope")
	}
	out := ResultRecord{Record: rec, Generated: raw.Generated}
	if len(raw.Additional) > 0 {
		if err := util.Decode(raw.Additional, &out.Additional); err != nil {
			return ResultRecord{}, errors.Wrap(err, errors.Internal, "malformed record metadata")
		}
	}
	return out, nil
}

func normalizeGroups(raw []map[string]any) ([]AggregateGroup, error) {
	groups := make([]AggregateGroup, 0, len(raw))
	for _, g := range raw {
		group := AggregateGroup{
			Key:    g["key"],
			Count:  cast.ToInt(g["count"]),
			Fields: map[string]map[string]float64{},
		}
		fields := cast.ToStringMap(g["fields"])
		for field, stats := range fields {
			group.Fields[field] = lo.MapValues(cast.ToStringMap(stats), func(v any, _ string) float64 {
				return cast.ToFloat64(v)
			})
		}
		if len(group.Fields) == 0 {
			group.Fields = nil
		}
		groups = append(groups, group)
	}
	return groups, nil
}
