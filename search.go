package seekly

import (
	"github.com/seekly/seekly-go/errors"
)

// SearchKind discriminates the mutually exclusive search variants
type SearchKind string

const (
	// KindAbout is a semantic concept search
	KindAbout SearchKind = "about"
	// KindMatch is a keyword text search
	KindMatch SearchKind = "match"
	// KindFind is a hybrid keyword/semantic search
	KindFind SearchKind = "find"
	// KindNearVector is a raw vector proximity search
	KindNearVector SearchKind = "near_vector"
	// KindSimilar is a record-similarity search seeded by an existing record
	KindSimilar SearchKind = "similar"
)

// FusionType selects how keyword and semantic rankings are fused in a hybrid search
type FusionType string

const (
	// FusionRanked fuses by reciprocal rank
	FusionRanked FusionType = "ranked"
	// FusionRelativeScore fuses by normalized relative score
	FusionRelativeScore FusionType = "relative_score"
)

// AboutSearch ranks records by semantic proximity to a concept
type AboutSearch struct {
	// Concept is the natural language concept to search for
	Concept string `json:"concept"`
	// Certainty is an optional minimum certainty threshold in [0,1]
	Certainty *float64 `json:"certainty,omitempty"`
}

// MatchSearch ranks records by keyword relevance
type MatchSearch struct {
	// Text is the keyword query
	Text string `json:"text"`
	// Properties optionally restricts which fields are matched against
	Properties []string `json:"properties,omitempty"`
}

// FindSearch ranks records by a fused keyword + semantic score
type FindSearch struct {
	// Text is the query text
	Text string `json:"text"`
	// Alpha weighs semantic (1) against keyword (0) ranking
	Alpha float64 `json:"alpha"`
	// Fusion selects the fusion algorithm
	Fusion FusionType `json:"fusion,omitempty"`
	// Weights optionally boosts individual properties in the keyword pass
	Weights map[string]float64 `json:"weights,omitempty"`
}

// NearVectorSearch ranks records by proximity to a vector, either supplied
// directly or read from a source records property
type NearVectorSearch struct {
	// Vector is the query vector (mutually exclusive with SourceID)
	Vector []float32 `json:"vector,omitempty"`
	// SourceID identifies a record whose stored vector seeds the search
	SourceID string `json:"sourceId,omitempty"`
	// Property is the vector-valued property on the source record
	Property string `json:"property,omitempty"`
	// Distance is the maximum distance threshold
	Distance *float64 `json:"distance,omitempty"`
}

// SimilarSearch ranks records by similarity to an existing record
type SimilarSearch struct {
	// SourceID identifies the seed record
	SourceID string `json:"sourceId"`
	// Distance is an optional maximum distance threshold
	Distance *float64 `json:"distance,omitempty"`
}

// Search is a tagged union over the search variants. Exactly one variant is
// set and it matches Kind.
type Search struct {
	Kind       SearchKind        `json:"kind"`
	About      *AboutSearch      `json:"about,omitempty"`
	Match      *MatchSearch      `json:"match,omitempty"`
	Find       *FindSearch       `json:"find,omitempty"`
	NearVector *NearVectorSearch `json:"nearVector,omitempty"`
	Similar    *SimilarSearch    `json:"similar,omitempty"`
}

// variantCount returns how many variants are populated
func (s Search) variantCount() int {
	count := 0
	if s.About != nil {
		count++
	}
	if s.Match != nil {
		count++
	}
	if s.Find != nil {
		count++
	}
	if s.NearVector != nil {
		count++
	}
	if s.Similar != nil {
		count++
	}
	return count
}

// Validate validates the search directive and returns a validation error if one exists
func (s Search) Validate() error {
	if s.variantCount() != 1 {
		return errors.New(errors.Config, "search must carry exactly one variant, got %d", s.variantCount())
	}
	switch s.Kind {
	case KindAbout:
		if s.About == nil {
			return errors.New(errors.Config, "search kind '%s' missing its variant", s.Kind)
		}
		if s.About.Concept == "" {
			return errors.New(errors.Config, "empty required field: 'search.about.concept'")
		}
		if s.About.Certainty != nil && (*s.About.Certainty < 0 || *s.About.Certainty > 1) {
			return errors.New(errors.Config, "certainty must be within [0,1]: %v", *s.About.Certainty)
		}
	case KindMatch:
		if s.Match == nil {
			return errors.New(errors.Config, "search kind '%s' missing its variant", s.Kind)
		}
		if s.Match.Text == "" {
			return errors.New(errors.Config, "empty required field: 'search.match.text'")
		}
	case KindFind:
		if s.Find == nil {
			return errors.New(errors.Config, "search kind '%s' missing its variant", s.Kind)
		}
		if s.Find.Text == "" {
			return errors.New(errors.Config, "empty required field: 'search.find.text'")
		}
		if s.Find.Alpha < 0 || s.Find.Alpha > 1 {
			return errors.New(errors.Config, "alpha must be within [0,1]: %v", s.Find.Alpha)
		}
		if s.Find.Fusion != "" && s.Find.Fusion != FusionRanked && s.Find.Fusion != FusionRelativeScore {
			return errors.New(errors.Config, "unknown fusion type: '%s'", s.Find.Fusion)
		}
	case KindNearVector:
		if s.NearVector == nil {
			return errors.New(errors.Config, "search kind '%s' missing its variant", s.Kind)
		}
		if len(s.NearVector.Vector) == 0 && s.NearVector.SourceID == "" {
			return errors.New(errors.Config, "nearVector requires a vector or a source record id")
		}
		if len(s.NearVector.Vector) > 0 && s.NearVector.SourceID != "" {
			return errors.New(errors.Config, "nearVector accepts a vector or a source record id, not both")
		}
		if s.NearVector.SourceID != "" && s.NearVector.Property == "" {
			return errors.New(errors.Config, "nearVector by source record requires a vector property")
		}
	case KindSimilar:
		if s.Similar == nil {
			return errors.New(errors.Config, "search kind '%s' missing its variant", s.Kind)
		}
		if s.Similar.SourceID == "" {
			return errors.New(errors.Config, "empty required field: 'search.similar.sourceId'")
		}
	default:
		return errors.New(errors.Config, "unknown search kind: '%s'", s.Kind)
	}
	return nil
}

// vectorBased reports whether the variant operates on raw vector space, where
// backend spell correction is unsupported
func (s Search) vectorBased() bool {
	return s.Kind == KindNearVector || s.Kind == KindSimilar
}
