package seekly

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/seekly/seekly-go/errors"
)

// SegmentKind discriminates between property-name and array-index path segments
type SegmentKind string

const (
	// SegmentField is a property-name segment
	SegmentField SegmentKind = "field"
	// SegmentIndex is an array-index segment
	SegmentIndex SegmentKind = "index"
)

// Segment is a single element of a parsed field path
type Segment struct {
	// Kind is the segment kind
	Kind SegmentKind `json:"kind"`
	// Name is the property name (field segments only)
	Name string `json:"name,omitempty"`
	// Index is the array index (index segments only)
	Index int `json:"index,omitempty"`
}

// Path is a dot-notation field path parsed into typed segments.
// Numeric segments denote array-element access: a.b.0.c selects field c of the
// first element of array b.
type Path struct {
	raw      string
	segments []Segment
}

// ParsePath parses a dot-notation field path. Empty paths and paths with empty
// segments are rejected.
func ParsePath(raw string) (Path, error) {
	if raw == "" {
		return Path{}, errors.New(errors.Config, "empty field path")
	}
	parts := strings.Split(raw, ".")
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return Path{}, errors.New(errors.Config, "field path '%s' contains an empty segment", raw)
		}
		if idx, err := strconv.Atoi(part); err == nil {
			if idx < 0 {
				return Path{}, errors.New(errors.Config, "field path '%s' contains a negative index", raw)
			}
			segments = append(segments, Segment{Kind: SegmentIndex, Index: idx})
			continue
		}
		segments = append(segments, Segment{Kind: SegmentField, Name: part})
	}
	return Path{raw: raw, segments: segments}, nil
}

// MustParsePath parses a field path and panics on failure. Meant for static paths.
func MustParsePath(raw string) Path {
	p, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePaths parses a list of dot-notation field paths
func ParsePaths(raw ...string) ([]Path, error) {
	paths := make([]Path, 0, len(raw))
	for _, r := range raw {
		p, err := ParsePath(r)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// String returns the original dot-notation form of the path
func (p Path) String() string {
	return p.raw
}

// Segments returns the parsed segments of the path
func (p Path) Segments() []Segment {
	return p.segments
}

// IsZero returns true if the path is empty
func (p Path) IsZero() bool {
	return len(p.segments) == 0
}

// MarshalJSON marshals the path as its dot-notation string
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.raw)
}

// UnmarshalJSON parses the path from its dot-notation string
func (p *Path) UnmarshalJSON(bits []byte) error {
	var raw string
	if err := json.Unmarshal(bits, &raw); err != nil {
		return err
	}
	parsed, err := ParsePath(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
