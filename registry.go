package seekly

import (
	"sort"

	"github.com/seekly/seekly-go/errors"
	"github.com/seekly/seekly-go/util"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Registry supplies the known collection identifiers and their expected field
// shapes, for validation only. The client works with an empty registry,
// degrading to untyped field paths.
type Registry interface {
	// Known returns the known collection identifiers; empty means unrestricted
	Known() []string
	// ValidateQuery validates a clause model against the known field shapes
	ValidateQuery(q Query) error
}

// SchemaRegistry is a Registry backed by per-collection json schemas
type SchemaRegistry struct {
	raw      map[string]string
	compiled map[string]*gojsonschema.Schema
}

// NewSchemaRegistry builds a registry from collection name to json schema
// bytes. Schemas describe each collections field shapes; names are stored in
// canonical form, matching compiled requests.
func NewSchemaRegistry(schemas map[string][]byte) (*SchemaRegistry, error) {
	r := &SchemaRegistry{
		raw:      map[string]string{},
		compiled: map[string]*gojsonschema.Schema{},
	}
	for collection, bits := range schemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(bits))
		if err != nil {
			return nil, errors.Wrap(err, errors.Validation, "invalid schema for collection '%s'", collection)
		}
		collection = canonicalCollection(collection)
		r.raw[collection] = string(bits)
		r.compiled[collection] = schema
	}
	return r, nil
}

// NewSchemaRegistryFromYAML builds a registry from yaml schema definitions
func NewSchemaRegistryFromYAML(schemas map[string][]byte) (*SchemaRegistry, error) {
	converted := make(map[string][]byte, len(schemas))
	for collection, bits := range schemas {
		jsonBits, err := util.YAMLToJSON(bits)
		if err != nil {
			return nil, errors.Wrap(err, errors.Validation, "invalid yaml schema for collection '%s'", collection)
		}
		converted[collection] = jsonBits
	}
	return NewSchemaRegistry(converted)
}

// Known returns the known collection identifiers in sorted order
func (r *SchemaRegistry) Known() []string {
	known := make([]string, 0, len(r.raw))
	for collection := range r.raw {
		known = append(known, collection)
	}
	sort.Strings(known)
	return known
}

// ValidateQuery checks the target collection is known and every selected and
// filtered field path exists in the collections schema. Lookups use the
// canonical collection form, the same one compilation targets.
func (r *SchemaRegistry) ValidateQuery(q Query) error {
	if len(r.raw) == 0 {
		return nil
	}
	collection := canonicalCollection(q.Collection)
	raw, ok := r.raw[collection]
	if !ok {
		return errors.New(errors.Config, "unknown collection: '%s' must be one of: %v", collection, r.Known())
	}
	for _, p := range q.Select {
		if !schemaHasPath(raw, p) {
			return errors.New(errors.Config, "collection '%s' has no field '%s'", collection, p.String())
		}
	}
	return filterFieldsKnown(raw, collection, q.Filter)
}

// ValidateRecord validates a record against the collections schema
func (r *SchemaRegistry) ValidateRecord(collection string, record *Record) error {
	schema, ok := r.compiled[canonicalCollection(collection)]
	if !ok {
		return nil
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(record.Bytes()))
	if err != nil {
		return errors.Wrap(err, errors.Validation, "schema validation failed")
	}
	if !result.Valid() {
		return errors.New(errors.Validation, "record does not match schema for collection '%s': %v", collection, result.Errors())
	}
	return nil
}

func filterFieldsKnown(raw string, collection string, f Filter) error {
	if f.IsZero() {
		return nil
	}
	if f.Where != nil {
		p, err := ParsePath(f.Where.Field)
		if err != nil {
			return err
		}
		if !schemaHasPath(raw, p) {
			return errors.New(errors.Config, "collection '%s' has no field '%s'", collection, f.Where.Field)
		}
		return nil
	}
	for _, c := range f.Clauses {
		if err := filterFieldsKnown(raw, collection, c); err != nil {
			return err
		}
	}
	return nil
}

// schemaHasPath walks a json schema along a parsed field path: field segments
// descend through properties, index segments descend through items
func schemaHasPath(raw string, p Path) bool {
	node := gjson.Parse(raw)
	for _, seg := range p.Segments() {
		if seg.Kind == SegmentIndex {
			node = node.Get("items")
		} else {
			node = node.Get("properties." + seg.Name)
		}
		if !node.Exists() {
			return false
		}
	}
	return true
}
