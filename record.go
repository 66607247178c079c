package seekly

import (
	"encoding/json"

	"github.com/seekly/seekly-go/errors"
	"github.com/seekly/seekly-go/util"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Record is a single payload record returned by the backend. It is backed by
// raw json and supports dot-notation field access (numeric segments address
// array elements).
type Record struct {
	result gjson.Result
}

// UnmarshalJSON satisfies the json Unmarshaler interface
func (r *Record) UnmarshalJSON(bytes []byte) error {
	rec, err := NewRecordFromBytes(bytes)
	if err != nil {
		return err
	}
	*r = *rec
	return nil
}

// MarshalJSON satisfies the json Marshaler interface
func (r *Record) MarshalJSON() ([]byte, error) {
	return r.Bytes(), nil
}

// NewRecord creates a new empty record
func NewRecord() *Record {
	return &Record{result: gjson.Parse("{}")}
}

// NewRecordFromBytes creates a new record from the given json bytes
func NewRecordFromBytes(bits []byte) (*Record, error) {
	if !gjson.ValidBytes(bits) {
		return nil, errors.New(errors.Validation, "invalid json: %s", string(bits))
	}
	r := &Record{result: gjson.ParseBytes(bits)}
	if !r.Valid() {
		return nil, errors.New(errors.Validation, "invalid record")
	}
	return r, nil
}

// NewRecordFrom creates a new record from the given value - the value must be json compatible
func NewRecordFrom(value any) (*Record, error) {
	bits, err := json.Marshal(value)
	if err != nil {
		return nil, errors.New(errors.Validation, "failed to json encode value: %#v", value)
	}
	return NewRecordFromBytes(bits)
}

// Valid returns whether the record is a json object
func (r *Record) Valid() bool {
	return gjson.ValidBytes(r.Bytes()) && !r.result.IsArray()
}

// String returns the record as a json string
func (r *Record) String() string {
	return r.result.Raw
}

// Bytes returns the record as json bytes
func (r *Record) Bytes() []byte {
	return []byte(r.result.Raw)
}

// Value returns the record as a map
func (r *Record) Value() map[string]any {
	return cast.ToStringMap(r.result.Value())
}

// Clone allocates a new record with identical values
func (r *Record) Clone() *Record {
	return &Record{result: gjson.Parse(r.result.Raw)}
}

// Get gets a field on the record with dot notation support
func (r *Record) Get(field string) any {
	return r.result.Get(field).Value()
}

// GetString gets a string field value on the record
func (r *Record) GetString(field string) string {
	return r.result.Get(field).String()
}

// GetFloat gets a float field value on the record
func (r *Record) GetFloat(field string) float64 {
	return r.result.Get(field).Float()
}

// Exists returns whether the field is present on the record
func (r *Record) Exists(field string) bool {
	return r.result.Get(field).Exists()
}

// Set sets a field on the record and returns a new record - the receiver is unchanged
func (r *Record) Set(field string, value any) (*Record, error) {
	raw, err := sjson.Set(r.result.Raw, field, value)
	if err != nil {
		return nil, errors.Wrap(err, errors.Validation, "failed to set field '%s'", field)
	}
	return &Record{result: gjson.Parse(raw)}, nil
}

// Decode decodes the record into the given output based on json tags
func (r *Record) Decode(output any) error {
	return util.Decode(r.Value(), output)
}
