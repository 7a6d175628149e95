package schema

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// ErrInvalidSchema is matched by every schema configuration error
var ErrInvalidSchema = errors.New("invalid schema")

// InvalidSchemaError describes a problem with a schema table
type InvalidSchemaError struct {
	Message string // message name, if known
	Field   string // field key, if known
	Reason  string
}

func (e *InvalidSchemaError) Error() string {
	switch {
	case e.Message != "" && e.Field != "":
		return fmt.Sprintf("invalid schema: %s.%s: %s", e.Message, e.Field, e.Reason)
	case e.Message != "":
		return fmt.Sprintf("invalid schema: %s: %s", e.Message, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("invalid schema: field %s: %s", e.Field, e.Reason)
	}
	return "invalid schema: " + e.Reason
}

func (e *InvalidSchemaError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// Registry is an immutable table of message schemas keyed by tag
type Registry struct {
	version int
	byTag   [256]*MessageSchema
	byName  map[string]*MessageSchema
	tags    []byte
}

// NewRegistry validates the schemas and returns a Registry
func NewRegistry(version int, schemas ...*MessageSchema) (*Registry, error) {
	r := &Registry{
		version: version,
		byName:  make(map[string]*MessageSchema, len(schemas)),
	}
	for _, ms := range schemas {
		if ms.Name == "" {
			return nil, &InvalidSchemaError{Reason: fmt.Sprintf("tag %#02x: empty name", ms.Tag)}
		}
		if prev := r.byTag[ms.Tag]; prev != nil {
			return nil, &InvalidSchemaError{
				Message: ms.Name,
				Reason:  fmt.Sprintf("tag %#02x already used by %s", ms.Tag, prev.Name),
			}
		}
		if _, exists := r.byName[ms.Name]; exists {
			return nil, &InvalidSchemaError{Message: ms.Name, Reason: "duplicate name"}
		}
		if err := Validate(ms); err != nil {
			return nil, err
		}
		r.byTag[ms.Tag] = ms
		r.byName[ms.Name] = ms
		r.tags = append(r.tags, ms.Tag)
	}
	sort.Slice(r.tags, func(i, j int) bool { return r.tags[i] < r.tags[j] })
	return r, nil
}

// MustNewRegistry is like NewRegistry, but panics on error
func MustNewRegistry(version int, schemas ...*MessageSchema) *Registry {
	r, err := NewRegistry(version, schemas...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the schema for a tag. Unknown tags return false.
func (r *Registry) Lookup(tag byte) (*MessageSchema, bool) {
	ms := r.byTag[tag]
	return ms, ms != nil
}

// ByName returns the schema with given message name
func (r *Registry) ByName(name string) (*MessageSchema, bool) {
	ms, ok := r.byName[name]
	return ms, ok
}

// Tags returns all registered tags in ascending order
func (r *Registry) Tags() []byte {
	return append([]byte(nil), r.tags...)
}

// Len returns the number of message types
func (r *Registry) Len() int {
	return len(r.tags)
}

// Version returns the table version
func (r *Registry) Version() int {
	return r.version
}

// Validate checks a message schema for configuration errors
func Validate(ms *MessageSchema) error {
	if ms.Fields == nil {
		return nil
	}
	if err := validateFields(ms.Fields); err != nil {
		var ise *InvalidSchemaError
		if errors.As(err, &ise) && ise.Message == "" {
			ise.Message = ms.Name
		}
		return err
	}
	return nil
}

func validateFields(fields FieldSchema) error {
	seen := make(map[string]FieldType, len(fields))
	for _, f := range fields {
		if f.Key == "" {
			return &InvalidSchemaError{Reason: "empty field key"}
		}
		if _, exists := seen[f.Key]; exists {
			return &InvalidSchemaError{Field: f.Key, Reason: "duplicate key"}
		}
		if err := validateType(f.Key, f.Type, seen); err != nil {
			return err
		}
		seen[f.Key] = f.Type
	}
	return nil
}

// validateType checks a single field type. Earlier fields of the same list are
// passed in so that conditional fields can check their bitmask reference.
func validateType(key string, ft FieldType, earlier map[string]FieldType) error {
	switch t := ft.(type) {
	case Int8, UInt8, Int16, UInt16, Int32, UInt32, Float32, Float64, Bool, CString, Static:
		return nil
	case BitGroup:
		if t.HighKey == "" || t.LowKey == "" || t.HighKey == t.LowKey {
			return &InvalidSchemaError{Field: key, Reason: "bit group needs two distinct keys"}
		}
	case Bitmask:
		if t.Bytes < 1 {
			return &InvalidSchemaError{Field: key, Reason: "bitmask needs at least one byte"}
		}
	case Collection:
		return validateFields(t.Fields)
	case ConditionalCollection:
		if len(t.Fields) == 0 {
			return &InvalidSchemaError{Field: key, Reason: "conditional collection needs a sentinel field"}
		}
		return validateFields(t.Fields)
	case Conditional:
		bm, exists := earlier[t.BitmaskKey]
		if !exists {
			return &InvalidSchemaError{
				Field:  key,
				Reason: fmt.Sprintf("bitmask %q must be declared before the conditional", t.BitmaskKey),
			}
		}
		if _, ok := bm.(Bitmask); !ok {
			return &InvalidSchemaError{
				Field:  key,
				Reason: fmt.Sprintf("field %q is not a bitmask", t.BitmaskKey),
			}
		}
		var present FieldSchema
		for _, f := range t.Fields {
			if f != nil {
				present = append(present, *f)
			}
		}
		return validateFields(present)
	default:
		return &InvalidSchemaError{Field: key, Reason: fmt.Sprintf("unsupported field type %T", ft)}
	}
	return nil
}
