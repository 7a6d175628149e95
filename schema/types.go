// Package schema describes the layout of tracker messages.
//
// A Registry maps the one byte message tag to a MessageSchema. Field layouts
// are built from a closed set of FieldType variants. Tables are normally
// loaded from YAML, see LoadYAML and Default.
package schema

import (
	"fmt"
	"strings"
)

// FieldType is one of the field type variants declared in this package.
// The set is closed: decoders switch on the concrete type.
type FieldType interface {
	fmt.Stringer
	fieldType()
}

type (
	Int8    struct{}
	UInt8   struct{}
	Int16   struct{}
	UInt16  struct{}
	Int32   struct{}
	UInt32  struct{}
	Float32 struct{}
	Float64 struct{}
	Bool    struct{}
	CString struct{}
)

// Static consumes no bytes and always decodes to Value
type Static struct {
	Value any
}

// BitGroup splits a single byte into the top bit and the low nibble.
// With Team set the top bit decodes to team number 1 or 2, otherwise to a bool.
type BitGroup struct {
	HighKey string
	LowKey  string
	Team    bool
}

// Collection decodes a nested record
type Collection struct {
	Fields FieldSchema
}

// Bitmask reads Bytes bytes and expands them to Bytes*8 bools
type Bitmask struct {
	Bytes int
}

// Conditional decodes the subset of Fields whose bit is set in the bitmask
// stored under BitmaskKey. Fields are paired position by position with the
// bits; a nil entry marks a bit that never carries data.
type Conditional struct {
	BitmaskKey string
	Fields     []*Field
}

// ConditionalCollection decodes the first field as a sentinel. A negative
// sentinel means no further data follows.
type ConditionalCollection struct {
	Fields FieldSchema
}

func (Int8) fieldType()                  {}
func (UInt8) fieldType()                 {}
func (Int16) fieldType()                 {}
func (UInt16) fieldType()                {}
func (Int32) fieldType()                 {}
func (UInt32) fieldType()                {}
func (Float32) fieldType()               {}
func (Float64) fieldType()               {}
func (Bool) fieldType()                  {}
func (CString) fieldType()               {}
func (Static) fieldType()                {}
func (BitGroup) fieldType()              {}
func (Collection) fieldType()            {}
func (Bitmask) fieldType()               {}
func (Conditional) fieldType()           {}
func (ConditionalCollection) fieldType() {}

func (Int8) String() string    { return "int8" }
func (UInt8) String() string   { return "uint8" }
func (Int16) String() string   { return "int16" }
func (UInt16) String() string  { return "uint16" }
func (Int32) String() string   { return "int32" }
func (UInt32) String() string  { return "uint32" }
func (Float32) String() string { return "float32" }
func (Float64) String() string { return "float64" }
func (Bool) String() string    { return "bool" }
func (CString) String() string { return "string" }

func (t Static) String() string {
	return fmt.Sprintf("static(%v)", t.Value)
}

func (t BitGroup) String() string {
	name := "1uint7"
	if t.Team {
		name = "group"
	}
	return fmt.Sprintf("%s(%s, %s)", name, t.HighKey, t.LowKey)
}

func (t Collection) String() string {
	return "collection" + t.Fields.String()
}

func (t Bitmask) String() string {
	return fmt.Sprintf("bitmask(%d)", t.Bytes)
}

func (t Conditional) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		if f == nil {
			parts[i] = "-"
			continue
		}
		parts[i] = f.String()
	}
	return fmt.Sprintf("conditional(%s)[%s]", t.BitmaskKey, strings.Join(parts, ", "))
}

func (t ConditionalCollection) String() string {
	return "condCollection" + t.Fields.String()
}

// Field is a single named field
type Field struct {
	Key  string
	Type FieldType
}

func (f Field) String() string {
	return fmt.Sprintf("%s: %v", f.Key, f.Type)
}

// FieldSchema is an ordered field list. Declaration order is decode order.
type FieldSchema []Field

func (fs FieldSchema) String() string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MessageSchema describes one message type
type MessageSchema struct {
	Tag    byte
	Name   string
	Fields FieldSchema // nil for opaque payloads
	Repeat bool        // decode records until the payload is exhausted
}

// Opaque reports whether the payload is passed on as raw bytes
func (m *MessageSchema) Opaque() bool {
	return m.Fields == nil
}
