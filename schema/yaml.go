package schema

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

//go:embed default.yaml
var defaultYAML []byte

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the built-in tracker message table
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := LoadYAML(defaultYAML)
		if err != nil {
			panic(fmt.Sprintf("BUG: default schema table: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// DefaultYAML returns the YAML source of the built-in table
func DefaultYAML() []byte {
	return append([]byte(nil), defaultYAML...)
}

type yamlTable struct {
	Version  int           `yaml:"version"`
	Messages []yamlMessage `yaml:"messages"`
}

type yamlMessage struct {
	Tag    int           `yaml:"tag"`
	Name   string        `yaml:"name"`
	Repeat bool          `yaml:"repeat"`
	Fields []interface{} `yaml:"fields"` // omitted for opaque payloads
}

// LoadYAML parses a message table.
//
// Every field is a list of the form [key, type, params...]:
//
//	[playerId, uint8]
//	[team, static, 1]
//	[group, group, [team, squad]]       # top bit as team 1/2, low nibble
//	[leader, 1uint7, [isLeader, squad]] # top bit as bool, low nibble
//	[flags, bitmask, 2]
//	[status, conditional, flags, [[team, int8], null, [health, int8]]]
//	[position, collection, [[x, int16], [y, int16], [z, int16]]]
//	[vehicle, condCollection, [[vehicleId, int16], [seat, string]]]
func LoadYAML(contents []byte) (*Registry, error) {
	var table yamlTable
	if err := yaml.UnmarshalStrict(contents, &table); err != nil {
		return nil, errors.Wrap(err, "parse schema yaml")
	}
	schemas := make([]*MessageSchema, 0, len(table.Messages))
	for _, m := range table.Messages {
		if m.Tag < 0 || m.Tag > 255 {
			return nil, &InvalidSchemaError{Message: m.Name, Reason: fmt.Sprintf("tag %d out of range", m.Tag)}
		}
		ms := &MessageSchema{
			Tag:    byte(m.Tag),
			Name:   m.Name,
			Repeat: m.Repeat,
		}
		if m.Fields != nil {
			fields, err := parseFieldList(m.Fields)
			if err != nil {
				var ise *InvalidSchemaError
				if errors.As(err, &ise) {
					ise.Message = m.Name
				}
				return nil, err
			}
			ms.Fields = fields
		}
		schemas = append(schemas, ms)
	}
	return NewRegistry(table.Version, schemas...)
}

// LoadYAMLFile parses a message table from a file
func LoadYAMLFile(fpath string) (*Registry, error) {
	contents, err := os.ReadFile(fpath)
	if err != nil {
		return nil, errors.Wrap(err, "open schema file")
	}
	return LoadYAML(contents)
}

func parseFieldList(raw []interface{}) (FieldSchema, error) {
	fields := make(FieldSchema, 0, len(raw))
	for _, r := range raw {
		f, err := parseField(r)
		if err != nil {
			return nil, err
		}
		if f == nil {
			return nil, &InvalidSchemaError{Reason: "null field outside of a conditional"}
		}
		fields = append(fields, *f)
	}
	return fields, nil
}

func parseField(raw interface{}) (*Field, error) {
	if raw == nil {
		return nil, nil
	}
	parts, ok := raw.([]interface{})
	if !ok || len(parts) < 2 {
		return nil, &InvalidSchemaError{Reason: fmt.Sprintf("field must be a [key, type, ...] list, got %v", raw)}
	}
	key, ok := parts[0].(string)
	if !ok {
		return nil, &InvalidSchemaError{Reason: fmt.Sprintf("field key must be a string, got %v", parts[0])}
	}
	typeName, ok := parts[1].(string)
	if !ok {
		return nil, &InvalidSchemaError{Field: key, Reason: "field type must be a string"}
	}
	params := parts[2:]
	ft, err := parseType(key, typeName, params)
	if err != nil {
		return nil, err
	}
	return &Field{Key: key, Type: ft}, nil
}

var scalarTypes = map[string]FieldType{
	"int8":    Int8{},
	"uint8":   UInt8{},
	"int16":   Int16{},
	"uint16":  UInt16{},
	"int32":   Int32{},
	"uint32":  UInt32{},
	"float32": Float32{},
	"float64": Float64{},
	"bool":    Bool{},
	"string":  CString{},
}

func parseType(key, typeName string, params []interface{}) (FieldType, error) {
	bad := func(format string, args ...interface{}) error {
		return &InvalidSchemaError{Field: key, Reason: fmt.Sprintf(format, args...)}
	}
	if ft, ok := scalarTypes[typeName]; ok {
		if len(params) != 0 {
			return nil, bad("%s takes no parameters", typeName)
		}
		return ft, nil
	}
	switch typeName {
	case "static":
		if len(params) != 1 {
			return nil, bad("static needs exactly one value")
		}
		return Static{Value: params[0]}, nil
	case "1uint7", "group":
		if len(params) != 1 {
			return nil, bad("%s needs a [high, low] key pair", typeName)
		}
		pair, ok := params[0].([]interface{})
		if !ok || len(pair) != 2 {
			return nil, bad("%s needs a [high, low] key pair", typeName)
		}
		hi, ok1 := pair[0].(string)
		lo, ok2 := pair[1].(string)
		if !ok1 || !ok2 {
			return nil, bad("%s keys must be strings", typeName)
		}
		return BitGroup{HighKey: hi, LowKey: lo, Team: typeName == "group"}, nil
	case "bitmask":
		if len(params) != 1 {
			return nil, bad("bitmask needs a byte count")
		}
		n, ok := params[0].(int)
		if !ok {
			return nil, bad("bitmask byte count must be an integer")
		}
		return Bitmask{Bytes: n}, nil
	case "collection", "condCollection":
		if len(params) != 1 {
			return nil, bad("%s needs a field list", typeName)
		}
		list, ok := params[0].([]interface{})
		if !ok {
			return nil, bad("%s needs a field list", typeName)
		}
		sub, err := parseFieldList(list)
		if err != nil {
			return nil, err
		}
		if typeName == "collection" {
			return Collection{Fields: sub}, nil
		}
		return ConditionalCollection{Fields: sub}, nil
	case "conditional":
		if len(params) != 2 {
			return nil, bad("conditional needs a bitmask key and a field list")
		}
		bitmaskKey, ok := params[0].(string)
		if !ok {
			return nil, bad("conditional bitmask key must be a string")
		}
		list, ok := params[1].([]interface{})
		if !ok {
			return nil, bad("conditional needs a field list")
		}
		fields := make([]*Field, len(list))
		for i, r := range list {
			f, err := parseField(r)
			if err != nil {
				return nil, err
			}
			fields[i] = f
		}
		return Conditional{BitmaskKey: bitmaskKey, Fields: fields}, nil
	}
	return nil, bad("unknown field type %q", typeName)
}
