package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/yocto"
	"github.com/hupe1980/yocto/codec"
)

// Payload modes of a schema. Any other value names the record key whose
// string value becomes the payload.
const (
	PayloadLine = "line"
	PayloadNone = "none"
)

// Value types a field can declare.
const (
	TypeString = "string"
	TypeBytes  = "bytes"
	TypeInt    = "int"
	TypeLong   = "long"
	TypeUint   = "uint"
	TypeUlong  = "ulong"
	TypeBool   = "bool"
	TypeFloat  = "float"
)

// Schema maps JSON records to documents.
type Schema struct {
	Payload      string        `yaml:"payload"`
	Digest       string        `yaml:"digest"`
	Compression  string        `yaml:"compression"`
	DocsPerChunk int           `yaml:"docsPerChunk"`
	Fields       []FieldSchema `yaml:"fields"`
}

// FieldSchema declares one indexed field.
type FieldSchema struct {
	Name string `yaml:"name"`
	// Source is the record key, Name if empty.
	Source string `yaml:"source"`
	Index  string `yaml:"index"`
	Length string `yaml:"length"`
	Type   string `yaml:"type"`

	index  yocto.IndexOption
	length yocto.LengthOption
}

// LoadSchema reads, normalizes and validates a YAML schema file. Unknown
// keys are rejected.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	var s Schema
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return &s, nil
}

// Normalize fills defaults for everything left empty.
func (s *Schema) Normalize() {
	if s.Payload == "" {
		s.Payload = PayloadLine
	}
	if s.Digest == "" {
		s.Digest = "MD5"
	}
	if s.Compression == "" {
		s.Compression = "none"
	}
	if s.DocsPerChunk <= 0 {
		s.DocsPerChunk = 64
	}
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Source == "" {
			f.Source = f.Name
		}
		if f.Type == "" {
			f.Type = TypeString
		}
		if f.Index == "" {
			f.Index = yocto.Filterable.String()
		}
		if f.Length == "" {
			f.Length = yocto.Variable.String()
			if fixedWidth(f.Type) {
				f.Length = yocto.Fixed.String()
			}
		}
	}
}

func fixedWidth(typ string) bool {
	switch typ {
	case TypeInt, TypeLong, TypeUint, TypeUlong, TypeBool, TypeFloat:
		return true
	default:
		return false
	}
}

// Validate checks option names and field uniqueness. It expects a
// normalized schema.
func (s *Schema) Validate() error {
	if _, err := yocto.ParseCompression(s.Compression); err != nil {
		return err
	}
	seen := make(map[string]bool, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field %d has no name", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("field %q declared twice", f.Name)
		}
		seen[f.Name] = true

		var err error
		if f.index, err = yocto.ParseIndexOption(f.Index); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		if f.length, err = yocto.ParseLengthOption(f.Length); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		switch f.Type {
		case TypeString, TypeBytes, TypeInt, TypeLong, TypeUint, TypeUlong, TypeBool, TypeFloat:
		default:
			return fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
		}
	}
	return nil
}

// Field returns the declaration of name.
func (s *Schema) Field(name string) (*FieldSchema, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// Options returns the builder options the schema selects.
func (s *Schema) Options() ([]yocto.Option, error) {
	c, err := yocto.ParseCompression(s.Compression)
	if err != nil {
		return nil, err
	}
	return []yocto.Option{
		yocto.WithDigest(s.Digest),
		yocto.WithPayloadCompression(c, s.DocsPerChunk),
	}, nil
}

// Document converts one record. Missing keys, null and empty arrays leave
// the field out; arrays supply several values.
func (s *Schema) Document(rec codec.Record) (*yocto.Document, error) {
	doc := yocto.NewDocument()
	for i := range s.Fields {
		f := &s.Fields[i]
		raw, ok := rec.Fields[f.Source]
		if !ok || raw == nil {
			continue
		}
		items, isArray := raw.([]any)
		if !isArray {
			items = []any{raw}
		} else if len(items) == 0 {
			continue
		}
		values := make([]yocto.Value, 0, len(items))
		for _, item := range items {
			v, err := f.convert(item)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			values = append(values, v)
		}
		doc.With(f.Name, f.index, f.length, values...)
	}

	switch s.Payload {
	case PayloadLine:
		doc.WithPayload(rec.Raw)
	case PayloadNone:
	default:
		raw, ok := rec.Fields[s.Payload]
		if !ok || raw == nil {
			break
		}
		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("payload key %q holds %T, want string", s.Payload, raw)
		}
		doc.WithPayload([]byte(str))
	}
	return doc, nil
}

func (f *FieldSchema) convert(item any) (yocto.Value, error) {
	switch f.Type {
	case TypeString, TypeBytes:
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("got %T, want string", item)
		}
		return f.ParseValue(str)
	case TypeBool:
		b, ok := item.(bool)
		if !ok {
			return nil, fmt.Errorf("got %T, want bool", item)
		}
		return yocto.Bool(b), nil
	}

	n, ok := item.(float64)
	if !ok {
		return nil, fmt.Errorf("got %T, want number", item)
	}
	if f.Type == TypeFloat {
		return yocto.Float64(n), nil
	}
	if n != math.Trunc(n) {
		return nil, fmt.Errorf("%v is not an integer", n)
	}
	return f.ParseValue(strconv.FormatFloat(n, 'f', -1, 64))
}

// ParseValue encodes the textual form of a value, as given on the command
// line, with the field's type.
func (f *FieldSchema) ParseValue(s string) (yocto.Value, error) {
	switch f.Type {
	case TypeString:
		return yocto.String(s), nil
	case TypeBytes:
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, err
		}
		return yocto.Bytes(b), nil
	case TypeInt:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, err
		}
		return yocto.Int(int32(n)), nil
	case TypeLong:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}
		return yocto.Long(n), nil
	case TypeUint:
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, err
		}
		return yocto.Uint(uint32(n)), nil
	case TypeUlong:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, err
		}
		return yocto.Ulong(n), nil
	case TypeBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, err
		}
		return yocto.Bool(b), nil
	case TypeFloat:
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		return yocto.Float64(x), nil
	default:
		return nil, fmt.Errorf("unknown type %q", f.Type)
	}
}
