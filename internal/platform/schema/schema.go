// Package schema declares how records map onto typed key-value attributes.
//
// Each record type gets one static Schema listing its fields and their storage
// kind (string, number, number set). Encoding and decoding are driven by that
// list, so storage backends never inspect Go types at runtime. The attribute
// layout matches DynamoDB's typed attributes, which keeps stored items
// compatible across backends.
package schema

import (
	"errors"
	"fmt"
	"strconv"
)

// VersionAttr holds the optimistic-concurrency counter of every record.
const VersionAttr = "version"

var (
	ErrMissingAttr = errors.New("missing attribute")
	ErrInvalidAttr = errors.New("invalid attribute")
)

// Kind is the storage encoding of a field.
type Kind int

const (
	String    Kind = iota // S
	Number                // N, decimal string
	NumberSet             // NS, each element a decimal string
)

func (k Kind) String() string {
	switch k {
	case String:
		return "S"
	case Number:
		return "N"
	case NumberSet:
		return "NS"
	default:
		return "?"
	}
}

// Attr is a single typed attribute value; exactly one member is set.
// Its JSON form is DynamoDB JSON, e.g. {"N":"42"}.
type Attr struct {
	S  *string  `json:"S,omitempty"`
	N  *string  `json:"N,omitempty"`
	NS []string `json:"NS,omitempty"`
}

func S(v string) Attr {
	return Attr{S: &v}
}

func N(v int64) Attr {
	s := strconv.FormatInt(v, 10)
	return Attr{N: &s}
}

func NS(vs []int64) Attr {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = strconv.FormatInt(v, 10)
	}
	return Attr{NS: out}
}

// Item is an encoded record.
type Item map[string]Attr

// Field binds one record field to its attribute name and kind.
type Field[T any] struct {
	Name      string
	Kind      Kind
	optional  bool
	fallback  string
	normalize func(string) string

	str  func(*T) *string
	num  func(*T) *int64
	nums func(*T) *[]int64
}

func StringField[T any](name string, ref func(*T) *string) Field[T] {
	return Field[T]{Name: name, Kind: String, str: ref}
}

func NumberField[T any](name string, ref func(*T) *int64) Field[T] {
	return Field[T]{Name: name, Kind: Number, num: ref}
}

// NumberSetField declares an integer list. Number sets are always optional:
// an empty list is not written and a missing attribute decodes as empty.
func NumberSetField[T any](name string, ref func(*T) *[]int64) Field[T] {
	return Field[T]{Name: name, Kind: NumberSet, nums: ref, optional: true}
}

// Optional marks a field that older records may lack; it decodes to its zero value.
func (f Field[T]) Optional() Field[T] {
	f.optional = true
	return f
}

// Default marks a string field optional and sets the value a missing attribute decodes to.
func (f Field[T]) Default(value string) Field[T] {
	f.optional = true
	f.fallback = value
	return f
}

// Normalize maps every decoded string value, including the default, through fn.
func (f Field[T]) Normalize(fn func(string) string) Field[T] {
	f.normalize = fn
	return f
}

// Schema describes one record kind stored in one table.
type Schema[T any] struct {
	Table   string
	KeyAttr string

	key     func(*T) string
	version func(*T) *int64
	fields  []Field[T]
}

// New declares a schema. key derives the primary key (always a string
// attribute named keyAttr); version points at the record's version counter.
func New[T any](table, keyAttr string, key func(*T) string, version func(*T) *int64, fields ...Field[T]) *Schema[T] {
	return &Schema[T]{
		Table:   table,
		KeyAttr: keyAttr,
		key:     key,
		version: version,
		fields:  fields,
	}
}

func (s *Schema[T]) Key(v *T) string {
	return s.key(v)
}

func (s *Schema[T]) Version(v *T) int64 {
	return *s.version(v)
}

func (s *Schema[T]) SetVersion(v *T, version int64) {
	*s.version(v) = version
}

// Encode converts v into attributes, including the key and version attributes.
func (s *Schema[T]) Encode(v *T) Item {
	item := make(Item, len(s.fields)+2)
	item[s.KeyAttr] = S(s.key(v))
	for _, f := range s.fields {
		switch f.Kind {
		case String:
			item[f.Name] = S(*f.str(v))
		case Number:
			item[f.Name] = N(*f.num(v))
		case NumberSet:
			if vs := *f.nums(v); len(vs) > 0 {
				item[f.Name] = NS(vs)
			}
		}
	}
	item[VersionAttr] = N(*s.version(v))
	return item
}

// Decode builds a record from attributes. Attributes not in the schema are ignored.
func (s *Schema[T]) Decode(item Item) (*T, error) {
	v := new(T)
	for _, f := range s.fields {
		attr, ok := item[f.Name]
		if !ok {
			if !f.optional {
				return nil, fmt.Errorf("%s.%s: %w", s.Table, f.Name, ErrMissingAttr)
			}
			switch f.Kind {
			case NumberSet:
				*f.nums(v) = []int64{}
			case String:
				*f.str(v) = f.normalized(f.fallback)
			}
			continue
		}
		if err := decodeField(f, attr, v); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s.Table, f.Name, err)
		}
	}

	if attr, ok := item[VersionAttr]; ok {
		n, err := parseNumber(attr)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s.Table, VersionAttr, err)
		}
		*s.version(v) = n
	}
	return v, nil
}

func decodeField[T any](f Field[T], attr Attr, v *T) error {
	switch f.Kind {
	case String:
		if attr.S == nil {
			return fmt.Errorf("%w: want S", ErrInvalidAttr)
		}
		*f.str(v) = f.normalized(*attr.S)
	case Number:
		n, err := parseNumber(attr)
		if err != nil {
			return err
		}
		*f.num(v) = n
	case NumberSet:
		if attr.NS == nil {
			return fmt.Errorf("%w: want NS", ErrInvalidAttr)
		}
		out := make([]int64, len(attr.NS))
		for i, raw := range attr.NS {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %q is not an integer", ErrInvalidAttr, raw)
			}
			out[i] = n
		}
		*f.nums(v) = out
	}
	return nil
}

func (f Field[T]) normalized(s string) string {
	if f.normalize == nil {
		return s
	}
	return f.normalize(s)
}

func parseNumber(attr Attr) (int64, error) {
	if attr.N == nil {
		return 0, fmt.Errorf("%w: want N", ErrInvalidAttr)
	}
	n, err := strconv.ParseInt(*attr.N, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidAttr, *attr.N)
	}
	return n, nil
}
