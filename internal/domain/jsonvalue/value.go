// Package jsonvalue models an arbitrary JSON document as a tagged union that
// round-trips structure, object member order and number literals exactly.
package jsonvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Member is one key/value pair of an object, in document order.
type Member struct {
	Key   string
	Value Value
}

// Value is an immutable JSON value. The zero Value is null.
type Value struct {
	kind    Kind
	b       bool
	num     json.Number
	str     string
	items   []Value
	members []Member
}

// Constructors.
func NullValue() Value                { return Value{} }
func BoolValue(b bool) Value          { return Value{kind: Bool, b: b} }
func NumberValue(n json.Number) Value { return Value{kind: Number, num: n} }
func StringValue(s string) Value      { return Value{kind: String, str: s} }
func ArrayValue(items ...Value) Value { return Value{kind: Array, items: items} }
func ObjectValue(m ...Member) Value   { return Value{kind: Object, members: m} }

func (v Value) Kind() Kind { return v.kind }

// Bool returns the boolean payload; false for other kinds.
func (v Value) Bool() bool { return v.b }

// Number returns the number literal exactly as it appeared in the input.
func (v Value) Number() json.Number { return v.num }

func (v Value) Str() string { return v.str }

// Items returns the array elements. Callers must not modify the slice.
func (v Value) Items() []Value { return v.items }

// Members returns the object members in document order. Duplicate keys are
// kept as they appeared. Callers must not modify the slice.
func (v Value) Members() []Member { return v.members }

// Get returns the last member named key, mirroring how JSON decoders resolve
// duplicate keys.
func (v Value) Get(key string) (Value, bool) {
	for i := len(v.members) - 1; i >= 0; i-- {
		if v.members[i].Key == key {
			return v.members[i].Value, true
		}
	}
	return Value{}, false
}

// Sentinel kinds for parse failures.
var (
	ErrEmpty        = errors.New("empty document")
	ErrSyntax       = errors.New("invalid json")
	ErrTrailingData = errors.New("trailing data after json value")
	ErrTooDeep      = errors.New("json nested too deeply")
)

// MaxDepth is the deepest array/object nesting Parse accepts, matching the
// limit encoding/json applies when scanning.
const MaxDepth = 10000

// Parse decodes exactly one JSON value from data. Leading and trailing
// whitespace is allowed; anything else after the value is an error.
func Parse(data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Value{}, ErrEmpty
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec, 0)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, ErrTrailingData
	}
	return v, nil
}

func decodeValue(dec *json.Decoder, depth int) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, syntaxErr(err)
	}
	return decodeFrom(dec, tok, depth)
}

func decodeFrom(dec *json.Decoder, tok json.Token, depth int) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		return NumberValue(t), nil
	case string:
		return StringValue(t), nil
	case json.Delim:
		if t == '[' || t == '{' {
			if depth >= MaxDepth {
				return Value{}, fmt.Errorf("%w: %w: more than %d levels", ErrSyntax, ErrTooDeep, MaxDepth)
			}
		}
		switch t {
		case '[':
			return decodeArray(dec, depth+1)
		case '{':
			return decodeObject(dec, depth+1)
		}
	}
	return Value{}, fmt.Errorf("%w: unexpected token %v", ErrSyntax, tok)
}

func decodeArray(dec *json.Decoder, depth int) (Value, error) {
	items := []Value{}
	for dec.More() {
		item, err := decodeValue(dec, depth)
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return Value{}, err
	}
	return ArrayValue(items...), nil
}

func decodeObject(dec *json.Decoder, depth int) (Value, error) {
	members := []Member{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, syntaxErr(err)
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("%w: object key must be a string", ErrSyntax)
		}
		val, err := decodeValue(dec, depth)
		if err != nil {
			return Value{}, err
		}
		members = append(members, Member{Key: key, Value: val})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return Value{}, err
	}
	return ObjectValue(members...), nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return syntaxErr(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q", ErrSyntax, want)
	}
	return nil
}

func syntaxErr(err error) error {
	if err == io.EOF {
		return fmt.Errorf("%w: unexpected end of input", ErrSyntax)
	}
	return fmt.Errorf("%w: %w", ErrSyntax, err)
}

// MarshalJSON encodes v preserving member order and number literals.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler on top of Parse.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.b))
	case Number:
		buf.WriteString(v.num.String())
	case String:
		return encodeString(buf, v.str)
	case Array:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("jsonvalue: unknown kind %s", v.kind)
	}
	return nil
}

// encodeString writes s as a JSON string without HTML escaping.
func encodeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
	return nil
}

// Equal reports deep structural equality. Numbers compare by literal.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Null:
		return true
	case Bool:
		return a.b == b.b
	case Number:
		return a.num == b.num
	case String:
		return a.str == b.str
	case Array:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(a.members) != len(b.members) {
			return false
		}
		for i := range a.members {
			if a.members[i].Key != b.members[i].Key || !Equal(a.members[i].Value, b.members[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}
