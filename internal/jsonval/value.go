// Package jsonval is a tagged representation of decoded JSON.
//
// A Value is one of absent, null, bool, number, string, array, or object.
// Objects keep their members in document order so flattened columns can be
// laid out in first-seen order. Numbers keep their original literal text so a
// project_id of 1 stringifies as "1" and 1.0 as "1.0".
//
// The zero Value is absent: it marks a field path that a record does not have,
// which is distinct from an explicit JSON null.
package jsonval

import (
	"strconv"

	"github.com/tidwall/gjson"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	Absent Kind = iota
	Null
	Bool
	Number
	String
	Array
	Object
)

var kindNames = [...]string{"absent", "null", "bool", "number", "string", "array", "object"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

// Value is an immutable JSON value.
type Value struct {
	kind    Kind
	b       bool
	s       string // string contents, or the number literal
	items   []Value
	members []Member
}

// NullValue returns JSON null.
func NullValue() Value { return Value{kind: Null} }

// BoolValue returns a JSON boolean.
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// NumberValue returns a JSON number from its literal text, e.g. "42" or "1.5e3".
// The literal is not validated.
func NumberValue(literal string) Value { return Value{kind: Number, s: literal} }

// IntValue returns a JSON number holding i.
func IntValue(i int64) Value { return NumberValue(strconv.FormatInt(i, 10)) }

// FloatValue returns a JSON number holding f in its shortest form.
func FloatValue(f float64) Value { return NumberValue(strconv.FormatFloat(f, 'g', -1, 64)) }

// StringValue returns a JSON string.
func StringValue(s string) Value { return Value{kind: String, s: s} }

// ArrayValue returns a JSON array of items.
func ArrayValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: Array, items: items}
}

// ObjectValue returns a JSON object with members in the given order.
// A repeated key keeps its first position and takes the last value.
func ObjectValue(members ...Member) Value {
	out := make([]Member, 0, len(members))
	pos := make(map[string]int, len(members))
	for _, m := range members {
		if i, ok := pos[m.Key]; ok {
			out[i].Value = m.Value
			continue
		}
		pos[m.Key] = len(out)
		out = append(out, m)
	}
	return Value{kind: Object, members: out}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether v marks a missing field.
func (v Value) IsAbsent() bool { return v.kind == Absent }

// IsMissing reports whether v is absent or null. Classification and
// candidate building skip missing cells.
func (v Value) IsMissing() bool { return v.kind == Absent || v.kind == Null }

// IsContainer reports whether v is an array or object.
func (v Value) IsContainer() bool { return v.kind == Array || v.kind == Object }

// Bool returns the boolean held by v and whether v is a bool.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == Bool }

// Str returns the string held by v and whether v is a string.
func (v Value) Str() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.s, true
}

// Float returns v as a float64 when v is a number.
func (v Value) Float() (float64, bool) {
	if v.kind != Number {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Items returns the elements of an array, or nil.
func (v Value) Items() []Value {
	if v.kind != Array {
		return nil
	}
	return v.items
}

// Members returns the members of an object in document order, or nil.
func (v Value) Members() []Member {
	if v.kind != Object {
		return nil
	}
	return v.members
}

// Get returns the member named key of an object.
func (v Value) Get(key string) (Value, bool) {
	for _, m := range v.Members() {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Len returns the number of array items or object members.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.items)
	case Object:
		return len(v.members)
	}
	return 0
}

// Text is the display and comparison form of v.
//
// Strings are returned as-is, numbers as their literal, booleans as
// "true"/"false", absent and null as "". Arrays and objects use Canonical.
func (v Value) Text() string {
	switch v.kind {
	case Bool:
		return strconv.FormatBool(v.b)
	case Number, String:
		return v.s
	case Array, Object:
		return v.Canonical()
	}
	return ""
}

// Canonical serializes v as compact JSON with object keys sorted, so
// structurally equal values always produce the same string.
func (v Value) Canonical() string {
	return string(v.appendJSON(nil, true))
}

// MarshalJSON implements json.Marshaler preserving member order.
// Absent values encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.appendJSON(nil, false), nil
}

// Equal reports whether a and b hold structurally equal values.
// Object member order is ignored.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	return a.Canonical() == b.Canonical()
}

func (v Value) appendJSON(dst []byte, sorted bool) []byte {
	switch v.kind {
	case Bool:
		return strconv.AppendBool(dst, v.b)
	case Number:
		return append(dst, v.s...)
	case String:
		return gjson.AppendJSONString(dst, v.s)
	case Array:
		dst = append(dst, '[')
		for i, item := range v.items {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = item.appendJSON(dst, sorted)
		}
		return append(dst, ']')
	case Object:
		members := v.members
		if sorted {
			members = sortedMembers(members)
		}
		dst = append(dst, '{')
		for i, m := range members {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = gjson.AppendJSONString(dst, m.Key)
			dst = append(dst, ':')
			dst = m.Value.appendJSON(dst, sorted)
		}
		return append(dst, '}')
	}
	return append(dst, "null"...)
}
