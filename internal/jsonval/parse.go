package jsonval

import (
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned by Parse for text that is not well-formed JSON.
var ErrInvalidJSON = errors.New("invalid json")

// ErrInvalidUTF8 is returned by Parse for input that is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid utf-8")

// Parse decodes one JSON document into a Value.
func Parse(data []byte) (Value, error) {
	if !utf8.Valid(data) {
		return Value{}, ErrInvalidUTF8
	}
	if !gjson.ValidBytes(data) {
		return Value{}, ErrInvalidJSON
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level fixtures.
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic("jsonval: " + err.Error() + ": " + s)
	}
	return v
}

func fromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return NullValue()
	case gjson.False:
		return BoolValue(false)
	case gjson.True:
		return BoolValue(true)
	case gjson.Number:
		return NumberValue(strings.TrimSpace(r.Raw))
	case gjson.String:
		return StringValue(r.Str)
	case gjson.JSON:
		if r.IsArray() {
			items := make([]Value, 0)
			r.ForEach(func(_, item gjson.Result) bool {
				items = append(items, fromResult(item))
				return true
			})
			return ArrayValue(items...)
		}
		var members []Member
		r.ForEach(func(key, item gjson.Result) bool {
			members = append(members, Member{Key: key.Str, Value: fromResult(item)})
			return true
		})
		return ObjectValue(members...)
	}
	return Value{}
}

func sortedMembers(members []Member) []Member {
	if sort.SliceIsSorted(members, func(i, j int) bool { return members[i].Key < members[j].Key }) {
		return members
	}
	out := make([]Member, len(members))
	copy(out, members)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
