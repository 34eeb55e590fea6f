package canonical

import (
	"encoding/json"
	"errors"
	"strconv"
)

// ErrTypeMismatch is returned when a value cannot be represented canonically.
var ErrTypeMismatch = errors.New("canonical: unsupported value type")

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Member is one key/value entry of an object Value.
type Member struct {
	Key   string
	Value Value
}

// Value is an immutable node of a canonicalizable tree. The zero Value is null.
type Value struct {
	kind    Kind
	str     string
	boolean bool
	members []Member
	items   []Value
}

// Null returns the null Value.
func Null() Value {
	return Value{}
}

// String returns a string Value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number returns a number Value holding the JSON number literal n verbatim.
// The literal is validated when the Value is marshaled.
func Number(n json.Number) Value {
	return Value{kind: KindNumber, str: n.String()}
}

// Int returns a number Value for an integer.
func Int(i int64) Value {
	return Value{kind: KindNumber, str: strconv.FormatInt(i, 10)}
}

// Bool returns a boolean Value.
func Bool(b bool) Value {
	return Value{kind: KindBool, boolean: b}
}

// Object returns an object Value with members in the given order.
// When a key repeats, the last occurrence wins once canonicalized.
func Object(members ...Member) Value {
	return Value{kind: KindObject, members: members}
}

// Array returns an array Value.
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: items}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether v is the null Value.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Str returns the string or number literal held by v.
func (v Value) Str() string {
	return v.str
}

// BoolValue returns the boolean held by v.
func (v Value) BoolValue() bool {
	return v.boolean
}

// Members returns the object members of v in their current order.
func (v Value) Members() []Member {
	return v.members
}

// Items returns the array elements of v.
func (v Value) Items() []Value {
	return v.items
}

// Get returns the member value stored under key, if present.
func (v Value) Get(key string) (Value, bool) {
	for i := len(v.members) - 1; i >= 0; i-- {
		if v.members[i].Key == key {
			return v.members[i].Value, true
		}
	}

	return Value{}, false
}

// MarshalJSON implements json.Marshaler using the canonical form of v.
func (v Value) MarshalJSON() ([]byte, error) {
	return Marshal(Canonicalize(v))
}
