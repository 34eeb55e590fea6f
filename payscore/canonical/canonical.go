package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Canonicalize returns the canonical form of v: object members whose value is
// null are removed, remaining members are canonicalized recursively and sorted
// by key, arrays keep their order with each element canonicalized. Scalars and
// null are returned unchanged. Canonicalize is idempotent.
func Canonicalize(v Value) Value {
	switch v.kind {
	case KindObject:
		return canonicalizeObject(v.members)
	case KindArray:
		items := make([]Value, len(v.items))
		for i, item := range v.items {
			items[i] = Canonicalize(item)
		}

		return Value{kind: KindArray, items: items}
	default:
		return v
	}
}

func canonicalizeObject(members []Member) Value {
	index := make(map[string]int, len(members))
	out := make([]Member, 0, len(members))

	for _, m := range members {
		if pos, seen := index[m.Key]; seen {
			out[pos].Value = m.Value
			continue
		}

		index[m.Key] = len(out)
		out = append(out, m)
	}

	kept := out[:0]

	for _, m := range out {
		if m.Value.IsNull() {
			continue
		}

		kept = append(kept, Member{Key: m.Key, Value: Canonicalize(m.Value)})
	}

	slices.SortFunc(kept, func(a, b Member) int {
		return strings.Compare(a.Key, b.Key)
	})

	return Value{kind: KindObject, members: kept}
}

// FromAny converts a Go value into a Value.
//
// The tree types produced by encoding/json (map[string]any, []any, string,
// bool, float64, json.Number, nil) are converted directly, as are the common
// integer types and string maps/slices. Any other value is passed through
// encoding/json and parsed back, which lets callers sign request structs.
// Values that cannot be represented (channels, funcs, NaN, ...) fail with
// ErrTypeMismatch.
func FromAny(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		if !validNumber(t.String()) {
			return Value{}, fmt.Errorf("number literal %q: %w", t.String(), ErrTypeMismatch)
		}

		return Number(t), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return Value{kind: KindNumber, str: strconv.FormatUint(t, 10)}, nil
	case float32:
		return fromFloat(float64(t), 32)
	case float64:
		return fromFloat(t, 64)
	case map[string]any:
		members := make([]Member, 0, len(t))

		for key, raw := range t {
			child, err := FromAny(raw)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", key, err)
			}

			members = append(members, Member{Key: key, Value: child})
		}

		return Object(members...), nil
	case map[string]string:
		members := make([]Member, 0, len(t))
		for key, s := range t {
			members = append(members, Member{Key: key, Value: String(s)})
		}

		return Object(members...), nil
	case []any:
		items := make([]Value, len(t))

		for i, raw := range t {
			child, err := FromAny(raw)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}

			items[i] = child
		}

		return Array(items...), nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}

		return Array(items...), nil
	case json.RawMessage:
		return Parse(t)
	default:
		return fromJSON(v)
	}
}

func fromFloat(f float64, bitSize int) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("non-finite number: %w", ErrTypeMismatch)
	}

	return Value{kind: KindNumber, str: strconv.FormatFloat(f, 'f', -1, bitSize)}, nil
}

func fromJSON(v any) (Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Value{}, fmt.Errorf("%T: %w", v, ErrTypeMismatch)
	}

	return Parse(raw)
}

// Parse decodes a JSON document into a Value, keeping number literals verbatim.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return Value{}, fmt.Errorf("decode json: %w", err)
	}

	if dec.More() {
		return Value{}, fmt.Errorf("decode json: trailing data after document")
	}

	return FromAny(tree)
}

// Marshal writes v as compact JSON, emitting members in their current order.
// Call Canonicalize first (or use Serialize) to obtain signing bytes.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Serialize converts v, canonicalizes it and returns the compact JSON bytes.
func Serialize(v any) ([]byte, error) {
	value, err := FromAny(v)
	if err != nil {
		return nil, err
	}

	return Marshal(Canonicalize(value))
}

func encode(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.boolean))
	case KindNumber:
		if !validNumber(v.str) {
			return fmt.Errorf("number literal %q: %w", v.str, ErrTypeMismatch)
		}

		buf.WriteString(v.str)
	case KindString:
		return encodeString(buf, v.str)
	case KindObject:
		buf.WriteByte('{')

		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}

			if err := encodeString(buf, m.Key); err != nil {
				return err
			}

			buf.WriteByte(':')

			if err := encode(buf, m.Value); err != nil {
				return err
			}
		}

		buf.WriteByte('}')
	case KindArray:
		buf.WriteByte('[')

		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}

			if err := encode(buf, item); err != nil {
				return err
			}
		}

		buf.WriteByte(']')
	default:
		return fmt.Errorf("kind %d: %w", v.kind, ErrTypeMismatch)
	}

	return nil
}

// encodeString writes s as a JSON string without HTML escaping.
func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer

	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode string: %w", err)
	}

	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))

	return nil
}

func validNumber(s string) bool {
	if s == "" {
		return false
	}

	if s[0] != '-' && (s[0] < '0' || s[0] > '9') {
		return false
	}

	var n json.Number

	return json.Unmarshal([]byte(s), &n) == nil
}
