package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the scalar and composite values that
// entity attributes and compare-field projections are built from.
// Only Null, String, Int, Bool, Array and Object implement it.
// There is no float: catalog attributes are integral or textual.
type Value interface {
	value()
}

// Null is an explicit absent value. Optional compare fields (an alias
// without a language) project to Null so they still take part in equality.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a text value.
type String string

func (String) value() {}

// Int is an integer value, always int64.
type Int int64

func (Int) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// Array is an ordered list of values.
type Array []Value

func (Array) value() {}

// Object maps string keys to values. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// OptionalInt projects a nullable integer column.
func OptionalInt(n *int64) Value {
	if n == nil {
		return Null{}
	}
	return Int(*n)
}

// OptionalString projects a nullable text column.
func OptionalString(s *string) Value {
	if s == nil {
		return Null{}
	}
	return String(*s)
}

// IsNull reports whether v is absent or an explicit Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Equal reports whether a and b have the same canonical encoding.
// A missing value and Null are equal.
func Equal(a, b Value) bool {
	return bytes.Equal(Canonical(a), Canonical(b))
}

// Clone returns a shallow copy of obj; values are immutable so sharing them is safe.
func (obj Object) Clone() Object {
	if obj == nil {
		return Object{}
	}
	out := make(Object, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// compareKeys orders strings by UTF-16 code units. Go's native string
// ordering is by UTF-8 bytes, which differs for characters above U+FFFF.
func compareKeys(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// MarshalJSON implements json.Marshaler with sorted keys.
func (obj Object) MarshalJSON() ([]byte, error) {
	return Canonical(obj), nil
}

// MarshalJSON implements json.Marshaler.
func (arr Array) MarshalJSON() ([]byte, error) {
	return Canonical(arr), nil
}

// UnmarshalJSON implements json.Unmarshaler for Object.
// Numbers must be integral; null becomes Null.
func (obj *Object) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	out := make(Object, len(raw))
	for k, elem := range raw {
		v, err := FromAny(elem)
		if err != nil {
			return fmt.Errorf("object key %q: %w", k, err)
		}
		out[k] = v
	}
	*obj = out
	return nil
}
