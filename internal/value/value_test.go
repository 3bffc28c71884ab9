package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"bool", Bool(true), "true"},
		{"null", Null{}, "null"},
		{"nil", nil, "null"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"array", Array{Int(1), String("x")}, `[1,"x"]`},
		{"html not escaped", String("<a&b>"), `"<a&b>"`},
		{"quote and newline", String("a\"b\nc"), `"a\"b\nc"`},
		{"control char", String("\x01"), `"\u0001"`},
		{"line separator literal", String("a\u2028b"), "\"a\u2028b\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(Canonical(tt.input)))
		})
	}
}

func TestCanonicalSortedKeys(t *testing.T) {
	obj := Object{
		"zebra": Int(1),
		"alpha": Object{"b": Int(1), "a": Int(2)},
		"beta":  Null{},
	}
	assert.Equal(t, `{"alpha":{"a":2,"b":1},"beta":null,"zebra":1}`, Key(obj))
}

func TestCanonicalNFC(t *testing.T) {
	// "é" precomposed vs "e" + combining acute
	precomposed := String("Ren\u00e9")
	decomposed := String("Rene\u0301")
	assert.True(t, Equal(precomposed, decomposed))
}

func TestEqualNullAndMissing(t *testing.T) {
	assert.True(t, Equal(nil, Null{}))
	assert.False(t, Equal(Int(0), Null{}))
	assert.False(t, Equal(String("1"), Int(1)))
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{
		"n":    float64(3),
		"s":    "x",
		"list": []any{1, true, nil},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"list":[1,true,null],"n":3,"s":"x"}`, Key(v))

	_, err = FromAny(1.5)
	assert.Error(t, err)

	_, err = FromAny(struct{}{})
	assert.Error(t, err)
}

func TestObjectJSONRoundTrip(t *testing.T) {
	var obj Object
	require.NoError(t, json.Unmarshal([]byte(`{"pages": 320, "ended": false, "date": null}`), &obj))
	assert.Equal(t, Int(320), obj["pages"])
	assert.Equal(t, Bool(false), obj["ended"])
	assert.Equal(t, Null{}, obj["date"])

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"date":null,"ended":false,"pages":320}`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`{"pages": 3.5}`), &obj))
}

func TestObjectYAML(t *testing.T) {
	var doc struct {
		Attributes Object `yaml:"attributes"`
	}
	src := "attributes:\n  typeId: 2\n  beginDate: \"1920-01-02\"\n  ended: true\n"
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	assert.Equal(t, Object{
		"typeId":    Int(2),
		"beginDate": String("1920-01-02"),
		"ended":     Bool(true),
	}, doc.Attributes)
}
