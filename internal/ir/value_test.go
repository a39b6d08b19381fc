package ir

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeys(t *testing.T) {
	obj := IRObject{
		"title": IRString("z"),
		"data":  IRInt(1),
		"owner": IRString("b"),
	}
	assert.Equal(t, []string{"data", "owner", "title"}, obj.SortedKeys())
	assert.Empty(t, IRObject{}.SortedKeys())
}

func TestIRObjectSortedKeysASCIICase(t *testing.T) {
	// 'A' = 65 sorts before 'a' = 97.
	obj := IRObject{
		"a": IRInt(1), "A": IRInt(2), "aa": IRInt(3),
		"aA": IRInt(4), "Aa": IRInt(5), "AA": IRInt(6),
	}
	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

// U+10000 encodes as the surrogate pair D800 DC00 and so sorts before
// U+E000 under UTF-16 ordering, the reverse of UTF-8 byte order.
func TestSortedKeysUTF16Order(t *testing.T) {
	obj := IRObject{
		"\uE000": IRInt(1),
		"𐀀":      IRInt(2),
	}

	want := []string{"𐀀", "\uE000"}
	assert.Equal(t, want, obj.SortedKeys())

	utf8Order := []string{"\uE000", "𐀀"}
	sort.Strings(utf8Order)
	assert.NotEqual(t, want, utf8Order, "UTF-8 and UTF-16 orders must differ for this input")
}

func TestCompareKeysRFC8785(t *testing.T) {
	tests := []struct {
		a, b string
		sign int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"a", "a", 0},
		{"aa", "a", 1},
		{"", "a", -1},
		{"A", "a", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			got := compareKeysRFC8785(tt.a, tt.b)
			switch {
			case tt.sign < 0:
				assert.Negative(t, got)
			case tt.sign > 0:
				assert.Positive(t, got)
			default:
				assert.Zero(t, got)
			}
		})
	}
}

func TestIRObjectMarshalJSON(t *testing.T) {
	obj := IRObject{
		"title": IRString("hi"),
		"data":  IRInt(42),
		"flags": IRArray{IRBool(true), IRObject{"k": IRInt(-1)}},
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"data":42,"flags":[true,{"k":-1}],"title":"hi"}`, string(data))
}

func TestMarshalIRValueEmpty(t *testing.T) {
	tests := []struct {
		name     string
		value    IRValue
		expected string
	}{
		{"empty string", IRString(""), `""`},
		{"empty array", IRArray{}, `[]`},
		{"empty object", IRObject{}, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalIRValue(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(data))
		})
	}
}

func TestMarshalIRValueRejectsNil(t *testing.T) {
	_, err := MarshalIRValue(nil)
	require.Error(t, err)
}

func TestUnmarshalIRObject(t *testing.T) {
	obj, err := UnmarshalIRObject([]byte(`{"data":42,"title":"hello","nested":{"ok":true,"list":[1,-2]}}`))
	require.NoError(t, err)
	assert.Equal(t, IRObject{
		"data":  IRInt(42),
		"title": IRString("hello"),
		"nested": IRObject{
			"ok":   IRBool(true),
			"list": IRArray{IRInt(1), IRInt(-2)},
		},
	}, obj)
}

func TestUnmarshalIRObjectRoundTrip(t *testing.T) {
	original := IRObject{
		"max":   IRInt(9223372036854775807),
		"min":   IRInt(-9223372036854775808),
		"owner": IRString("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"),
		"empty": IRArray{},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)
	decoded, err := UnmarshalIRObject(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestUnmarshalIRObjectRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"float", `{"value": 1.5}`, "float"},
		{"scientific notation", `{"value": 1e10}`, "float"},
		{"nested float", `{"a": {"b": [1.5]}}`, "float"},
		{"null", `{"key": null}`, "null"},
		{"null in array", `{"list": [1, null]}`, "null"},
		{"not an object", `[1,2]`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalIRObject([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestToIRValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  IRValue
	}{
		{"string", "x", IRString("x")},
		{"bool", false, IRBool(false)},
		{"int", 7, IRInt(7)},
		{"int64", int64(-7), IRInt(-7)},
		{"uint64", uint64(255), IRInt(255)},
		{"json number", json.Number("12"), IRInt(12)},
		{"string slice", []string{"a", "b"}, IRArray{IRString("a"), IRString("b")}},
		{"any slice", []any{1, "two"}, IRArray{IRInt(1), IRString("two")}},
		{"map", map[string]any{"k": true}, IRObject{"k": IRBool(true)}},
		{"ir passthrough", IRInt(3), IRInt(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToIRValue(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToIRValueErrors(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"nil", nil},
		{"float64", 2.5},
		{"float number", json.Number("2.5")},
		{"uint64 overflow", uint64(1) << 63},
		{"nested nil", map[string]any{"k": nil}},
		{"unsupported", struct{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToIRValue(tt.input)
			require.Error(t, err)
		})
	}
}
