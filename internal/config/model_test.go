package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentParam(t *testing.T) {
	doc := &Document{Params: map[string]any{"sampling_rate": 0.05}}

	v, ok := doc.Param("sampling_rate")
	require.True(t, ok)
	assert.Equal(t, 0.05, v)

	_, ok = doc.Param("no_such_key")
	assert.False(t, ok)
}

func TestAsInt(t *testing.T) {
	testCases := []struct {
		name     string
		value    any
		expectOK bool
		expected int
	}{
		{name: "int", value: 4, expectOK: true, expected: 4},
		{name: "int64", value: int64(4), expectOK: true, expected: 4},
		{name: "uint64", value: uint64(4), expectOK: true, expected: 4},
		{name: "integral float", value: 4.0, expectOK: true, expected: 4},
		{name: "fractional float", value: 4.5, expectOK: false},
		{name: "string", value: "4", expectOK: false},
		{name: "nil", value: nil, expectOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, ok := AsInt(tc.value)

			if !tc.expectOK {
				require.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tc.expected, n)
		})
	}
}

func TestAsFloat(t *testing.T) {
	testCases := []struct {
		name     string
		value    any
		expectOK bool
		expected float64
	}{
		{name: "float", value: 0.05, expectOK: true, expected: 0.05},
		{name: "int", value: 1, expectOK: true, expected: 1.0},
		{name: "int64", value: int64(2), expectOK: true, expected: 2.0},
		{name: "string", value: "0.05", expectOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, ok := AsFloat(tc.value)

			if !tc.expectOK {
				require.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tc.expected, f)
		})
	}
}

func TestAsStrings(t *testing.T) {
	testCases := []struct {
		name     string
		value    any
		expectOK bool
		expected []string
	}{
		{name: "strings", value: []any{"35", "44"}, expectOK: true, expected: []string{"35", "44"}},
		{name: "ints become codes", value: []any{53}, expectOK: true, expected: []string{"53"}},
		{name: "mixed", value: []any{"35", 56}, expectOK: true, expected: []string{"35", "56"}},
		{name: "string slice", value: []string{"35"}, expectOK: true, expected: []string{"35"}},
		{name: "empty", value: []any{}, expectOK: true, expected: []string{}},
		{name: "scalar", value: "35", expectOK: false},
		{name: "nested list", value: []any{[]any{"35"}}, expectOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ss, ok := AsStrings(tc.value)

			if !tc.expectOK {
				require.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tc.expected, ss)
		})
	}
}
