package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeConversionError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *TypeConversionError
		expected string
	}{
		{
			name:     "with field",
			err:      NewTypeConversionError("int64", "string", "count"),
			expected: `type conversion error for field "count": expected int64, got string`,
		},
		{
			name:     "without field",
			err:      NewTypeConversionError("int64", "nil", ""),
			expected: "type conversion error: expected int64, got nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAsString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  any
		want   string
		wantOK bool
	}{
		{"valid string", "Movie", "Movie", true},
		{"empty string", "", "", true},
		{"nil", nil, "", false},
		{"int", 42, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := AsString(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestAsInt64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  any
		want   int64
		wantOK bool
	}{
		{"int64", int64(7), 7, true},
		{"int", 3, 3, true},
		{"int32", int32(5), 5, true},
		{"float", 1.5, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := AsInt64(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestMustInt64(t *testing.T) {
	t.Parallel()

	v, err := MustInt64(int64(12), "count")
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	_, err = MustInt64("12", "count")
	var convErr *TypeConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "count", convErr.Field)
	assert.Equal(t, "string", convErr.Actual)
}
