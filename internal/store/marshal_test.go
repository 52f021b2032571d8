package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/islproof/internal/ir"
)

func TestMarshalObject(t *testing.T) {
	tests := []struct {
		name     string
		obj      ir.Object
		expected string
	}{
		{"nil", nil, "{}"},
		{"empty", ir.Object{}, "{}"},
		{"sorted keys", ir.Object{"name": ir.String("widget"), "active": ir.Bool(true), "quantity": ir.Int(42)},
			`{"active":true,"name":"widget","quantity":42}`},
		{"nested", ir.Object{"item": ir.Object{"id": ir.String("abc"), "count": ir.Int(5)}},
			`{"item":{"count":5,"id":"abc"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := marshalObject(tt.obj)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestUnmarshalObject_LargeInt(t *testing.T) {
	obj, err := unmarshalObject(`{"n":9007199254740993}`)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(9007199254740993), obj["n"])
}

func TestUnmarshalObject_Empty(t *testing.T) {
	obj, err := unmarshalObject("")
	require.NoError(t, err)
	assert.Equal(t, ir.Object{}, obj)
}

func TestMarshalRecord_NoHTMLEscape(t *testing.T) {
	got, err := marshalRecord(map[string]string{"reason": "a < b && c > d"})
	require.NoError(t, err)
	assert.Equal(t, `{"reason":"a < b && c > d"}`, got)
}
