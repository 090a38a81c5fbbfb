package widget_module

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{name: "nil", value: nil, want: false},
		{name: "false", value: false, want: false},
		{name: "true", value: true, want: true},
		{name: "empty string", value: "", want: false},
		{name: "string", value: "acme", want: true},
		// JSON numbers decode as float64
		{name: "zero number", value: float64(0), want: false},
		{name: "number", value: float64(123), want: true},
		{name: "empty object", value: map[string]any{}, want: false},
		{name: "object", value: map[string]any{"a": 1}, want: true},
		{name: "empty list", value: []any{}, want: false},
		{name: "list", value: []any{"x"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truthy(tt.value))
		})
	}
}
