package shared

import (
	"strings"
	"testing"
)

func TestStringSlice_Value(t *testing.T) {
	tests := []struct {
		name     string
		slice    StringSlice
		expected string
	}{
		{
			name:     "empty slice",
			slice:    StringSlice{},
			expected: "[]",
		},
		{
			name:     "nil slice",
			slice:    nil,
			expected: "[]",
		},
		{
			name:     "single item",
			slice:    StringSlice{"nova-2"},
			expected: `["nova-2"]`,
		},
		{
			name:     "multiple items",
			slice:    StringSlice{"nova-2", "nova-3", "whisper-large"},
			expected: `["nova-2","nova-3","whisper-large"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.slice.Value()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			str, ok := result.([]byte)
			if !ok {
				s, ok := result.(string)
				if !ok {
					t.Fatalf("expected string or []byte, got %T", result)
				}
				str = []byte(s)
			}
			if string(str) != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, string(str))
			}
		})
	}
}

func TestStringSlice_Scan(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected StringSlice
		wantErr  bool
	}{
		{
			name:     "nil value",
			input:    nil,
			expected: nil,
		},
		{
			name:     "json bytes",
			input:    []byte(`["a","b"]`),
			expected: StringSlice{"a", "b"},
		},
		{
			name:     "json string",
			input:    `["nova-2"]`,
			expected: StringSlice{"nova-2"},
		},
		{
			name:    "unsupported type",
			input:   42,
			wantErr: true,
		},
		{
			name:    "malformed json",
			input:   []byte(`{not json`),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s StringSlice
			err := s.Scan(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(s) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, s)
			}
			for i := range s {
				if s[i] != tt.expected[i] {
					t.Errorf("expected %v, got %v", tt.expected, s)
				}
			}
		})
	}
}

func TestNewID(t *testing.T) {
	id := NewID("sess_")
	if !strings.HasPrefix(id, "sess_") {
		t.Errorf("expected prefix sess_, got %s", id)
	}
	if len(id) != len("sess_")+32 {
		t.Errorf("expected 32 hex chars after prefix, got %d", len(id)-len("sess_"))
	}

	other := NewID("sess_")
	if id == other {
		t.Error("expected unique IDs")
	}
}
