package nameutil

import "testing"

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Honza", "Honza"},
		{"Jiří", "Jiri"},
		{"café", "cafe"},
		{"naïve", "naive"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := RemoveDiacritics(tt.input)
			if result != tt.expected {
				t.Errorf("RemoveDiacritics(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Alice", "alice"},
		{" Jiří ", "jiri"},
		{"BOB", "bob"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := Normalize(tt.input)
			if result != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	stored := []string{"alice", "Jiří", "bob", "BOB"}

	tests := []struct {
		name      string
		requested string
		want      string
		ok        bool
	}{
		{"exact", "alice", "alice", true},
		{"normalized unique", "jiri", "Jiří", true},
		{"exact beats ambiguity", "bob", "bob", true},
		{"ambiguous", "Bob", "", false},
		{"missing", "carol", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.requested, stored)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tt.requested, got, ok, tt.want, tt.ok)
			}
		})
	}
}
