package core

import "testing"

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Shoes", "shoes"},
		{"spaces", "Running Shoes", "running-shoes"},
		{"accents folded", "Café Crème", "cafe-creme"},
		{"punctuation collapsed", "Tools & Hardware!!", "tools-hardware"},
		{"leading and trailing", "  --Sale--  ", "sale"},
		{"digits kept", "Size 42", "size-42"},
		{"no letters", "!!!", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slug(tt.in); got != tt.want {
				t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
