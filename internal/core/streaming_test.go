package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDecodingReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with UTF-8 BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("Sku;Name")...),
			expected: "Sku;Name",
		},
		{
			name:     "file without BOM",
			input:    []byte("Sku;Name"),
			expected: "Sku;Name",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "UTF-16 LE with BOM",
			input:    []byte{0xFF, 0xFE, 'S', 0, 'k', 0, 'u', 0},
			expected: "Sku",
		},
		{
			name:     "UTF-16 BE with BOM",
			input:    []byte{0xFE, 0xFF, 0, 'S', 0, 'k', 0, 'u'},
			expected: "Sku",
		},
		{
			name:     "invalid byte replaced",
			input:    []byte{'a', 0xFF, 'b'},
			expected: "a�b",
		},
		{
			name:     "multibyte text preserved",
			input:    []byte("Café;Größe"),
			expected: "Café;Größe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(NewDecodingReader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestCountingReader(t *testing.T) {
	data := strings.Repeat("x", 1000)
	counter := NewCountingReader(strings.NewReader(data), int64(len(data)))

	buf := make([]byte, 250)
	if _, err := counter.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := counter.Progress(); got != 25 {
		t.Errorf("Progress() = %d, want 25", got)
	}

	if _, err := io.ReadAll(counter); err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if counter.BytesRead != 1000 {
		t.Errorf("BytesRead = %d, want 1000", counter.BytesRead)
	}
	if got := counter.Progress(); got != 100 {
		t.Errorf("Progress() = %d, want 100", got)
	}
}

func TestCountingReader_UnknownTotal(t *testing.T) {
	counter := NewCountingReader(strings.NewReader("abc"), 0)
	_, _ = io.ReadAll(counter)
	if got := counter.Progress(); got != 0 {
		t.Errorf("Progress() = %d, want 0", got)
	}
}

func TestCountingReader_Limit(t *testing.T) {
	counter := NewCountingReader(strings.NewReader(strings.Repeat("y", 100)), 100)
	counter.Limit = 10

	_, err := io.ReadAll(NewDecodingReader(counter))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if counter.BytesRead <= 10 {
		t.Errorf("BytesRead = %d, expected more than the limit", counter.BytesRead)
	}
}
