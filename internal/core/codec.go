package core

// codec.go packs several property values into one cell and back.
//
// Cell grammar (default separators):
//
//	cell  = token *( ";" token )
//	token = [ lang "__" ] value [ "|" color ]
//
// A piece containing any separator or the escape marker, or ending with the
// first part of a separator, is wrapped in the escape marker, with embedded
// markers doubled: a;b -> `a;b`, a`b -> `a``b`, e_ -> `e_`.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
)

// Codec encodes and decodes composite property cells.
type Codec struct {
	ValueSeparator    string
	LanguageSeparator string
	ColorSeparator    string
	Escape            string
}

// DefaultCodec returns the codec with the standard separators.
func DefaultCodec() Codec {
	return Codec{
		ValueSeparator:    ";",
		LanguageSeparator: "__",
		ColorSeparator:    "|",
		Escape:            "`",
	}
}

// Validate rejects empty or colliding separators.
func (c Codec) Validate() error {
	parts := []struct{ name, v string }{
		{"value separator", c.ValueSeparator},
		{"language separator", c.LanguageSeparator},
		{"color separator", c.ColorSeparator},
		{"escape marker", c.Escape},
	}
	seen := make(map[string]string, len(parts))
	var errs []error
	for _, p := range parts {
		if p.v == "" {
			errs = append(errs, fmt.Errorf("codec: %s is empty", p.name))
			continue
		}
		if other, ok := seen[p.v]; ok {
			errs = append(errs, fmt.Errorf("codec: %s %q collides with %s", p.name, p.v, other))
			continue
		}
		seen[p.v] = p.name
	}
	return errors.Join(errs...)
}

// EncodeProperty encodes all values of p.
func (c Codec) EncodeProperty(p catalog.Property) string {
	return c.Encode(p.Values, p.Dictionary)
}

// Encode joins values into one cell. Dictionary values are written as their
// alias (falling back to the literal). Values without a literal are dropped
// and duplicate tokens are written once.
func (c Codec) Encode(values []catalog.PropertyValue, dictionary bool) string {
	seen := make(map[string]struct{}, len(values))
	tokens := make([]string, 0, len(values))

	for _, v := range values {
		var token string
		if dictionary {
			alias := v.Alias
			if alias == "" {
				alias = v.Value
			}
			if alias == "" {
				continue
			}
			token = c.escape(alias)
		} else {
			if v.Value == "" {
				continue
			}
			var b strings.Builder
			if v.LanguageCode != "" {
				b.WriteString(c.escape(v.LanguageCode))
				b.WriteString(c.LanguageSeparator)
			}
			b.WriteString(c.escape(v.Value))
			if v.ColorCode != "" {
				b.WriteString(c.ColorSeparator)
				b.WriteString(c.escape(v.ColorCode))
			}
			token = b.String()
		}

		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}

	return strings.Join(tokens, c.ValueSeparator)
}

// Decode splits a cell into property values named after columnName.
// An empty cell yields one value-less placeholder so the property is still
// present on the product.
func (c Codec) Decode(cell, columnName string) []catalog.PropertyValue {
	if cell == "" {
		return []catalog.PropertyValue{{PropertyName: columnName}}
	}

	tokens := c.split(cell, c.ValueSeparator, -1)
	values := make([]catalog.PropertyValue, 0, len(tokens))

	for _, token := range tokens {
		if token == "" {
			continue
		}

		v := catalog.PropertyValue{PropertyName: columnName}
		rest := token

		if parts := c.split(rest, c.LanguageSeparator, 2); len(parts) == 2 {
			v.LanguageCode = c.unescape(parts[0])
			rest = parts[1]
		}
		if parts := c.split(rest, c.ColorSeparator, 2); len(parts) == 2 {
			v.ColorCode = c.unescape(parts[1])
			rest = parts[0]
		}
		v.Value = c.unescape(rest)

		values = append(values, v)
	}

	if len(values) == 0 {
		return []catalog.PropertyValue{{PropertyName: columnName}}
	}
	return values
}

// needsEscape reports whether s contains a separator or the escape marker,
// or ends with the start of a separator: "e_" followed by "__" would
// otherwise split as "e" and "_...".
func (c Codec) needsEscape(s string) bool {
	if strings.Contains(s, c.Escape) {
		return true
	}
	for _, sep := range []string{c.ValueSeparator, c.LanguageSeparator, c.ColorSeparator} {
		if strings.Contains(s, sep) {
			return true
		}
		for n := 1; n < len(sep); n++ {
			if strings.HasSuffix(s, sep[:n]) {
				return true
			}
		}
	}
	return false
}

func (c Codec) escape(s string) string {
	if !c.needsEscape(s) {
		return s
	}
	return c.Escape + strings.ReplaceAll(s, c.Escape, c.Escape+c.Escape) + c.Escape
}

// unescape removes span markers and collapses doubled markers inside spans.
func (c Codec) unescape(s string) string {
	esc := c.Escape
	if !strings.Contains(s, esc) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	inSpan := false
	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], esc) {
			if inSpan && strings.HasPrefix(s[i+len(esc):], esc) {
				b.WriteString(esc)
				i += 2 * len(esc)
				continue
			}
			inSpan = !inSpan
			i += len(esc)
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// split cuts s on sep occurrences outside escaped spans. n < 0 means no
// limit, otherwise at most n parts are returned.
func (c Codec) split(s, sep string, n int) []string {
	esc := c.Escape
	var parts []string
	start := 0
	inSpan := false

	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], esc) {
			if inSpan && strings.HasPrefix(s[i+len(esc):], esc) {
				i += 2 * len(esc)
				continue
			}
			inSpan = !inSpan
			i += len(esc)
			continue
		}
		if !inSpan && (n < 0 || len(parts) < n-1) && strings.HasPrefix(s[i:], sep) {
			parts = append(parts, s[start:i])
			i += len(sep)
			start = i
			continue
		}
		i++
	}

	return append(parts, s[start:])
}
