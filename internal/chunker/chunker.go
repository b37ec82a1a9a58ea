// Package chunker batches ordered paragraphs into size-bounded translation
// requests and reassembles the results.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Separator joins paragraphs within a chunk and translated chunks in the
// final output. It matches the blank-line paragraph convention of the
// artifact file.
const Separator = "\n\n"

// DefaultMaxSize is the default chunk size bound in runes. The translation
// backend documents a 5000-character request limit; 4800 leaves headroom.
const DefaultMaxSize = 4800

// TranslateFunc is the translation capability applied to each chunk.
// A failing call is not fatal; the caller substitutes the input text.
type TranslateFunc func(ctx context.Context, text string) (string, error)

// Split packs paragraphs, in order, into chunks whose joined rune length
// does not exceed maxSize. A paragraph is never split across chunks; a
// single paragraph longer than maxSize forms its own oversize chunk.
func Split(paragraphs []string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	var chunks []string
	var buf strings.Builder
	bufRunes := 0

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n := utf8.RuneCountInString(p)

		if bufRunes == 0 {
			buf.WriteString(p)
			bufRunes = n
			continue
		}

		// +2 for the separator runes added by the join.
		if bufRunes+n+len(Separator) <= maxSize {
			buf.WriteString(Separator)
			buf.WriteString(p)
			bufRunes += n + len(Separator)
		} else {
			chunks = append(chunks, buf.String())
			buf.Reset()
			buf.WriteString(p)
			bufRunes = n
		}
	}

	if bufRunes > 0 {
		chunks = append(chunks, buf.String())
	}

	return chunks
}

// TranslateAll splits paragraphs into chunks, translates each chunk, and
// rejoins the results in original order. A chunk whose translation fails is
// carried through verbatim; errors never propagate past this boundary.
// The second return value is the number of chunks that fell back to the
// untranslated text. Empty input yields an empty string with no
// translation calls.
func TranslateAll(ctx context.Context, paragraphs []string, maxSize int, translate TranslateFunc) (string, int) {
	chunks := Split(paragraphs, maxSize)
	if len(chunks) == 0 {
		return "", 0
	}

	fallbacks := 0
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		out, err := translate(ctx, chunk)
		if err != nil || strings.TrimSpace(out) == "" {
			out = chunk
			fallbacks++
		}
		parts = append(parts, out)
	}

	return strings.Join(parts, Separator), fallbacks
}
