// Package book packages an accumulated novel into e-book documents. The
// structure is deliberately minimal: one content section, the given title,
// paragraphs in order.
package book

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

// Supported output formats.
const (
	FormatEPUB = "epub"
	FormatDOCX = "docx"
	FormatText = "txt"
)

// IsSupportedFormat checks a format name.
func IsSupportedFormat(format string) bool {
	switch format {
	case FormatEPUB, FormatDOCX, FormatText:
		return true
	}
	return false
}

// WriteAll writes one document per requested format next to basePath (the
// artifact path without its extension) and returns format -> written path.
// An empty formats list defaults to EPUB.
func WriteAll(title, lang string, paragraphs []string, basePath string, formats []string) (map[string]string, error) {
	if len(formats) == 0 {
		formats = []string{FormatEPUB}
	}

	outputs := make(map[string]string, len(formats))
	for _, format := range formats {
		path := basePath + "." + format
		var err error
		switch format {
		case FormatEPUB:
			err = writeEPUB(title, lang, paragraphs, path)
		case FormatDOCX:
			err = writeDOCX(title, paragraphs, path)
		case FormatText:
			// The accumulated text file already lives at this path.
		default:
			err = fmt.Errorf("unsupported format: %s", format)
		}
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", format, err)
		}
		outputs[format] = path
	}
	return outputs, nil
}

// renderBody converts blank-line-separated paragraphs to XHTML. The
// paragraphs follow the Markdown paragraph convention already, so goldmark
// produces one <p> element per paragraph and escapes markup in the text.
func renderBody(paragraphs []string) (string, error) {
	src := strings.Join(paragraphs, "\n\n")
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render body: %w", err)
	}
	return buf.String(), nil
}
