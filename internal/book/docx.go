package book

import (
	"fmt"
	"os"

	"github.com/fumiama/go-docx"
)

// writeDOCX renders the same single-section document as a Word file: the
// title as a heading paragraph followed by the body paragraphs in order.
func writeDOCX(title string, paragraphs []string, path string) error {
	w := docx.New().WithDefaultTheme()

	w.AddParagraph().AddText(title).Size("28").Bold()
	for _, p := range paragraphs {
		w.AddParagraph().AddText(p)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create docx: %w", err)
	}
	defer f.Close()

	if _, err := w.WriteTo(f); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}
