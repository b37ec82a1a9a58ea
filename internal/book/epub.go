package book

import (
	"fmt"

	epub "github.com/go-shiori/go-epub"
)

// writeEPUB builds a single-section EPUB: the title, one XHTML body of
// paragraph elements, no chapter-level table of contents.
func writeEPUB(title, lang string, paragraphs []string, path string) error {
	body, err := renderBody(paragraphs)
	if err != nil {
		return err
	}

	e, err := epub.NewEpub(title)
	if err != nil {
		return fmt.Errorf("create epub: %w", err)
	}
	if lang != "" {
		e.SetLang(lang)
	}

	if _, err := e.AddSection(body, title, "content.xhtml", ""); err != nil {
		return fmt.Errorf("add section: %w", err)
	}

	if err := e.Write(path); err != nil {
		return fmt.Errorf("write epub: %w", err)
	}
	return nil
}
