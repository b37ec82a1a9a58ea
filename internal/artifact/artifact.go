// Package artifact owns the durable per-run text file that accumulates
// translated chapters. Writes are append-only and flushed before control
// returns, so an interrupted run leaves a valid truncated file behind.
package artifact

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Artifact is the single growing text file for one run. It is exclusively
// owned by the run's driver and is not safe for concurrent use.
type Artifact struct {
	dir   string
	title string
	named bool
	path  string
	f     *os.File
}

// New creates the artifact file, empty, named after the fallback title.
// The title is replaced once via SetTitleOnce when a page supplies one.
func New(dir, fallbackTitle string) (*Artifact, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	a := &Artifact{
		dir:   dir,
		title: fallbackTitle,
		path:  filepath.Join(dir, SanitizeTitle(fallbackTitle)+".txt"),
	}

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}
	a.f = f
	return a, nil
}

// Title returns the current title (fallback until SetTitleOnce succeeds).
func (a *Artifact) Title() string { return a.title }

// Path returns the artifact file's current location.
func (a *Artifact) Path() string { return a.path }

// SetTitleOnce adopts the discovered title and renames the file to match.
// Only the first non-empty title wins; later calls report false and change
// nothing.
func (a *Artifact) SetTitleOnce(title string) (bool, error) {
	title = strings.TrimSpace(title)
	if a.named || title == "" {
		return false, nil
	}

	newPath := filepath.Join(a.dir, SanitizeTitle(title)+".txt")
	if newPath != a.path {
		if err := os.Rename(a.path, newPath); err != nil {
			return false, fmt.Errorf("rename artifact: %w", err)
		}
	}
	a.title = title
	a.path = newPath
	a.named = true
	return true, nil
}

// Append writes one chapter's translated text followed by a paragraph
// break, then flushes. Positions of previously written chunks never change.
func (a *Artifact) Append(text string) error {
	if text == "" {
		return nil
	}
	if _, err := a.f.WriteString(text + "\n\n"); err != nil {
		return fmt.Errorf("append artifact: %w", err)
	}
	if err := a.f.Sync(); err != nil {
		return fmt.Errorf("sync artifact: %w", err)
	}
	return nil
}

// Text returns the artifact's full accumulated contents.
func (a *Artifact) Text() (string, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}
	return string(data), nil
}

// Paragraphs re-splits the artifact on blank lines into the ordered
// paragraph sequence for packaging.
func (a *Artifact) Paragraphs() ([]string, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan artifact: %w", err)
	}
	return paragraphs, nil
}

// Close closes the underlying file. The artifact remains on disk.
func (a *Artifact) Close() error {
	return a.f.Close()
}

// SanitizeTitle makes a title safe for use as a file name by replacing
// filesystem-reserved characters with underscores.
func SanitizeTitle(title string) string {
	replaced := strings.Map(func(r rune) rune {
		switch r {
		case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if replaced == "" {
		replaced = "untitled"
	}
	return replaced
}

// FallbackTitle derives a title from the base URL's last path segment, for
// runs where no page ever supplies one.
func FallbackTitle(baseURL string) string {
	trimmed := strings.TrimRight(baseURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if trimmed == "" {
		return "untitled"
	}
	return trimmed
}
