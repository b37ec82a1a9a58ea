// Package translate provides the chapter translation capability. The
// pipeline treats it as "translate(text) -> text, may fail"; backends are
// swappable behind the Translator interface.
package translate

import "context"

// Translator converts text between languages. Implementations may fail on
// any call; callers are expected to degrade gracefully rather than abort.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Noop passes text through unchanged. Useful for dry runs and for sources
// already in the target language.
type Noop struct{}

func (Noop) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}
