package extract

import (
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html><head><title>host page title</title></head>
<body>
<nav>site navigation</nav>
<h1 class="article-title">  第一章 风起  </h1>
<div class="article-content">
  <p>  第一段内容。 </p>
  <p>第二段内容。</p>
  <p>   </p>
  <p>第三段内容。</p>
</div>
<footer>footer junk</footer>
</body></html>`

func TestPage_TitleAndParagraphs(t *testing.T) {
	res, err := Page(samplePage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Title != "第一章 风起" {
		t.Errorf("expected trimmed title, got %q", res.Title)
	}

	want := []string{"第一段内容。", "第二段内容。", "第三段内容。"}
	if len(res.Paragraphs) != len(want) {
		t.Fatalf("expected %d paragraphs, got %d: %v", len(want), len(res.Paragraphs), res.Paragraphs)
	}
	for i := range want {
		if res.Paragraphs[i] != want[i] {
			t.Errorf("paragraph %d: expected %q, got %q", i, want[i], res.Paragraphs[i])
		}
	}
}

func TestPage_NoContentRegion(t *testing.T) {
	res, err := Page(`<html><body><p>stray text</p></body></html>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Paragraphs) != 0 {
		t.Errorf("expected no paragraphs without a content div, got %v", res.Paragraphs)
	}
	if res.Title != "" {
		t.Errorf("expected empty title, got %q", res.Title)
	}
}

func TestPage_FallbackWithoutParagraphTags(t *testing.T) {
	page := `<html><body>
<div class="article-content">
line one of block one
<div>line two of block one</div>
<div>
<div>block two</div>
</div>
</div>
</body></html>`

	res, err := Page(page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Paragraphs) == 0 {
		t.Fatal("expected fallback extraction to produce paragraphs")
	}
	joined := strings.Join(res.Paragraphs, "\n\n")
	if !strings.Contains(joined, "line one of block one") || !strings.Contains(joined, "block two") {
		t.Errorf("fallback lost content: %q", joined)
	}
}

func TestPage_TitleOnlyIgnoresHostTitleTag(t *testing.T) {
	res, err := Page(`<html><head><title>wrong</title></head><body><span class="article-title">right</span></body></html>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Title != "right" {
		t.Errorf("expected class-based title %q, got %q", "right", res.Title)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "trailing spaces stripped",
			in:   "line one   \nline two\t\n",
			want: "line one\nline two",
		},
		{
			name: "leading indentation stripped",
			in:   "   indented\n\t  also indented",
			want: "indented\nalso indented",
		},
		{
			name: "blank runs collapsed",
			in:   "a\n\n\n\n\nb",
			want: "a\n\nb",
		},
		{
			name: "single blank line preserved",
			in:   "a\n\nb",
			want: "a\n\nb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.in); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
