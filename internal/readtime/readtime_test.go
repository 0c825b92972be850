package readtime

import (
	"strings"
	"testing"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}

func TestFromHTMLEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t  \n", "<p></p>", "<div> <br/> </div>"} {
		if got := FromHTML(input); got != "1 min read" {
			t.Fatalf("FromHTML(%q) = %q, want 1 min read", input, got)
		}
	}
}

func TestFromHTMLBoundaries(t *testing.T) {
	cases := []struct {
		words int
		want  string
	}{
		{1, "1 min read"},
		{199, "1 min read"},
		{200, "1 min read"},
		{201, "2 min read"},
		{300, "2 min read"},
		{400, "2 min read"},
		{401, "3 min read"},
		{1000, "5 min read"},
	}
	for _, tc := range cases {
		html := "<p>" + words(tc.words) + "</p>"
		if got := FromHTML(html); got != tc.want {
			t.Fatalf("FromHTML(%d words) = %q, want %q", tc.words, got, tc.want)
		}
	}
}

func TestExtractTextStripsTags(t *testing.T) {
	got := ExtractText("<p>one two</p><b>three</b>")
	if got != "one two three" {
		t.Fatalf("ExtractText returned %q", got)
	}
	if n := CountWords(got); n != 3 {
		t.Fatalf("expected 3 words, got %d", n)
	}
}

func TestExtractTextAdjacentTagsSeparateWords(t *testing.T) {
	if n := CountWords(ExtractText("alpha<br>beta<hr/>gamma")); n != 3 {
		t.Fatalf("expected tags to separate words, got %d", n)
	}
}

func TestExtractTextCollapsesWhitespace(t *testing.T) {
	got := ExtractText("  <h1>Title</h1>\n\n<p>a\t\tb</p>  ")
	if got != "Title a b" {
		t.Fatalf("ExtractText returned %q", got)
	}
}

func TestEstimateStats(t *testing.T) {
	stats := Estimate("<article>" + words(450) + "</article>")
	if stats.Words != 450 {
		t.Fatalf("expected 450 words, got %d", stats.Words)
	}
	if stats.Minutes != 3 {
		t.Fatalf("expected 3 minutes, got %d", stats.Minutes)
	}
	if stats.Label != "3 min read" {
		t.Fatalf("unexpected label %q", stats.Label)
	}
}

func TestFormat(t *testing.T) {
	if got := Format(0); got != "1 min read" {
		t.Fatalf("Format(0) = %q", got)
	}
	if got := Format(1); got != "1 min read" {
		t.Fatalf("Format(1) = %q", got)
	}
	if got := Format(12); got != "12 min read" {
		t.Fatalf("Format(12) = %q", got)
	}
}

func TestFromText(t *testing.T) {
	if got := FromText(words(250)); got != "2 min read" {
		t.Fatalf("FromText returned %q", got)
	}
}
