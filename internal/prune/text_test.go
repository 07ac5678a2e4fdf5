package prune

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPreview(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short", in: "CT uses X-rays.", max: 40, want: "CT uses X-rays."},
		{name: "flattens whitespace", in: "line one\n\nline  two", max: 40, want: "line one line two"},
		{name: "cuts long", in: strings.Repeat("a", 10), max: 4, want: "aaaa..."},
		{name: "default budget", in: strings.Repeat("b", DefaultMaxBytes+1), max: 0, want: strings.Repeat("b", DefaultMaxBytes) + "..."},
	}
	for _, tc := range cases {
		if got := Preview(tc.in, tc.max); got != tc.want {
			t.Fatalf("%s: want %q got %q", tc.name, tc.want, got)
		}
	}
}

func TestPreviewKeepsRunesWhole(t *testing.T) {
	t.Parallel()

	got := Preview("radiografía de tórax", 10)
	if !utf8.ValidString(got) {
		t.Fatalf("preview split a rune: %q", got)
	}
	if got != "radiograf..." {
		t.Fatalf("unexpected preview: %q", got)
	}
}
