// Package textx contains tests for the text utilities.
package textx

import "testing"

func TestSanitizeText(t *testing.T) {
	in := "he\x00llo\nwo\x7frld\t!"
	got := SanitizeText(in)
	if got != "hello\nworld\t!" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestCollapseSpaces(t *testing.T) {
	got := CollapseSpaces("  Go \n\n developer\t\x00with   k8s ")
	if got != "Go developer with k8s" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"héllo", 2, "hé"},
		{"abc", 0, "abc"},
		{"abc", 5, "abc"},
		{"abc", 3, "abc"},
	}
	for _, c := range cases {
		if got := Truncate(c.in, c.n); got != c.want {
			t.Fatalf("Truncate(%q,%d)=%q want %q", c.in, c.n, got, c.want)
		}
	}
}
