package normalize

import (
	"strings"
	"testing"
)

func TestName(t *testing.T) {
	display, key, ok := Name("  Alice  ")
	if !ok || display != "Alice" || key != "alice" {
		t.Fatalf("Name: got (%q, %q, %v)", display, key, ok)
	}
	// Diacritics and width are preserved for free names.
	display, key, ok = Name("Ｃａｆé")
	if !ok || display != "Ｃａｆé" || key != "ｃａｆé" {
		t.Fatalf("Name width/diacritics: got (%q, %q, %v)", display, key, ok)
	}
	if _, _, ok := Name("   "); ok {
		t.Fatal("Name accepted blank input")
	}
}

func TestBoundedName(t *testing.T) {
	if _, ok := BoundedName(strings.Repeat("あ", 11), PersonNameMaxLength); ok {
		t.Fatal("11 runes accepted with limit 10")
	}
	if got, ok := BoundedName(strings.Repeat("あ", 10), PersonNameMaxLength); !ok || got != strings.Repeat("あ", 10) {
		t.Fatalf("10 runes rejected: (%q, %v)", got, ok)
	}
	// A flag emoji is two code points but one grapheme.
	flags := strings.Repeat("🇯🇵", 10)
	if _, ok := BoundedName(flags, PersonNameMaxLength); !ok {
		t.Fatal("10 grapheme clusters rejected; counting code points instead of graphemes?")
	}
	if _, ok := BoundedName("", ProjectNameMaxLength); ok {
		t.Fatal("empty input accepted")
	}
}

func TestClampBody(t *testing.T) {
	short := "short body"
	if got := ClampBody(short); got != short {
		t.Fatalf("clamped short body: %q", got)
	}

	// 799 two-code-point emoji plus trailing content: the final kept
	// grapheme must not be split.
	in := strings.Repeat("🇯🇵", 799) + "and more trailing text"
	got := ClampBody(in)
	want := strings.Repeat("🇯🇵", 799) + "a"
	if got != want {
		t.Fatalf("clamp boundary wrong: len=%d", len(got))
	}

	all := strings.Repeat("🇯🇵", 900)
	got = ClampBody(all)
	if got != strings.Repeat("🇯🇵", 800) {
		t.Fatalf("clamp split a grapheme: len=%d", len(got))
	}
}
