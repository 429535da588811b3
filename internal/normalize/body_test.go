package normalize

import (
	"strings"
	"testing"

	"github.com/rivo/uniseg"
)

func TestClampBodyShortInputUntouched(t *testing.T) {
	for _, in := range []string{"", "こんにちは", strings.Repeat("あ", BodyMaxLength)} {
		if got := ClampBody(in); got != in {
			t.Errorf("ClampBody(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestClampBodyTruncatesAtLimit(t *testing.T) {
	in := strings.Repeat("あ", BodyMaxLength+100)
	got := ClampBody(in)
	if n := uniseg.GraphemeClusterCount(got); n != BodyMaxLength {
		t.Errorf("clamped body has %d graphemes, want %d", n, BodyMaxLength)
	}
	if !strings.HasPrefix(in, got) {
		t.Error("clamped body is not a prefix of the input")
	}
}

func TestClampBodyKeepsClustersIntact(t *testing.T) {
	// Family emoji: one grapheme cluster built from multiple code points.
	family := "👨‍👩‍👧‍👦"
	in := strings.Repeat("x", BodyMaxLength-1) + family + family
	got := ClampBody(in)
	if n := uniseg.GraphemeClusterCount(got); n != BodyMaxLength {
		t.Fatalf("clamped body has %d graphemes, want %d", n, BodyMaxLength)
	}
	if !strings.HasSuffix(got, family) {
		t.Error("boundary cluster was split or dropped")
	}
	if !strings.HasPrefix(in, got) {
		t.Error("clamped body is not a prefix of the input")
	}
}
