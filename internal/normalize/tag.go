// Package normalize turns raw user input into canonical display forms and
// comparison keys. All functions are pure; failure is an absent result,
// never an error.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// TagNameMaxLength is the tag length limit in code points, measured after
// normalization.
const TagNameMaxLength = 20

// Tag normalizes a raw tag input: strips leading '#'/'＃' repetitions,
// applies NFKC compatibility folding, removes every Unicode whitespace code
// point and lowercases. The result is both display name and comparison key;
// ok is false when nothing is left.
func Tag(raw string) (string, bool) {
	s := stripHashPrefix(raw)
	s = norm.NFKC.String(s)
	s = removeWhitespace(s)
	s = strings.ToLower(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// TagNameVerdict classifies the outcome of ValidateTagName.
type TagNameVerdict int

const (
	TagNameValid TagNameVerdict = iota
	TagNameEmpty
	TagNameTooLong
	TagNameDisallowed
)

func (v TagNameVerdict) String() string {
	switch v {
	case TagNameValid:
		return "valid"
	case TagNameEmpty:
		return "empty"
	case TagNameTooLong:
		return "tooLong"
	case TagNameDisallowed:
		return "disallowed"
	}
	return "unknown"
}

// TagNameResult is the tagged outcome of interactive tag-name validation.
// Name is set only for TagNameValid; Limit only for TagNameTooLong.
type TagNameResult struct {
	Verdict TagNameVerdict
	Name    string
	Limit   int
}

// ValidateTagName runs the tag pipeline but reports why an input is
// unusable instead of silently repairing it. Checks apply in order: empty,
// whitespace presence (any whitespace surviving hash-stripping and NFKC is
// rejected rather than stripped), length, character class.
func ValidateTagName(raw string) TagNameResult {
	s := stripHashPrefix(raw)
	s = norm.NFKC.String(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return TagNameResult{Verdict: TagNameEmpty}
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return TagNameResult{Verdict: TagNameDisallowed}
	}
	name := strings.ToLower(s)
	if utf8.RuneCountInString(name) > TagNameMaxLength {
		return TagNameResult{Verdict: TagNameTooLong, Limit: TagNameMaxLength}
	}
	for _, r := range name {
		if !allowedTagRune(r) {
			return TagNameResult{Verdict: TagNameDisallowed}
		}
	}
	return TagNameResult{Verdict: TagNameValid, Name: name}
}

// allowedTagRune permits Hiragana, Katakana, Han ideographs, ASCII
// letters/digits and the prolonged-sound mark. Symbols and emoji are out.
func allowedTagRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == 'ー': // U+30FC, script Common, not covered by Katakana below
		return true
	case unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r), unicode.Is(unicode.Han, r):
		return true
	}
	return false
}

// stripHashPrefix removes any number of leading '#'/'＃' characters,
// trimming whitespace between repetitions.
func stripHashPrefix(s string) string {
	for {
		s = strings.TrimSpace(s)
		if rest, ok := strings.CutPrefix(s, "#"); ok {
			s = rest
			continue
		}
		if rest, ok := strings.CutPrefix(s, "＃"); ok {
			s = rest
			continue
		}
		return s
	}
}

func removeWhitespace(s string) string {
	if strings.IndexFunc(s, unicode.IsSpace) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
