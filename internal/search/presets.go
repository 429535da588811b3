package search

import "strings"

// MediaPresets is the closed media-type enumeration in preset order.
var MediaPresets = []string{"YouTube", "ラジオ", "ポッドキャスト", "テレビ", "イベント", "その他"}

// ReactionPresets is the closed reaction enumeration in preset order.
var ReactionPresets = []string{"良い", "普通", "悪い"}

// TalkCountBuckets lists the suggested talk-count values in preset order.
var TalkCountBuckets = []string{"1回", "3回以上", "5回以上", "10回以上"}

// mediaAliases maps exact (case-folded) aliases onto media presets.
var mediaAliases = map[string]string{
	"youtube": "YouTube",
	"radio":   "ラジオ",
	"podcast": "ポッドキャスト",
	"tv":      "テレビ",
	"event":   "イベント",
	"other":   "その他",
	"etc":     "その他",
}

// mediaKeywords maps Japanese keyword containment onto media presets,
// checked in order.
var mediaKeywords = []struct{ keyword, preset string }{
	{"ようつべ", "YouTube"},
	{"ユーチューブ", "YouTube"},
	{"らじお", "ラジオ"},
	{"ぽっどきゃすと", "ポッドキャスト"},
	{"てれび", "テレビ"},
	{"いべんと", "イベント"},
	{"そのた", "その他"},
}

var reactionAliases = map[string]string{
	"good": "良い",
	"ok":   "普通",
	"bad":  "悪い",
	"○":    "良い",
	"〇":    "良い",
	"△":    "普通",
	"×":    "悪い",
	"x":    "悪い",
}

var reactionKeywords = []struct{ keyword, preset string }{
	{"よい", "良い"},
	{"よかった", "良い"},
	{"ふつう", "普通"},
	{"わるい", "悪い"},
	{"だめ", "悪い"},
}

// CanonicalMediaType maps an alias (romanized name, Japanese keyword) onto
// its media preset. Unrecognized input passes through trimmed.
func CanonicalMediaType(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, preset := range MediaPresets {
		if strings.EqualFold(s, preset) {
			return preset
		}
	}
	if preset, ok := mediaAliases[strings.ToLower(s)]; ok {
		return preset
	}
	for _, kw := range mediaKeywords {
		if strings.Contains(s, kw.keyword) {
			return kw.preset
		}
	}
	return s
}

// CanonicalReaction maps an alias (romanized name, symbol, Japanese
// keyword) onto its reaction preset. Unrecognized input passes through
// trimmed.
func CanonicalReaction(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, preset := range ReactionPresets {
		if s == preset {
			return preset
		}
	}
	if preset, ok := reactionAliases[strings.ToLower(s)]; ok {
		return preset
	}
	for _, kw := range reactionKeywords {
		if strings.Contains(s, kw.keyword) {
			return kw.preset
		}
	}
	return s
}

// presetOrder returns the fixed suggestion order for a field's values and
// whether the field has one. Values outside the preset list sort after it.
func presetOrder(f Field) ([]string, bool) {
	switch f {
	case FieldTalkCount:
		return TalkCountBuckets, true
	case FieldLastTalkedAt, FieldRegisteredDate:
		return DateBuckets, true
	case FieldMediaType:
		return MediaPresets, true
	case FieldReaction:
		return ReactionPresets, true
	case FieldTag, FieldPerson, FieldProject, FieldEmotion, FieldPlace:
		return nil, false
	}
	return nil, false
}
