package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TalkCountCriterion is a parsed talk-count constraint: exactly N or at
// least N active unlock logs.
type TalkCountCriterion struct {
	N       int
	AtLeast bool
}

// Matches reports whether a log count satisfies the criterion.
func (c TalkCountCriterion) Matches(count int) bool {
	if c.AtLeast {
		return count >= c.N
	}
	return count == c.N
}

// parseTalkCount accepts "<N>回", "<N>回以上" and "<N>+" after width
// folding.
func parseTalkCount(s string) (TalkCountCriterion, bool) {
	s = strings.TrimSpace(foldWidth(s))
	if rest, ok := strings.CutSuffix(s, "回以上"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n >= 0 {
			return TalkCountCriterion{N: n, AtLeast: true}, true
		}
		return TalkCountCriterion{}, false
	}
	if rest, ok := strings.CutSuffix(s, "回"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n >= 0 {
			return TalkCountCriterion{N: n}, true
		}
		return TalkCountCriterion{}, false
	}
	if rest, ok := strings.CutSuffix(s, "+"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n >= 0 {
			return TalkCountCriterion{N: n, AtLeast: true}, true
		}
	}
	return TalkCountCriterion{}, false
}

// canonicalTalkCount renders a parseable talk-count value as "<N>回" or
// "<N>回以上". Unparseable input passes through folded and trimmed so it
// stays visible to the user as an inert token.
func canonicalTalkCount(raw string) string {
	c, ok := parseTalkCount(raw)
	if !ok {
		return strings.TrimSpace(foldWidth(raw))
	}
	if c.AtLeast {
		return fmt.Sprintf("%d回以上", c.N)
	}
	return fmt.Sprintf("%d回", c.N)
}

// dateCriterionKind tags the DateCriterion variants.
type dateCriterionKind int

const (
	dateWithinDays dateCriterionKind = iota
	dateThisYear
	dateRange
)

// DateCriterion is a parsed date constraint: a named relative bucket
// ("within last N days", "this calendar year") or an explicit range with
// optional open bounds. Bounds are whole civil days, inclusive.
type DateCriterion struct {
	kind dateCriterionKind
	days int
	from *time.Time
	to   *time.Time
}

// DateBuckets lists the named relative buckets in preset order.
var DateBuckets = []string{"7日以内", "30日以内", "90日以内", "今年"}

const dateLayout = "2006/01/02"

var dateParseLayouts = []string{"2006/01/02", "2006/1/2", "2006-01-02", "2006-1-2"}

var rangeSeparators = []string{"~", "〜", ".."}

// Matches reports whether d satisfies the criterion relative to now,
// comparing whole civil days in local time.
func (c DateCriterion) Matches(d, now time.Time) bool {
	day := civilDay(d)
	today := civilDay(now)
	switch c.kind {
	case dateWithinDays:
		earliest := today.AddDate(0, 0, -(c.days - 1))
		return !day.Before(earliest) && !day.After(today)
	case dateThisYear:
		return day.Year() == today.Year()
	case dateRange:
		if c.from != nil && day.Before(*c.from) {
			return false
		}
		if c.to != nil && day.After(*c.to) {
			return false
		}
		return true
	}
	return false
}

func civilDay(t time.Time) time.Time {
	l := t.Local()
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.Local)
}

// parseDateCriterion accepts a named bucket or an "A~B"/"A〜B"/"A..B"
// range after width folding. A one-sided range is an open bound; a
// two-sided range is reordered so the earlier date starts it.
func parseDateCriterion(s string) (DateCriterion, bool) {
	s = strings.TrimSpace(foldWidth(s))
	switch s {
	case "7日以内":
		return DateCriterion{kind: dateWithinDays, days: 7}, true
	case "30日以内":
		return DateCriterion{kind: dateWithinDays, days: 30}, true
	case "90日以内":
		return DateCriterion{kind: dateWithinDays, days: 90}, true
	case "今年", "当年":
		return DateCriterion{kind: dateThisYear}, true
	}

	for _, sep := range rangeSeparators {
		before, after, found := strings.Cut(s, sep)
		if !found {
			continue
		}
		before = strings.TrimSpace(before)
		after = strings.TrimSpace(after)
		if before == "" && after == "" {
			return DateCriterion{}, false
		}
		var from, to *time.Time
		if before != "" {
			d, ok := parseCivilDate(before)
			if !ok {
				return DateCriterion{}, false
			}
			from = &d
		}
		if after != "" {
			d, ok := parseCivilDate(after)
			if !ok {
				return DateCriterion{}, false
			}
			to = &d
		}
		if from != nil && to != nil && from.After(*to) {
			from, to = to, from
		}
		return DateCriterion{kind: dateRange, from: from, to: to}, true
	}
	return DateCriterion{}, false
}

func parseCivilDate(s string) (time.Time, bool) {
	for _, layout := range dateParseLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// canonicalDateValue renders buckets under their canonical names and
// ranges as "yyyy/MM/dd~yyyy/MM/dd" with open sides left blank.
// Unparseable values pass through folded and trimmed, kept as inert
// tokens rather than rejected.
func canonicalDateValue(raw string) string {
	c, ok := parseDateCriterion(raw)
	if !ok {
		return strings.TrimSpace(foldWidth(raw))
	}
	switch c.kind {
	case dateWithinDays:
		return fmt.Sprintf("%d日以内", c.days)
	case dateThisYear:
		return "今年"
	case dateRange:
		var from, to string
		if c.from != nil {
			from = c.from.Format(dateLayout)
		}
		if c.to != nil {
			to = c.to.Format(dateLayout)
		}
		return from + "~" + to
	}
	return strings.TrimSpace(foldWidth(raw))
}
