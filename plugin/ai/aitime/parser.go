package aitime

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// Patterns for time parsing
var (
	digitalPattern  = regexp.MustCompile(`^(\d{1,2})[:.h](\d{2})(?:[:.](\d{2}))?$`)
	oclockPattern   = regexp.MustCompile(`^(.+?)\s*o'?\s?clock$`)
	relativePattern = regexp.MustCompile(`^(.+?)\s+(past|after|to|before|till|til|of)\s+(.+)$`)
	halfHourPattern = regexp.MustCompile(`^half\s+(.+)$`)
	meridiemPattern = regexp.MustCompile(`^(.*[\d\s])(a\.?m\.?|p\.?m\.?)$`)
	spacePattern    = regexp.MustCompile(`\s+`)
)

// fillerPrefixes are stripped from the front of a phrase before parsing.
var fillerPrefixes = []string{
	"set the clock to ",
	"set the time to ",
	"set it to ",
	"set to ",
	"make it ",
	"it's ",
	"it is ",
	"around ",
	"about ",
	"at ",
}

// meridiemPhrases maps spoken day periods to am/pm, longest first.
var meridiemPhrases = []struct {
	suffix string
	pm     bool
}{
	{" in the afternoon", true},
	{" in the evening", true},
	{" in the morning", false},
	{" at night", true},
	{" tonight", true},
}

// numberWords maps English number words to integers.
var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
}

var tensWords = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
}

type meridiem int

const (
	meridiemNone meridiem = iota
	meridiemAM
	meridiemPM
)

// RuleResolver parses common English time phrases without any network call.
type RuleResolver struct{}

// NewRuleResolver creates a new rule-based resolver.
func NewRuleResolver() *RuleResolver {
	return &RuleResolver{}
}

// Resolve implements Resolver.
func (r *RuleResolver) Resolve(ctx context.Context, phrase string) (*Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return parsePhrase(phrase), nil
}

// normalizePhrase lowercases, unifies punctuation and whitespace, and strips
// filler words. It is also the cache key for CachedResolver.
func normalizePhrase(phrase string) string {
	s := strings.ToLower(strings.TrimSpace(phrase))
	s = strings.ReplaceAll(s, "’", "'")
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.TrimRight(s, ".!?,;")
	s = spacePattern.ReplaceAllString(strings.TrimSpace(s), " ")

	for changed := true; changed; {
		changed = false
		for _, prefix := range fillerPrefixes {
			if rest, ok := strings.CutPrefix(s, prefix); ok {
				s = rest
				changed = true
			}
		}
	}
	return s
}

func parsePhrase(phrase string) *Candidate {
	s, mer := splitMeridiem(normalizePhrase(phrase))
	if s == "" {
		return nil
	}

	switch s {
	case "midnight", "12 midnight", "twelve midnight":
		return &Candidate{Hours: 0}
	case "noon", "midday", "12 noon", "twelve noon":
		return &Candidate{Hours: 12}
	}

	if m := digitalPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		secs := 0
		if m[3] != "" {
			secs, _ = strconv.Atoi(m[3])
		}
		h, ok := applyMeridiem(h, mer)
		if !ok || mins > 59 || secs > 59 {
			return nil
		}
		return &Candidate{Hours: h, Minutes: mins, Seconds: secs}
	}

	if m := oclockPattern.FindStringSubmatch(s); m != nil {
		return hourOnly(m[1], mer)
	}

	if m := halfHourPattern.FindStringSubmatch(s); m != nil {
		if h, ok := hourRef(m[1], mer); ok {
			return &Candidate{Hours: h, Minutes: 30}
		}
	}

	if m := relativePattern.FindStringSubmatch(s); m != nil {
		if c := relative(m[1], m[2], m[3], mer); c != nil {
			return c
		}
	}

	if c := hourOnly(s, mer); c != nil {
		return c
	}

	// "ten thirty", "seven oh five", "twenty three fifteen"
	fields := strings.Fields(s)
	for i := 1; i < len(fields); i++ {
		h, ok := parseNumber(strings.Join(fields[:i], " "))
		if !ok {
			continue
		}
		mins, ok := parseNumber(strings.Join(fields[i:], " "))
		if !ok || mins > 59 {
			continue
		}
		if h, ok = applyMeridiem(h, mer); ok {
			return &Candidate{Hours: h, Minutes: mins}
		}
	}

	return nil
}

// splitMeridiem removes a trailing am/pm marker or day period.
func splitMeridiem(s string) (string, meridiem) {
	for _, p := range meridiemPhrases {
		if rest, ok := strings.CutSuffix(s, p.suffix); ok {
			if p.pm {
				return strings.TrimSpace(rest), meridiemPM
			}
			return strings.TrimSpace(rest), meridiemAM
		}
	}

	if m := meridiemPattern.FindStringSubmatch(s); m != nil {
		mer := meridiemAM
		if strings.HasPrefix(m[2], "p") {
			mer = meridiemPM
		}
		return strings.TrimSpace(m[1]), mer
	}
	return s, meridiemNone
}

// applyMeridiem converts a 12-hour reading to 24-hour form.
func applyMeridiem(h int, mer meridiem) (int, bool) {
	switch mer {
	case meridiemAM:
		if h < 1 || h > 12 {
			return 0, false
		}
		if h == 12 {
			return 0, true
		}
		return h, true
	case meridiemPM:
		if h < 1 || h > 12 {
			return 0, false
		}
		if h < 12 {
			return h + 12, true
		}
		return h, true
	default:
		return h, h >= 0 && h <= 23
	}
}

func hourOnly(s string, mer meridiem) *Candidate {
	h, ok := hourRef(s, mer)
	if !ok {
		return nil
	}
	return &Candidate{Hours: h}
}

// hourRef reads the hour a relative phrase points at.
func hourRef(s string, mer meridiem) (int, bool) {
	switch s {
	case "noon", "midday":
		return 12, true
	case "midnight":
		return 0, true
	}
	h, ok := parseNumber(s)
	if !ok {
		return 0, false
	}
	return applyMeridiem(h, mer)
}

// relative handles "quarter past ten", "20 minutes to six", "half past noon".
func relative(offset, direction, ref string, mer meridiem) *Candidate {
	var n int
	switch strings.TrimPrefix(offset, "a ") {
	case "quarter":
		n = 15
	case "half":
		if direction != "past" && direction != "after" {
			return nil
		}
		n = 30
	default:
		trimmed := offset
		for _, unit := range []string{" minutes", " minute", " mins", " min"} {
			if rest, ok := strings.CutSuffix(trimmed, unit); ok {
				trimmed = rest
				break
			}
		}
		var ok bool
		n, ok = parseNumber(trimmed)
		if !ok || n < 1 || n > 59 {
			return nil
		}
	}

	base, ok := hourRef(ref, mer)
	if !ok {
		return nil
	}

	total := base * 60
	switch direction {
	case "past", "after":
		total += n
	default:
		total -= n
	}
	total = (total + 24*60) % (24 * 60)
	return &Candidate{Hours: total / 60, Minutes: total % 60}
}

// parseNumber reads digits or English number words up to fifty-nine.
func parseNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, n >= 0
	}
	if rest, ok := strings.CutPrefix(s, "oh "); ok {
		n, ok := numberWords[rest]
		return n, ok && n > 0 && n < 10
	}
	if n, ok := numberWords[s]; ok {
		return n, true
	}
	parts := strings.Fields(s)
	if len(parts) == 2 {
		tens, ok1 := tensWords[parts[0]]
		ones, ok2 := numberWords[parts[1]]
		if ok1 && ok2 && ones > 0 && ones < 10 {
			return tens + ones, true
		}
	}
	return 0, false
}

var _ Resolver = (*RuleResolver)(nil)
