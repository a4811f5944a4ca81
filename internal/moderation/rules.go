package moderation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// RedactedEmail replaces every email address in sanitized content.
	RedactedEmail = "[EMAIL_REMOVED]"

	cleanConfidence   = 0.1
	flaggedConfidence = 0.7

	// Text longer than this that is entirely upper case counts as shouting.
	shoutingMinLength = 15
)

var emailPattern = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z0-9-]{2,}`)

// emojiRanges covers the pictographic blocks. The unicode package has no
// Emoji property, so the blocks are listed explicitly.
var emojiRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2190, Hi: 0x21ff, Stride: 1}, // arrows
		{Lo: 0x2300, Hi: 0x23ff, Stride: 1}, // misc technical
		{Lo: 0x2600, Hi: 0x27bf, Stride: 1}, // misc symbols, dingbats
		{Lo: 0x2b00, Hi: 0x2bff, Stride: 1},
		{Lo: 0x3030, Hi: 0x3030, Stride: 1},
		{Lo: 0x303d, Hi: 0x303d, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1f000, Hi: 0x1faff, Stride: 1},
	},
}

// RuleEngine is an offline, deterministic classifier. It performs no I/O
// and is safe for concurrent use.
type RuleEngine struct {
	keywords []string
}

// NewRuleEngine returns a RuleEngine with the built-in keyword list.
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{
		keywords: []string{"spam", "scam", "fake"},
	}
}

// Evaluate classifies text. Every input, including the empty string,
// produces a verdict.
func (e *RuleEngine) Evaluate(text string) Verdict {
	violations := []Violation{}

	if isSpam(text) {
		violations = append(violations, ViolationSpam)
	}
	if emailPattern.MatchString(text) {
		violations = append(violations, ViolationPersonalInfo)
	}
	if e.hasKeyword(text) {
		violations = append(violations, ViolationProfanity)
	}

	v := Verdict{
		ID:         uuid.NewString(),
		Allowed:    len(violations) == 0,
		Confidence: cleanConfidence,
		Violations: violations,
		Source:     SourceRules,
	}
	if !v.Allowed {
		v.Confidence = flaggedConfidence
		sanitized := Sanitize(text)
		v.SanitizedContent = &sanitized
	}
	return v
}

// Sanitize redacts email addresses and trims surrounding whitespace.
// Spam and keyword matches are left untouched.
func Sanitize(text string) string {
	return strings.TrimSpace(emailPattern.ReplaceAllString(text, RedactedEmail))
}

func (e *RuleEngine) hasKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range e.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func isSpam(text string) bool {
	length := utf8.RuneCountInString(text)
	if length == 0 {
		return false
	}

	emoji := 0
	for _, r := range text {
		if unicode.Is(emojiRanges, r) {
			emoji++
		}
	}
	if float64(emoji) > float64(length)/3 {
		return true
	}

	return length > shoutingMinLength && text == strings.ToUpper(text)
}
