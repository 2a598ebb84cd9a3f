package overview

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Ellipsis marks a truncated overview.
const Ellipsis = "…"

// spaceClass matches exactly the runes unicode.IsSpace reports, so the
// patterns below agree with strings.TrimSpace. RE2's \s alone is ASCII only.
const spaceClass = `\s\v\x{85}\p{Z}`

var (
	linkPattern      = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^` + spaceClass + `]*`)
	tokenPattern     = regexp.MustCompile(`[^` + spaceClass + `]+`)
	hashtagPattern   = regexp.MustCompile(`^#[\p{L}\p{N}_]*\p{L}[\p{L}\p{N}_]*[.,;:!?)]*$`)
	inlineSpaceRun   = regexp.MustCompile(`[\t\v\f\r\x{85}\p{Z} ]+`)
	separatorGlyphs  = "-=*_~+•·"
	minSeparatorRuns = 3
)

// NormalizeUnicode converts text to NFC, unifies line endings to \n and turns
// every other whitespace rune, such as a non-breaking space, into ' '.
func NormalizeUnicode() Rule {
	return RuleFunc{RuleName: "normalize_unicode", Fn: func(text string) string {
		text = strings.ReplaceAll(text, "\r\n", "\n")
		text = strings.ReplaceAll(text, "\r", "\n")
		return strings.Map(plainSpace, norm.NFC.String(text))
	}}
}

func plainSpace(r rune) rune {
	if r != '\n' && unicode.IsSpace(r) {
		return ' '
	}
	return r
}

// StripLinks removes http(s) and www. URLs, up to the next whitespace.
func StripLinks() Rule {
	return RuleFunc{RuleName: "strip_links", Fn: func(text string) string {
		return linkPattern.ReplaceAllString(text, "")
	}}
}

// StripHashtags removes whitespace-delimited #tag tokens. Tokens without a
// letter, such as "#1", are kept.
func StripHashtags() Rule {
	return RuleFunc{RuleName: "strip_hashtags", Fn: func(text string) string {
		return tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
			if hashtagPattern.MatchString(token) {
				return ""
			}
			return token
		})
	}}
}

// StripSeparators drops lines made only of separator glyphs such as "-----".
func StripSeparators() Rule {
	return RuleFunc{RuleName: "strip_separators", Fn: func(text string) string {
		lines := strings.Split(text, "\n")
		kept := lines[:0]
		for _, line := range lines {
			if isSeparatorLine(line) {
				continue
			}
			kept = append(kept, line)
		}
		return strings.Join(kept, "\n")
	}}
}

func isSeparatorLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if utf8.RuneCountInString(trimmed) < minSeparatorRuns {
		return false
	}
	for _, r := range trimmed {
		if !strings.ContainsRune(separatorGlyphs, r) {
			return false
		}
	}
	return true
}

// CollapseWhitespace trims every line, collapses runs of spaces and tabs,
// keeps at most one blank line in a row and trims the whole text.
func CollapseWhitespace() Rule {
	return RuleFunc{RuleName: "collapse_whitespace", Fn: func(text string) string {
		lines := strings.Split(text, "\n")
		out := make([]string, 0, len(lines))
		blank := false
		for _, line := range lines {
			line = inlineSpaceRun.ReplaceAllString(strings.TrimSpace(line), " ")
			if line == "" {
				if blank {
					continue
				}
				blank = true
			} else {
				blank = false
			}
			out = append(out, line)
		}
		return strings.TrimSpace(strings.Join(out, "\n"))
	}}
}

// Truncate shortens text longer than maxRunes to maxRunes runes followed by
// Ellipsis. A non-positive maxRunes disables the rule.
func Truncate(maxRunes int) Rule {
	return RuleFunc{RuleName: "truncate", Fn: func(text string) string {
		if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
			return text
		}
		runes := []rune(text)
		return strings.TrimSpace(string(runes[:maxRunes])) + Ellipsis
	}}
}
