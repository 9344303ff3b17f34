// Package classify holds pure pattern-matching classifiers used around the
// prompt assembler: extracting a visitor's name from conversation history and
// spotting jailbreak attempts. Both are deterministic and independently
// testable; neither mutates its input.
package classify

import (
	"regexp"
	"strings"

	"github.com/nmoreau/askme/internal/chat"
)

// First-person introduction patterns in English and French. The capture
// group is the candidate name; apostrophe variants cover both ASCII and the
// typographic quote French keyboards produce.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy name is ([A-Za-zÀ-ÖØ-öø-ÿ][A-Za-zÀ-ÖØ-öø-ÿ'’-]{1,30})`),
	regexp.MustCompile(`(?i)\bcall me ([A-Za-zÀ-ÖØ-öø-ÿ][A-Za-zÀ-ÖØ-öø-ÿ'’-]{1,30})`),
	regexp.MustCompile(`(?i)\bi(?:'|’)?m ([A-Za-zÀ-ÖØ-öø-ÿ][A-Za-zÀ-ÖØ-öø-ÿ'’-]{1,30})`),
	regexp.MustCompile(`(?i)\bi am ([A-Za-zÀ-ÖØ-öø-ÿ][A-Za-zÀ-ÖØ-öø-ÿ'’-]{1,30})`),
	regexp.MustCompile(`(?i)\bje m(?:'|’)appelle ([A-Za-zÀ-ÖØ-öø-ÿ][A-Za-zÀ-ÖØ-öø-ÿ'’-]{1,30})`),
	regexp.MustCompile(`(?i)\bje suis ([A-Za-zÀ-ÖØ-öø-ÿ][A-Za-zÀ-ÖØ-öø-ÿ'’-]{1,30})`),
	regexp.MustCompile(`(?i)\bmoi c(?:'|’)est ([A-Za-zÀ-ÖØ-öø-ÿ][A-Za-zÀ-ÖØ-öø-ÿ'’-]{1,30})`),
}

// Common words that legitimately follow "I am" / "je suis" but are not
// names. Lower-cased.
var nameStoplist = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "not": {}, "just": {}, "so": {},
	"sure": {}, "sorry": {}, "here": {}, "very": {}, "really": {},
	"looking": {}, "trying": {}, "wondering": {},
	"interested": {}, "curious": {}, "new": {}, "good": {}, "fine": {},
	"un": {}, "une": {}, "le": {}, "la": {}, "pas": {}, "très": {},
	"désolé": {}, "désolée": {}, "ici": {}, "là": {}, "en": {},
	"curieux": {}, "curieuse": {}, "nouveau": {}, "nouvelle": {},
	"intéressé": {}, "intéressée": {}, "recruteur": {}, "recruteuse": {},
}

// ExtractUserName scans the history for a first-person introduction,
// starting from the most recent user message and walking backward. It
// returns the title-cased name, or "" when nothing credible is found.
func ExtractUserName(history []chat.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != chat.RoleUser {
			continue
		}
		if name := extractFrom(history[i].Content); name != "" {
			return name
		}
	}
	return ""
}

func extractFrom(content string) string {
	for _, re := range namePatterns {
		m := re.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		candidate := strings.Trim(m[1], "'’-")
		if candidate == "" {
			continue
		}
		if _, stopped := nameStoplist[strings.ToLower(candidate)]; stopped {
			continue
		}
		return titleCase(candidate)
	}
	return ""
}

func titleCase(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	return string(runes)
}
