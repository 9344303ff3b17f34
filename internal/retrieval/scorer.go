// Package retrieval ranks knowledge-base entries against a free-text query.
// The scorer is a transparent, deterministic rank-and-filter with no model or
// external dependency: identical inputs always produce identical output.
package retrieval

import (
	"strings"
	"unicode/utf8"

	"github.com/nmoreau/askme/internal/knowledge"
)

// Substring and token weights. Question matches dominate, tags outrank
// answers because tag vocabulary is curated.
const (
	questionMatchWeight = 10
	answerMatchWeight   = 5
	tagMatchWeight      = 7

	questionTokenWeight = 2
	answerTokenWeight   = 1
	tagTokenWeight      = 3

	minTokenLength = 4
)

// Score computes the relevance of entry e to query in the given language.
// The accumulated points are divided by (qualifying query tokens + 1) so
// longer queries do not score higher just by carrying more tokens.
func Score(e knowledge.Entry, query, lang string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}

	question := strings.ToLower(e.QuestionIn(lang))
	answer := strings.ToLower(e.AnswerIn(lang))
	tags := strings.ToLower(strings.Join(e.Tags, " "))

	var points float64
	if strings.Contains(question, q) {
		points += questionMatchWeight
	}
	if strings.Contains(answer, q) {
		points += answerMatchWeight
	}
	if strings.Contains(tags, q) {
		points += tagMatchWeight
	}

	var qualifying int
	for _, tok := range strings.Fields(q) {
		// Rune count, not byte length: accented French tokens like "été"
		// are 3 characters and must not qualify.
		if utf8.RuneCountInString(tok) < minTokenLength {
			continue
		}
		qualifying++
		if strings.Contains(question, tok) {
			points += questionTokenWeight
		}
		if strings.Contains(answer, tok) {
			points += answerTokenWeight
		}
		if strings.Contains(tags, tok) {
			points += tagTokenWeight
		}
	}

	return points / float64(qualifying+1)
}
