// Package knowledge loads and validates the bilingual Q&A knowledge base
// describing the profile owner. The base is read once at startup and treated
// as an immutable table for the process lifetime; concurrent reads need no
// locking.
package knowledge

import (
	"fmt"

	"github.com/nmoreau/askme/internal/chat"
)

// Entry is one immutable Q&A record. Question and Answer map a language code
// (en, fr) to text; both languages must be present and non-empty.
type Entry struct {
	ID       string            `json:"id"`
	Topic    string            `json:"topic"`
	Question map[string]string `json:"question"`
	Answer   map[string]string `json:"answer"`
	Tags     []string          `json:"tags"`
}

// QuestionIn returns the question text for lang, falling back to English.
func (e Entry) QuestionIn(lang string) string {
	if q, ok := e.Question[lang]; ok && q != "" {
		return q
	}
	return e.Question[chat.LangEN]
}

// AnswerIn returns the answer text for lang, falling back to English.
func (e Entry) AnswerIn(lang string) string {
	if a, ok := e.Answer[lang]; ok && a != "" {
		return a
	}
	return e.Answer[chat.LangEN]
}

// Base is the loaded knowledge base. Entries preserve dataset order, which
// retrieval uses as the tie-breaker for equal scores.
type Base struct {
	Entries []Entry
}

var languages = []string{chat.LangEN, chat.LangFR}

// Validate checks structural invariants: at least minEntries records, unique
// IDs, and both language variants present and non-empty on every entry.
func (b *Base) Validate(minEntries int) error {
	if len(b.Entries) < minEntries {
		return fmt.Errorf("knowledge base has %d entries, need at least %d", len(b.Entries), minEntries)
	}
	seen := make(map[string]struct{}, len(b.Entries))
	for i, e := range b.Entries {
		if e.ID == "" {
			return fmt.Errorf("entry %d: empty id", i)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("entry %d: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = struct{}{}
		if e.Topic == "" {
			return fmt.Errorf("entry %q: empty topic", e.ID)
		}
		for _, lang := range languages {
			if e.Question[lang] == "" {
				return fmt.Errorf("entry %q: missing %s question", e.ID, lang)
			}
			if e.Answer[lang] == "" {
				return fmt.Errorf("entry %q: missing %s answer", e.ID, lang)
			}
		}
	}
	return nil
}

// Topics returns the distinct topic names in dataset order.
func (b *Base) Topics() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range b.Entries {
		if _, ok := seen[e.Topic]; ok {
			continue
		}
		seen[e.Topic] = struct{}{}
		out = append(out, e.Topic)
	}
	return out
}
