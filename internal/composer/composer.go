// Package composer assembles the provider-agnostic message list for one chat
// turn: persona system prompt, retrieved knowledge context, a bounded rolling
// window of prior turns, and the new user message. Assembly is pure — given
// identical inputs it produces byte-identical output.
package composer

import (
	"github.com/nmoreau/askme/internal/chat"
	"github.com/nmoreau/askme/internal/classify"
	"github.com/nmoreau/askme/internal/retrieval"
)

// Ellipsis marks content cut by the per-message length limit.
const Ellipsis = "…"

// Composer builds chat message lists around the persona of the profile
// owner. Safe for concurrent use; all state is read-only after construction.
type Composer struct {
	retriever    *retrieval.Retriever
	personaName  string
	personaTitle string
}

// New creates a Composer for the given persona.
func New(retriever *retrieval.Retriever, personaName, personaTitle string) *Composer {
	return &Composer{
		retriever:    retriever,
		personaName:  personaName,
		personaTitle: personaTitle,
	}
}

// BuildMessages assembles [system] + trimmed history + [user message].
//
// Knowledge context is retrieved for userMsg; when userName is empty a name
// is extracted from the history introductions. History keeps only the last
// MaxHistoryTurns*2 messages (oldest trimmed first), and every individual
// content — history and new — longer than MaxMessageLength runes is cut to
// exactly that length plus the ellipsis marker.
func (c *Composer) BuildMessages(userMsg string, history []chat.Message, cfg chat.PromptConfig, userName string) []chat.Message {
	entries := c.retriever.FindRelevant(userMsg, cfg)

	if userName == "" {
		userName = classify.ExtractUserName(history)
	}

	system := renderSystemPrompt(c.personaName, c.personaTitle, userName, entries, cfg)

	window := historyWindow(history, cfg.MaxHistoryTurns)

	out := make([]chat.Message, 0, len(window)+2)
	out = append(out, chat.Message{Role: chat.RoleSystem, Content: system})
	for _, m := range window {
		m.Content = truncate(m.Content, cfg.MaxMessageLength)
		out = append(out, m)
	}
	out = append(out, chat.Message{
		Role:    chat.RoleUser,
		Content: truncate(userMsg, cfg.MaxMessageLength),
	})
	return out
}

// historyWindow keeps the most recent maxTurns*2 messages; a turn is one
// user plus one assistant message.
func historyWindow(history []chat.Message, maxTurns int) []chat.Message {
	if maxTurns <= 0 {
		return nil
	}
	keep := maxTurns * 2
	if len(history) <= keep {
		return history
	}
	return history[len(history)-keep:]
}

// truncate cuts content to exactly limit runes plus the ellipsis marker.
func truncate(content string, limit int) string {
	if limit <= 0 {
		return content
	}
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + Ellipsis
}
