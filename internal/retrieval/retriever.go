package retrieval

import (
	"sort"

	"github.com/nmoreau/askme/internal/chat"
	"github.com/nmoreau/askme/internal/knowledge"
)

// Scored pairs an entry with its relevance score.
type Scored struct {
	Entry knowledge.Entry
	Score float64
}

// Retriever selects relevant knowledge-base entries for a query. The base is
// immutable after load, so a Retriever is safe for concurrent use.
type Retriever struct {
	base *knowledge.Base
}

// New creates a Retriever over the loaded knowledge base.
func New(base *knowledge.Base) *Retriever {
	return &Retriever{base: base}
}

// FindRelevant returns at most cfg.MaxContextEntries entries whose score in
// cfg.Language reaches cfg.RelevanceThreshold, sorted by score descending.
// Ties keep the original dataset order (stable sort).
func (r *Retriever) FindRelevant(query string, cfg chat.PromptConfig) []Scored {
	if cfg.MaxContextEntries <= 0 {
		return nil
	}

	scored := make([]Scored, 0, len(r.base.Entries))
	for _, e := range r.base.Entries {
		s := Score(e, query, cfg.Language)
		if s >= cfg.RelevanceThreshold && s > 0 {
			scored = append(scored, Scored{Entry: e, Score: s})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > cfg.MaxContextEntries {
		scored = scored[:cfg.MaxContextEntries]
	}
	return scored
}
