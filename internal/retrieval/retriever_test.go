package retrieval

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/nmoreau/askme/internal/chat"
	"github.com/nmoreau/askme/internal/knowledge"
)

func entry(id, question, answer string, tags ...string) knowledge.Entry {
	return knowledge.Entry{
		ID:       id,
		Topic:    "test",
		Question: map[string]string{"en": question, "fr": question},
		Answer:   map[string]string{"en": answer, "fr": answer},
		Tags:     tags,
	}
}

func config(max int, threshold float64) chat.PromptConfig {
	return chat.PromptConfig{
		MaxContextEntries:  max,
		RelevanceThreshold: threshold,
		Language:           chat.LangEN,
	}
}

func TestScore_SubstringMatches(t *testing.T) {
	e := entry("react", "What is React?", "React is a UI library.", "react", "frontend")

	// Full query is a substring of question, answer, and tags.
	// Points: 10 + 5 + 7, plus token "react" (+2 +1 +3) = 28, one
	// qualifying token -> 28 / 2.
	got := Score(e, "react", chat.LangEN)
	want := 14.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", got, want)
	}
}

func TestScore_TokenNormalization(t *testing.T) {
	e := entry("react", "What is React?", "React is a UI library.", "react")

	// "tell me about react": tokens tell/about/react qualify (len > 3),
	// "me" does not. Only "react" matches: question +2, answer +1, tags +3.
	got := Score(e, "Tell me about React", chat.LangEN)
	want := 6.0 / 4.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", got, want)
	}
}

func TestScore_AccentedShortTokenDoesNotQualify(t *testing.T) {
	e := knowledge.Entry{
		ID:       "edu-degree",
		Topic:    "education",
		Question: map[string]string{"en": "Where was she educated?", "fr": "Où a-t-elle été formée ?"},
		Answer:   map[string]string{"en": "At INSA Lyon.", "fr": "À l'INSA Lyon."},
	}

	// "été" is 3 runes (5 bytes): it must not count as a qualifying token.
	// Question substring +10, divisor 1.
	got := Score(e, "été", chat.LangFR)
	want := 10.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", got, want)
	}

	// A 4-rune accented token qualifies: "formée" matches the question
	// (+10 substring, +2 token), divisor 2.
	got = Score(e, "formée", chat.LangFR)
	want = 6.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", got, want)
	}
}

func TestScore_NoMatch(t *testing.T) {
	e := entry("react", "What is React?", "React is a UI library.", "react")
	if got := Score(e, "quantum entanglement", chat.LangEN); got != 0 {
		t.Errorf("Score = %v, want 0", got)
	}
}

func TestScore_EmptyQuery(t *testing.T) {
	e := entry("a", "Question?", "Answer.", "tag")
	if got := Score(e, "   ", chat.LangEN); got != 0 {
		t.Errorf("Score = %v, want 0", got)
	}
}

func TestFindRelevant_ThresholdFilters(t *testing.T) {
	base := &knowledge.Base{Entries: []knowledge.Entry{
		entry("react", "What is React?", "A UI library.", "react"),
	}}
	r := New(base)

	if got := r.FindRelevant("Tell me about React", config(5, 0.5)); len(got) != 1 {
		t.Fatalf("expected 1 entry above threshold, got %d", len(got))
	}
	if got := r.FindRelevant("quantum entanglement", config(5, 10)); len(got) != 0 {
		t.Fatalf("expected no entries, got %d", len(got))
	}
}

func TestFindRelevant_Bounded(t *testing.T) {
	var entries []knowledge.Entry
	for i := 0; i < 10; i++ {
		entries = append(entries, entry(fmt.Sprintf("e%d", i), "About golang services", "Built with golang.", "golang"))
	}
	r := New(&knowledge.Base{Entries: entries})

	got := r.FindRelevant("golang", config(3, 0.1))
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
}

func TestFindRelevant_OrderAndTieStability(t *testing.T) {
	// "first" and "third" tie exactly; "second" scores higher via tags.
	base := &knowledge.Base{Entries: []knowledge.Entry{
		entry("first", "About golang", "Some answer.", "misc"),
		entry("second", "About golang", "Some answer.", "golang"),
		entry("third", "About golang", "Some answer.", "misc"),
	}}
	r := New(base)

	got := r.FindRelevant("golang", config(5, 0.1))
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	if got[0].Entry.ID != "second" {
		t.Errorf("highest scorer = %q, want second", got[0].Entry.ID)
	}
	if got[1].Entry.ID != "first" || got[2].Entry.ID != "third" {
		t.Errorf("ties must keep dataset order, got %q then %q", got[1].Entry.ID, got[2].Entry.ID)
	}
}

func TestFindRelevant_Deterministic(t *testing.T) {
	base := &knowledge.Base{Entries: []knowledge.Entry{
		entry("a", "What is Go?", "A language.", "go", "backend"),
		entry("b", "Where does she work?", "At a logistics company using Go.", "work"),
		entry("c", "What about Kubernetes?", "Runs workloads.", "kubernetes", "go"),
	}}
	r := New(base)
	cfg := config(3, 0.1)

	first := r.FindRelevant("go backend work", cfg)
	second := r.FindRelevant("go backend work", cfg)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("retrieval not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestFindRelevant_ZeroMaxEntries(t *testing.T) {
	r := New(&knowledge.Base{Entries: []knowledge.Entry{entry("a", "golang?", "golang.", "golang")}})
	if got := r.FindRelevant("golang", config(0, 0)); got != nil {
		t.Errorf("expected nil for MaxContextEntries=0, got %v", got)
	}
}
