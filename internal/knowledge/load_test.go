package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func bilingual(en, fr string) map[string]string {
	return map[string]string{"en": en, "fr": fr}
}

func validEntry(id string) Entry {
	return Entry{
		ID:       id,
		Topic:    "test",
		Question: bilingual("Q en", "Q fr"),
		Answer:   bilingual("A en", "A fr"),
		Tags:     []string{"tag"},
	}
}

func TestLoadEmbedded(t *testing.T) {
	base, err := Load("", 10)
	if err != nil {
		t.Fatalf("loading embedded dataset: %v", err)
	}
	if len(base.Entries) < 10 {
		t.Errorf("embedded dataset has %d entries, want >= 10", len(base.Entries))
	}
}

func TestValidate_DuplicateID(t *testing.T) {
	base := &Base{Entries: []Entry{validEntry("a"), validEntry("a")}}
	err := base.Validate(1)
	if err == nil || !strings.Contains(err.Error(), "duplicate id") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestValidate_MissingTranslation(t *testing.T) {
	e := validEntry("a")
	e.Answer = map[string]string{"en": "only english"}
	base := &Base{Entries: []Entry{e}}
	err := base.Validate(1)
	if err == nil || !strings.Contains(err.Error(), "missing fr answer") {
		t.Fatalf("expected missing translation error, got %v", err)
	}
}

func TestValidate_MinEntries(t *testing.T) {
	base := &Base{Entries: []Entry{validEntry("a")}}
	if err := base.Validate(2); err == nil {
		t.Fatal("expected minimum count error")
	}
	if err := base.Validate(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")
	content := `[{"id":"x","topic":"t","question":{"en":"q","fr":"q"},"answer":{"en":"a","fr":"a"},"tags":["one"]}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	base, err := Load(path, 1)
	if err != nil {
		t.Fatalf("loading file: %v", err)
	}
	if len(base.Entries) != 1 || base.Entries[0].ID != "x" {
		t.Errorf("unexpected entries: %+v", base.Entries)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, 1); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLanguageFallback(t *testing.T) {
	e := validEntry("a")
	e.Question = map[string]string{"en": "english only", "fr": ""}
	if got := e.QuestionIn("fr"); got != "english only" {
		t.Errorf("QuestionIn(fr) = %q, want English fallback", got)
	}
}

func TestTopics(t *testing.T) {
	a := validEntry("a")
	b := validEntry("b")
	b.Topic = "other"
	c := validEntry("c")
	base := &Base{Entries: []Entry{a, b, c}}

	topics := base.Topics()
	if len(topics) != 2 || topics[0] != "test" || topics[1] != "other" {
		t.Errorf("Topics() = %v, want [test other]", topics)
	}
}
