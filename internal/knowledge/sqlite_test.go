package knowledge

import (
	"path/filepath"
	"testing"
)

func TestStoreImportAndLoad(t *testing.T) {
	store, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer store.Close()

	in := []Entry{validEntry("first"), validEntry("second"), validEntry("third")}
	in[1].Tags = []string{"go", "backend"}

	if err := store.ImportEntries(in); err != nil {
		t.Fatalf("importing: %v", err)
	}

	out, err := store.LoadEntries()
	if err != nil {
		t.Fatalf("loading: %v", err)
	}

	if len(out) != 3 {
		t.Fatalf("got %d entries, want 3", len(out))
	}
	// Dataset order must survive the roundtrip.
	for i, id := range []string{"first", "second", "third"} {
		if out[i].ID != id {
			t.Errorf("entries[%d].ID = %q, want %q", i, out[i].ID, id)
		}
	}
	if len(out[1].Tags) != 2 || out[1].Tags[0] != "go" {
		t.Errorf("tags not preserved: %v", out[1].Tags)
	}
	if out[0].Question["fr"] != "Q fr" {
		t.Errorf("french question not preserved: %q", out[0].Question["fr"])
	}
}

func TestStoreImportReplaces(t *testing.T) {
	store, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer store.Close()

	if err := store.ImportEntries([]Entry{validEntry("old")}); err != nil {
		t.Fatalf("first import: %v", err)
	}
	if err := store.ImportEntries([]Entry{validEntry("new")}); err != nil {
		t.Fatalf("second import: %v", err)
	}

	out, err := store.LoadEntries()
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if len(out) != 1 || out[0].ID != "new" {
		t.Errorf("import should replace contents, got %+v", out)
	}
}

func TestLoadSQLiteSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.db")

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	if err := store.ImportEntries([]Entry{validEntry("a"), validEntry("b")}); err != nil {
		t.Fatalf("importing: %v", err)
	}
	store.Close()

	base, err := Load(path, 2)
	if err != nil {
		t.Fatalf("loading via Load: %v", err)
	}
	if len(base.Entries) != 2 {
		t.Errorf("got %d entries, want 2", len(base.Entries))
	}
}
