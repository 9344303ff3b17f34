package knowledge

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed data/entries.json
var embeddedFS embed.FS

// Load reads the knowledge base from source and validates it. An empty
// source loads the embedded default dataset; a .db or .sqlite path loads a
// SQLite store created by `askme kb import`; anything else is read as a JSON
// array of entries.
func Load(source string, minEntries int) (*Base, error) {
	var (
		base *Base
		err  error
	)
	switch {
	case source == "":
		base, err = loadEmbedded()
	case isSQLitePath(source):
		base, err = loadSQLite(source)
	default:
		base, err = LoadFile(source)
	}
	if err != nil {
		return nil, err
	}
	if err := base.Validate(minEntries); err != nil {
		return nil, fmt.Errorf("validating knowledge base %q: %w", displayName(source), err)
	}
	return base, nil
}

// LoadFile reads a JSON array of entries from disk without validating it.
func LoadFile(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading knowledge base: %w", err)
	}
	return parse(data)
}

func loadEmbedded() (*Base, error) {
	data, err := embeddedFS.ReadFile("data/entries.json")
	if err != nil {
		return nil, fmt.Errorf("reading embedded knowledge base: %w", err)
	}
	return parse(data)
}

func loadSQLite(path string) (*Base, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	entries, err := store.LoadEntries()
	if err != nil {
		return nil, err
	}
	return &Base{Entries: entries}, nil
}

func parse(data []byte) (*Base, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing knowledge base: %w", err)
	}
	return &Base{Entries: entries}, nil
}

func isSQLitePath(source string) bool {
	switch strings.ToLower(filepath.Ext(source)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

func displayName(source string) string {
	if source == "" {
		return "embedded"
	}
	return source
}
