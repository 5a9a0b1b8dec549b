package resolver

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
)

// Copypastas is the catalog of known spam-text templates, keyed by a
// human-readable name used in strike reasons. Matching is case- and
// whitespace-insensitive containment, so minor padding doesn't defeat it.
type Copypastas struct {
	mu    sync.RWMutex
	texts map[string]string // name -> normalized template
}

func NewCopypastas() *Copypastas {
	return &Copypastas{texts: make(map[string]string)}
}

// LoadFromFileJSON loads (or reloads) the catalog from a JSON object of
// name -> template text.
func (c *Copypastas) LoadFromFileJSON(p string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	var entries map[string]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return err
	}

	texts := make(map[string]string, len(entries))
	for name, text := range entries {
		texts[name] = normalizeText(text)
	}

	c.mu.Lock()
	c.texts = texts
	c.mu.Unlock()
	return nil
}

// Add registers a single template. Mostly useful in tests.
func (c *Copypastas) Add(name, text string) {
	c.mu.Lock()
	c.texts[name] = normalizeText(text)
	c.mu.Unlock()
}

// Match returns the name of the first catalog entry contained in the
// message, or the empty string.
func (c *Copypastas) Match(content string) string {
	norm := normalizeText(content)
	if norm == "" {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, text := range c.texts {
		if text != "" && strings.Contains(norm, text) {
			return name
		}
	}
	return ""
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
