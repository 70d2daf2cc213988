// Package catalog maps item names to a food category and an expected shelf life.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultCategory is used when no rule matches
	DefaultCategory = "pantry"
	// DefaultShelfLife is the shelf life in days when no rule matches
	DefaultShelfLife = 14
)

// Rule assigns a category and shelf life to names containing any keyword
type Rule struct {
	Category string   `yaml:"category"`
	Days     int      `yaml:"days"`
	Keywords []string `yaml:"keywords"`
}

func (r Rule) matches(name string) bool {
	for _, k := range r.Keywords {
		if strings.Contains(name, k) {
			return true
		}
	}
	return false
}

// matchesWord is matches restricted to whole words, so "water" misses
// "watermelon" but still finds "waters".
func (r Rule) matchesWord(name string) bool {
	for _, k := range r.Keywords {
		if containsWord(name, k) {
			return true
		}
	}
	return false
}

func containsWord(name, word string) bool {
	if word == "" {
		return false
	}
	for from := 0; from < len(name); {
		i := strings.Index(name[from:], word)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(word)
		if (start == 0 || !isLetter(name[start-1])) && wordEnds(name[end:]) {
			return true
		}
		from = start + 1
	}
	return false
}

// wordEnds reports whether rest starts at a word boundary, allowing a plural suffix
func wordEnds(rest string) bool {
	for _, suffix := range []string{"", "s", "es"} {
		if !strings.HasPrefix(rest, suffix) {
			continue
		}
		if tail := rest[len(suffix):]; tail == "" || !isLetter(tail[0]) {
			return true
		}
	}
	return false
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}

// Catalog holds two ordered rule tables: the general one used for receipt
// items and the food table keyed to spoken grocery nouns. The first matching
// rule wins in both.
type Catalog struct {
	Rules []Rule `yaml:"rules"`
	Foods []Rule `yaml:"foods"`
}

// New returns the built-in tables
func New() *Catalog {
	return &Catalog{
		Rules: defaultRules(),
		Foods: defaultFoods(),
	}
}

// Load reads a YAML file whose tables replace the built-in ones. An empty path
// returns the defaults.
func Load(path string) (*Catalog, error) {
	c := New()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}
	for _, table := range [][]Rule{c.Rules, c.Foods} {
		for i := range table {
			if table[i].Category == "" || table[i].Days <= 0 {
				return nil, fmt.Errorf("catalog rule %d needs a category and positive days", i)
			}
			for j, k := range table[i].Keywords {
				table[i].Keywords[j] = strings.ToLower(k)
			}
		}
	}
	return c, nil
}

// Lookup returns the first general rule matching name
func (c *Catalog) Lookup(name string) (Rule, bool) {
	return first(c.Rules, name)
}

// Categorize returns the category for name
func (c *Catalog) Categorize(name string) string {
	if r, ok := c.Lookup(name); ok {
		return r.Category
	}
	return DefaultCategory
}

// ShelfLife returns the expected shelf life of name in days
func (c *Catalog) ShelfLife(name string) int {
	if r, ok := c.Lookup(name); ok {
		return r.Days
	}
	return DefaultShelfLife
}

// LookupFood returns the category and shelf life for a dictated grocery noun.
// The category always comes from the general rules so dictated and scanned
// items agree. A food rule of that category, matched on whole words, refines
// the shelf life.
func (c *Catalog) LookupFood(name string) (string, int) {
	category := c.Categorize(name)
	lower := strings.ToLower(name)
	for _, r := range c.Foods {
		if r.Category == category && r.matchesWord(lower) {
			return category, r.Days
		}
	}
	return category, c.ShelfLife(name)
}

func first(rules []Rule, name string) (Rule, bool) {
	name = strings.ToLower(name)
	for _, r := range rules {
		if r.matches(name) {
			return r, true
		}
	}
	return Rule{}, false
}
