// Package legend loads the SAIQL symbol dictionary: families of symbols,
// each carrying a semantic meaning, a SQL hint, and a declared type.
package legend

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Symbol describes a single entry of a Legend family.
type Symbol struct {
	Semantic string `json:"semantic"`
	SQLHint  string `json:"sql_hint"`
	Type     string `json:"type"`
}

// Family groups related symbols, e.g. the asterisk family for
// aggregates and selects.
type Family struct {
	Symbols map[string]Symbol `json:"symbols"`
}

// document mirrors the on-disk JSON shape rooted at SAIQL_LEGEND.
type document struct {
	Root struct {
		Families map[string]Family `json:"families"`
	} `json:"SAIQL_LEGEND"`
}

// Legend is the loaded, immutable symbol dictionary plus a flattened,
// longest-symbol-first cache used by the lexer for fast matching.
type Legend struct {
	Families map[string]Family

	cache      map[string]cachedSymbol
	byLength   []string // symbol strings, longest first
}

type cachedSymbol struct {
	Symbol
	Family string
}

// Empty returns a Legend with no families, used when no legend file is
// configured; lexing then falls back to structural-token recognition only.
func Empty() *Legend {
	return &Legend{Families: map[string]Family{}, cache: map[string]cachedSymbol{}}
}

// LoadFromFile reads and parses a legend document from disk.
func LoadFromFile(path string) (*Legend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("legend: read %s: %w", path, err)
	}
	return LoadFromJSON(data)
}

// LoadFromJSON parses a legend document already in memory.
func LoadFromJSON(data []byte) (*Legend, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("legend: invalid JSON: %w", err)
	}

	l := &Legend{
		Families: doc.Root.Families,
		cache:    map[string]cachedSymbol{},
	}
	l.buildCache()
	return l, nil
}

func (l *Legend) buildCache() {
	for familyName, family := range l.Families {
		for sym, data := range family.Symbols {
			l.cache[sym] = cachedSymbol{Symbol: data, Family: familyName}
		}
	}

	l.byLength = make([]string, 0, len(l.cache))
	for sym := range l.cache {
		l.byLength = append(l.byLength, sym)
	}
	sort.Slice(l.byLength, func(i, j int) bool {
		if len(l.byLength[i]) != len(l.byLength[j]) {
			return len(l.byLength[i]) > len(l.byLength[j])
		}
		return l.byLength[i] < l.byLength[j]
	})
}

// Lookup returns the symbol data and true if sym is a known legend entry.
func (l *Legend) Lookup(sym string) (Symbol, string, bool) {
	if l == nil {
		return Symbol{}, "", false
	}
	entry, ok := l.cache[sym]
	if !ok {
		return Symbol{}, "", false
	}
	return entry.Symbol, entry.Family, true
}

// MatchPrefix finds the longest legend symbol that is a prefix of text,
// scanning longest-candidate-first as required by the lexer's recognition
// order.
func (l *Legend) MatchPrefix(text string) (string, Symbol, string, bool) {
	return l.MatchPrefixFunc(text, func(string, byte, bool) bool { return true })
}

// MatchPrefixFunc is MatchPrefix with an additional acceptance predicate,
// invoked with the candidate symbol, the byte immediately following it in
// text (if any), and whether such a byte exists. The lexer uses this to
// apply a word-boundary rule so that an alphabetic legend symbol (e.g. the
// data-type family's "o") never shadows the leading letters of an ordinary
// identifier such as "orders".
func (l *Legend) MatchPrefixFunc(text string, accept func(sym string, next byte, hasNext bool) bool) (string, Symbol, string, bool) {
	if l == nil {
		return "", Symbol{}, "", false
	}
	for _, sym := range l.byLength {
		if len(sym) > len(text) || text[:len(sym)] != sym {
			continue
		}
		hasNext := len(text) > len(sym)
		var next byte
		if hasNext {
			next = text[len(sym)]
		}
		if !accept(sym, next, hasNext) {
			continue
		}
		entry := l.cache[sym]
		return sym, entry.Symbol, entry.Family, true
	}
	return "", Symbol{}, "", false
}

// Len reports how many symbols are loaded.
func (l *Legend) Len() int {
	if l == nil {
		return 0
	}
	return len(l.cache)
}
