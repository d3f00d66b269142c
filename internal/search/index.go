package search

import (
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Index is an in-memory inverted index over transcripts. Plaintext never
// touches disk here; the index is rebuilt per process from fresh
// transcriptions.
type Index struct {
	mu     sync.RWMutex
	tokens map[string]map[string]struct{}
	docs   map[string][]string
}

func New() *Index {
	return &Index{
		tokens: make(map[string]map[string]struct{}),
		docs:   make(map[string][]string),
	}
}

// Add indexes text under id, replacing any previous entry for id.
func (x *Index) Add(id, text string) {
	toks := tokenize(text)
	x.mu.Lock()
	defer x.mu.Unlock()
	x.removeLocked(id)
	for _, tok := range toks {
		set := x.tokens[tok]
		if set == nil {
			set = make(map[string]struct{})
			x.tokens[tok] = set
		}
		set[id] = struct{}{}
	}
	x.docs[id] = toks
}

func (x *Index) Remove(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.removeLocked(id)
}

func (x *Index) removeLocked(id string) {
	for _, tok := range x.docs[id] {
		delete(x.tokens[tok], id)
		if len(x.tokens[tok]) == 0 {
			delete(x.tokens, tok)
		}
	}
	delete(x.docs, id)
}

// Query returns ids whose transcript contains every term in q, sorted.
func (x *Index) Query(q string) []string {
	terms := tokenize(q)
	if len(terms) == 0 {
		return nil
	}
	x.mu.RLock()
	defer x.mu.RUnlock()

	var hits map[string]struct{}
	for _, term := range terms {
		set := x.tokens[term]
		if len(set) == 0 {
			return nil
		}
		if hits == nil {
			hits = make(map[string]struct{}, len(set))
			for id := range set {
				hits[id] = struct{}{}
			}
			continue
		}
		for id := range hits {
			if _, ok := set[id]; !ok {
				delete(hits, id)
			}
		}
		if len(hits) == 0 {
			return nil
		}
	}

	out := make([]string, 0, len(hits))
	for id := range hits {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
