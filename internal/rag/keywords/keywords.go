// Package keywords extracts a small bag of salient lowercase tokens from
// chunk and query text for the sparse half of hybrid search.
package keywords

import (
	"regexp"
	"sort"
	"strings"
)

const maxKeywords = 20

var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "from": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "be": {}, "been": {}, "being": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {},
	"did": {}, "will": {}, "would": {}, "could": {}, "should": {}, "may": {}, "might": {}, "must": {},
	"shall": {}, "can": {}, "need": {}, "it": {}, "its": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"i": {}, "you": {}, "he": {}, "she": {}, "we": {}, "they": {}, "what": {}, "which": {}, "who": {},
	"when": {}, "where": {}, "why": {}, "how": {}, "all": {}, "each": {}, "every": {}, "both": {}, "few": {},
	"more": {}, "most": {}, "other": {}, "some": {}, "such": {}, "no": {}, "nor": {}, "not": {}, "only": {},
	"own": {}, "same": {}, "so": {}, "than": {}, "too": {}, "very": {}, "just": {}, "as": {}, "if": {},
	"then": {}, "because": {}, "while": {}, "although": {},
}

// Extract lowercases text, replaces non-word characters with spaces, drops
// tokens of length <= 2 and stopwords, then returns distinct tokens sorted
// by descending frequency (ties broken by first appearance), truncated to
// maxKeywords.
func Extract(text string) []string {
	lowered := strings.ToLower(text)
	cleaned := nonWordRe.ReplaceAllString(lowered, " ")
	fields := strings.Fields(cleaned)

	type entry struct {
		token string
		count int
		first int
	}
	order := make(map[string]int)
	counts := make(map[string]int)

	for pos, tok := range fields {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, seen := order[tok]; !seen {
			order[tok] = pos
		}
		counts[tok]++
	}

	entries := make([]entry, 0, len(counts))
	for tok, c := range counts {
		entries = append(entries, entry{token: tok, count: c, first: order[tok]})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].first < entries[j].first
	})

	if len(entries) > maxKeywords {
		entries = entries[:maxKeywords]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.token
	}
	return out
}
