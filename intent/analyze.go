package intent

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Detected records one intent matched by a query. Strength is the fraction of
// the intent's keywords that matched, so a query hitting several keywords of
// the same intent signals it more strongly.
type Detected struct {
	Name     string
	Strength float64
	Matched  []string
}

// Analysis is the transient result of analyzing one query. It is never
// persisted.
type Analysis struct {
	Intents  []Detected
	Keywords []string
	Entities []string
}

var quotedRe = regexp.MustCompile(`"([^"]*)"|'([^']*)'`)

// Analyzer matches queries against an intent table. Word-boundary matchers
// are compiled once per keyword at construction.
type Analyzer struct {
	defs     []Definition
	matchers map[string]*regexp.Regexp
}

// NewAnalyzer builds an Analyzer for the given intent table. Pass
// Defaults() for the built-in intents.
func NewAnalyzer(defs []Definition) *Analyzer {
	a := &Analyzer{defs: defs, matchers: make(map[string]*regexp.Regexp)}
	for _, def := range defs {
		for _, kw := range def.Keywords {
			if strings.Contains(kw, " ") {
				continue // multi-word keywords use substring containment
			}
			if _, ok := a.matchers[kw]; !ok {
				a.matchers[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
			}
		}
	}
	return a
}

// Definitions returns the intent table the analyzer was built with.
func (a *Analyzer) Definitions() []Definition { return a.defs }

// Analyze classifies a query. normalized must be lower-cased and trimmed;
// original is the query as the user typed it and is used only for
// capitalized-entity extraction. When the caller has no original-case text it
// may pass the normalized form, in which case no capitalized entities are
// found.
func (a *Analyzer) Analyze(normalized, original string) Analysis {
	var out Analysis
	seenKeyword := make(map[string]bool)

	for _, def := range a.defs {
		var matched []string
		for _, kw := range def.Keywords {
			if a.keywordMatches(normalized, kw) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}
		out.Intents = append(out.Intents, Detected{
			Name:     def.Name,
			Strength: float64(len(matched)) / float64(len(def.Keywords)),
			Matched:  matched,
		})
		for _, kw := range matched {
			if !seenKeyword[kw] {
				seenKeyword[kw] = true
				out.Keywords = append(out.Keywords, kw)
			}
		}
	}

	out.Entities = extractEntities(normalized, original)
	return out
}

func (a *Analyzer) keywordMatches(query, keyword string) bool {
	if re, ok := a.matchers[keyword]; ok {
		return re.MatchString(query)
	}
	return strings.Contains(query, keyword)
}

// extractEntities collects quoted phrases from the normalized query and
// capitalized tokens (proper-noun candidates) from the original-case query.
func extractEntities(normalized, original string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, m := range quotedRe.FindAllStringSubmatch(normalized, -1) {
		if m[1] != "" {
			add(m[1])
		} else {
			add(m[2])
		}
	}

	for _, word := range strings.Fields(original) {
		first, size := utf8.DecodeRuneInString(word)
		if size == 0 || size == len(word) {
			continue
		}
		second, _ := utf8.DecodeRuneInString(word[size:])
		if unicode.IsUpper(first) && unicode.IsLower(second) {
			add(word)
		}
	}

	return out
}
