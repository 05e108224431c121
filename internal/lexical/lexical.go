// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package lexical ranks text by term frequency over Snowball English
// stems. Queries use plain AND semantics: a document matches only if it
// contains every query term.
package lexical

import (
	"math"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// Document is the analyzed form of a piece of content.
type Document struct {
	Terms  map[string]int
	Length int
}

// Query is the analyzed, de-duplicated form of a search string.
type Query struct {
	Terms []string
}

// Empty reports whether the query has no searchable terms.
func (q Query) Empty() bool {
	return len(q.Terms) == 0
}

// Tokenize splits text into normalized terms, dropping stop words and
// single characters.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.ToLower(f)
		if len([]rune(w)) < 2 || stopwords[w] {
			continue
		}
		terms = append(terms, english.Stem(w, false))
	}
	return terms
}

// Analyze builds the term-count form of text.
func Analyze(text string) Document {
	terms := Tokenize(text)
	doc := Document{Terms: make(map[string]int, len(terms)), Length: len(terms)}
	for _, t := range terms {
		doc.Terms[t]++
	}
	return doc
}

// ParseQuery analyzes a query string.
func ParseQuery(text string) Query {
	seen := make(map[string]bool)
	var q Query
	for _, t := range Tokenize(text) {
		if seen[t] {
			continue
		}
		seen[t] = true
		q.Terms = append(q.Terms, t)
	}
	return q
}

// Matches reports whether doc contains every term of q.
func (d Document) Matches(q Query) bool {
	if q.Empty() {
		return false
	}
	for _, t := range q.Terms {
		if d.Terms[t] == 0 {
			return false
		}
	}
	return true
}

// Rank scores doc against q: summed term frequency, damped by the log of
// the document length. Non-matching documents score 0.
func (d Document) Rank(q Query) float64 {
	if !d.Matches(q) {
		return 0
	}
	var tf float64
	for _, t := range q.Terms {
		tf += float64(d.Terms[t])
	}
	return tf / (1 + math.Log(float64(d.Length)))
}

// KeywordAffinity blends keyword coverage with a Jaccard overlap between
// keywords and the terms of text. Returns a value in [0,1].
func KeywordAffinity(keywords []string, text string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	doc := Analyze(text)
	lower := strings.ToLower(text)

	var matched int
	var weighted float64
	for _, kw := range keywords {
		kwLower := strings.ToLower(strings.TrimSpace(kw))
		if kwLower == "" {
			continue
		}
		if doc.Terms[english.Stem(kwLower, false)] > 0 {
			matched++
			weighted += 1.0
		} else if strings.Contains(lower, kwLower) {
			matched++
			weighted += 0.7
		}
	}

	if matched == 0 {
		return 0
	}

	union := float64(len(keywords) + len(doc.Terms) - matched)
	jaccard := float64(matched) / math.Max(union, 1)
	coverage := weighted / float64(len(keywords))

	return 0.4*jaccard + 0.6*coverage
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"for": true, "are": true, "but": true, "not": true, "you": true,
	"all": true, "can": true, "had": true, "her": true, "was": true,
	"one": true, "our": true, "out": true, "has": true, "have": true,
	"been": true, "this": true, "that": true, "with": true, "from": true,
	"they": true, "will": true, "what": true, "when": true, "just": true,
	"into": true, "than": true, "them": true, "some": true, "could": true,
	"would": true, "there": true, "of": true, "to": true, "in": true,
	"on": true, "at": true, "by": true, "is": true, "it": true, "as": true,
	"be": true, "we": true, "he": true, "she": true, "its": true,
}
