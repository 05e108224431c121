// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases and splits", "Deploy Server, v2!", []string{"deploy", "server", "v2"}},
		{"drops stop words", "the cat and the hat", []string{"cat", "hat"}},
		{"drops single chars", "x y zz", []string{"zz"}},
		{"stems plurals", "memories memory cats glass", []string{"memori", "memori", "cat", "glass"}},
		{"stems verb forms", "testing tested running", []string{"test", "test", "run"}},
		{"empty", "   ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestParseQuery_Dedupes(t *testing.T) {
	q := ParseQuery("cache caches CACHE invalidation")
	assert.Equal(t, append(Tokenize("cache"), Tokenize("invalidation")...), q.Terms)
	assert.Len(t, q.Terms, 2)
	assert.True(t, ParseQuery("the of and").Empty())
}

func TestDocument_MatchesAllTerms(t *testing.T) {
	doc := Analyze("Redis cache invalidation strategy for the session store")

	assert.True(t, doc.Matches(ParseQuery("cache invalidation")))
	assert.True(t, doc.Matches(ParseQuery("caches")))
	assert.False(t, doc.Matches(ParseQuery("cache eviction")))
	assert.False(t, doc.Matches(ParseQuery("")))
}

func TestDocument_MatchesInflections(t *testing.T) {
	tests := []struct {
		content string
		query   string
	}{
		{"the dog was running fast", "run"},
		{"the dog was running fast", "runs"},
		{"we studied the results", "study"},
		{"we studied the results", "studies"},
		{"she organizes meetings", "organized meeting"},
		{"connection pooling for databases", "connected database pool"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.True(t, Analyze(tt.content).Matches(ParseQuery(tt.query)))
		})
	}
}

func TestDocument_Rank(t *testing.T) {
	q := ParseQuery("cache")

	dense := Analyze("cache cache cache layer")
	sparse := Analyze("cache layer for the service mesh gateway router")
	none := Analyze("nothing relevant here")

	assert.Greater(t, dense.Rank(q), sparse.Rank(q))
	assert.Greater(t, sparse.Rank(q), 0.0)
	assert.Equal(t, 0.0, none.Rank(q))
}

func TestKeywordAffinity(t *testing.T) {
	content := "Deployed the payment service to production after the database migration"

	full := KeywordAffinity([]string{"deployed", "production"}, content)
	partial := KeywordAffinity([]string{"production", "kubernetes"}, content)

	assert.Greater(t, full, 0.6)
	assert.Greater(t, full, partial)
	assert.Greater(t, partial, 0.0)
	assert.Equal(t, 0.0, KeywordAffinity([]string{"kubernetes"}, content))
	assert.Equal(t, 0.0, KeywordAffinity(nil, content))
}
