package jinja_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/saltls/pkg/diagnostic"
	"github.com/walteh/saltls/pkg/jinja"
	"github.com/walteh/saltls/pkg/position"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		document string
		want     []jinja.Token
	}{
		{
			name:     "plain data",
			document: "ports:\n  - 22\n",
			want: []jinja.Token{
				{
					Type: jinja.TokenData,
					Rng:  position.NewRange(position.New(0, 0), position.New(2, 0)),
					Text: "ports:\n  - 22\n",
				},
			},
		},
		{
			name:     "variable between data runs",
			document: "hello {{ name }}!",
			want: []jinja.Token{
				{
					Type: jinja.TokenData,
					Rng:  position.NewRange(position.New(0, 0), position.New(0, 6)),
					Text: "hello ",
				},
				{
					Type: jinja.TokenVariable,
					Rng:  position.NewRange(position.New(0, 6), position.New(0, 16)),
					Text: "{{ name }}",
				},
				{
					Type: jinja.TokenData,
					Rng:  position.NewRange(position.New(0, 16), position.New(0, 17)),
					Text: "!",
				},
			},
		},
		{
			name:     "block statements and comment",
			document: "{% if a %}x{% endif %}{# note #}",
			want: []jinja.Token{
				{
					Type: jinja.TokenBlock,
					Rng:  position.NewRange(position.New(0, 0), position.New(0, 10)),
					Text: "{% if a %}",
					Kind: "if",
				},
				{
					Type: jinja.TokenData,
					Rng:  position.NewRange(position.New(0, 10), position.New(0, 11)),
					Text: "x",
				},
				{
					Type: jinja.TokenBlock,
					Rng:  position.NewRange(position.New(0, 11), position.New(0, 22)),
					Text: "{% endif %}",
					Kind: "endif",
				},
				{
					Type: jinja.TokenComment,
					Rng:  position.NewRange(position.New(0, 22), position.New(0, 32)),
					Text: "{# note #}",
				},
			},
		},
		{
			name:     "whitespace control markers",
			document: "{%- for item in items -%}",
			want: []jinja.Token{
				{
					Type: jinja.TokenBlock,
					Rng:  position.NewRange(position.New(0, 0), position.New(0, 25)),
					Text: "{%- for item in items -%}",
					Kind: "for",
				},
			},
		},
		{
			name:     "statement spanning lines",
			document: "{% if a\n   and b %}",
			want: []jinja.Token{
				{
					Type: jinja.TokenBlock,
					Rng:  position.NewRange(position.New(0, 0), position.New(1, 11)),
					Text: "{% if a\n   and b %}",
					Kind: "if",
				},
			},
		},
		{
			name:     "keyword missing",
			document: "{% %}",
			want: []jinja.Token{
				{
					Type: jinja.TokenBlock,
					Rng:  position.NewRange(position.New(0, 0), position.New(0, 5)),
					Text: "{% %}",
					Kind: "unknown",
				},
			},
		},
		{
			name:     "empty document",
			document: "",
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, defects := jinja.Tokenize(tt.document)
			assert.Empty(t, defects)
			assert.Equal(t, tt.want, tokens)
		})
	}
}

func TestTokenize_UnterminatedDelimiter(t *testing.T) {
	tests := []struct {
		name     string
		document string
	}{
		{name: "variable", document: "user: {{ pillar['user'"},
		{name: "block", document: "user: {% if a"},
		{name: "comment", document: "user: {# dangling"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, defects := jinja.Tokenize(tt.document)

			require.Len(t, defects, 1)
			assert.Equal(t, diagnostic.StageTokenizer, defects[0].Stage)
			assert.Equal(t, position.New(0, 6), defects[0].Range.Start)
			assert.Equal(t, position.New(0, len(tt.document)), defects[0].Range.End)

			// The broken tail degrades to a data run, nothing is lost.
			require.Len(t, tokens, 2)
			assert.Equal(t, jinja.TokenData, tokens[1].Type)
			assert.Equal(t, tt.document, tokens[0].Text+tokens[1].Text)
		})
	}
}

func TestTokenize_RoundTrip(t *testing.T) {
	// Token text is always a verbatim source slice and token ranges map back
	// to exactly that slice, so concatenation rebuilds the document.
	documents := []string{
		"plain: text\n",
		"user: {{ pillar['user'] }}\n",
		"{% if a %}\nx: 1\n{% elif b %}\nx: 2\n{% else %}\nx: 3\n{% endif %}\n",
		"{# comment #}{%- for x in xs -%}{{ x }}{% endfor %}",
		"broken: {{ never closed",
	}

	for _, doc := range documents {
		tokens, _ := jinja.Tokenize(doc)

		var rebuilt strings.Builder
		for _, tok := range tokens {
			rebuilt.WriteString(tok.Text)

			start := position.ToOffset(doc, tok.Rng.Start)
			end := position.ToOffset(doc, tok.Rng.End)
			require.True(t, start >= 0 && end <= len(doc) && start <= end)
			assert.Equal(t, doc[start:end], tok.Text)
			assert.Equal(t, tok.Rng.Start, position.FromOffset(doc, start))
		}
		assert.Equal(t, doc, rebuilt.String())
	}
}

func TestTokenize_CRLFColumns(t *testing.T) {
	tokens, defects := jinja.Tokenize("a:\r\n{{ b }}\r\n")

	assert.Empty(t, defects)
	require.Len(t, tokens, 3)
	assert.Equal(t, position.NewRange(position.New(1, 0), position.New(1, 7)), tokens[1].Rng)
}
