package jinja_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/saltls/pkg/jinja"
	"github.com/walteh/saltls/pkg/position"
)

func compileDocument(t *testing.T, document string) (string, *jinja.PositionMap) {
	t.Helper()
	root, _ := parseDocument(t, document)
	return jinja.Compile(root)
}

func TestCompile_DataPassesThrough(t *testing.T) {
	document := "libvirt:\n  pkg.installed:\n    - name: libvirt\n"

	obfuscated, pmap := compileDocument(t, document)

	assert.Equal(t, document, obfuscated)
	assert.Empty(t, pmap.Entries())
}

func TestCompile_VariablesKeepTheirLength(t *testing.T) {
	tests := []struct {
		name     string
		document string
		want     string
	}{
		{
			name:     "simple substitution",
			document: "user: {{ pillar['user'] }}\n",
			want:     "user: ?? pillar['user'] ??\n",
		},
		{
			name:     "inner braces survive",
			document: "opts: {{ {'a': 1} }}\n",
			want:     "opts: ?? {'a': 1} ??\n",
		},
		{
			name:     "two substitutions on one line",
			document: "{{ a }}-{{ b }}",
			want:     "?? a ??-?? b ??",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obfuscated, _ := compileDocument(t, tt.document)
			assert.Equal(t, tt.want, obfuscated)
			assert.Len(t, obfuscated, len(tt.document))
		})
	}
}

func TestCompile_BlocksEmitEveryBranch(t *testing.T) {
	document := "{% if a %}\nx: 1\n{% else %}\nx: 2\n{% endif %}\n"

	obfuscated, pmap := compileDocument(t, document)

	// Statement headers vanish but their trailing newlines survive inside the
	// neighboring data runs, so both arms land on their source lines.
	assert.Equal(t, "\nx: 1\n\nx: 2\n\n", obfuscated)

	lines := strings.Split(obfuscated, "\n")
	require.Greater(t, len(lines), 3)
	assert.Equal(t, "x: 1", lines[1])
	assert.Equal(t, "x: 2", lines[3])

	entries := pmap.Entries()
	require.Len(t, entries, 3)

	blk, ok := entries[0].Node.(*jinja.BlockNode)
	require.True(t, ok)
	assert.Equal(t, position.NewRange(position.New(0, 0), position.New(4, 0)), entries[0].Span)

	for i, want := range []position.Range{
		position.NewRange(position.New(0, 0), position.New(2, 0)),
		position.NewRange(position.New(2, 0), position.New(4, 0)),
	} {
		entry := entries[i+1]
		branch, ok := entry.Node.(*jinja.BranchNode)
		require.True(t, ok)
		assert.Same(t, blk.Branches[i], branch)
		assert.Equal(t, want, entry.Span)

		span, found := pmap.Span(branch)
		require.True(t, found)
		assert.Equal(t, want, span)
	}

	// Branch spans tile the block span.
	blockSpan, found := pmap.Span(blk)
	require.True(t, found)
	assert.Equal(t, blk.Branches[0].Rng.Start, blockSpan.Start)
	for _, branch := range blk.Branches {
		span, _ := pmap.Span(branch)
		assert.True(t, blockSpan.ContainsRange(span))
	}
}

func TestCompile_LinesStayAligned(t *testing.T) {
	document := "libvirt_keys:\n" +
		"  virt.keys:\n" +
		"    - name: something\n" +
		"{% if pillar['foo'] %}\n" +
		"    - user: {{ pillar['user'] }}\n" +
		"{% else %}\n" +
		"    - user: \"foo\"\n" +
		"{% endif %}\n"

	obfuscated, _ := compileDocument(t, document)

	sourceLines := strings.Split(document, "\n")
	obfuscatedLines := strings.Split(obfuscated, "\n")
	require.Len(t, obfuscatedLines, len(sourceLines))

	for i, line := range sourceLines {
		if strings.Contains(line, "{%") || strings.Contains(line, "{{") {
			continue
		}
		assert.Equal(t, line, obfuscatedLines[i], "line %d drifted", i)
	}

	// The substituted line keeps every column except the brace pairs.
	assert.Equal(t, "    - user: ?? pillar['user'] ??", obfuscatedLines[4])
}

func TestCompile_Deterministic(t *testing.T) {
	document := "{% for g in groups %}\n- {{ g }}\n{% endfor %}\n"
	root, _ := parseDocument(t, document)

	first, firstMap := jinja.Compile(root)
	second, secondMap := jinja.Compile(root)

	assert.Equal(t, first, second)
	require.Len(t, secondMap.Entries(), len(firstMap.Entries()))
	for i, entry := range firstMap.Entries() {
		assert.Equal(t, entry.Span, secondMap.Entries()[i].Span)
		assert.Same(t, entry.Node, secondMap.Entries()[i].Node)
	}
}

func TestCompile_UnterminatedBlockStillCompiles(t *testing.T) {
	root, defects := jinja.Parse(func() []jinja.Token {
		tokens, _ := jinja.Tokenize("a:\n  b.c:\n{% if x %}\n    - d: 1\n")
		return tokens
	}())
	require.Len(t, defects, 1)

	obfuscated, pmap := jinja.Compile(root)

	assert.Equal(t, "a:\n  b.c:\n\n    - d: 1\n", obfuscated)
	require.Len(t, pmap.Entries(), 2)
	assert.Equal(t,
		position.NewRange(position.New(2, 0), position.New(4, 0)),
		pmap.Entries()[0].Span)
}
