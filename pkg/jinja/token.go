package jinja

import (
	"strings"

	"github.com/walteh/saltls/pkg/diagnostic"
	"github.com/walteh/saltls/pkg/position"
)

// TokenType discriminates the flat token stream produced by Tokenize.
type TokenType int

const (
	// TokenData is a verbatim run of text with no templating syntax.
	TokenData TokenType = iota
	// TokenVariable is a substitution expression, delimiters included.
	TokenVariable
	// TokenBlock is a statement, delimiters included, with its keyword in Kind.
	TokenBlock
	// TokenComment is a template comment, dropped by the parser.
	TokenComment
)

func (t TokenType) String() string {
	switch t {
	case TokenData:
		return "data"
	case TokenVariable:
		return "variable"
	case TokenBlock:
		return "block"
	case TokenComment:
		return "comment"
	}
	return "unknown"
}

// Token is one lexed unit of the raw document. Text is always the original
// source slice, delimiters and whitespace-control markers included, so that
// positions stay true to the file on disk.
type Token struct {
	Type TokenType
	Rng  position.Range
	Text string
	// Kind is the statement keyword for TokenBlock ("if", "elif", "else",
	// "endif", "for", "endfor", ...), "unknown" when none could be read.
	Kind string
}

const (
	openVariable = "{{"
	openBlock    = "{%"
	openComment  = "{#"
)

var closers = map[string]string{
	openVariable: "}}",
	openBlock:    "%}",
	openComment:  "#}",
}

// Tokenize lexes a raw document into data runs, variable expressions, block
// statements and comments. It never fails: an opening delimiter with no
// matching closer degrades to a data run reaching end-of-input, recorded as a
// tokenizer defect. Line counting follows "\n" regardless of the document's
// line-ending convention.
func Tokenize(document string) ([]Token, []diagnostic.Defect) {
	var tokens []Token
	var defects []diagnostic.Defect

	pos := position.New(0, 0)
	i := 0

	emit := func(typ TokenType, text, kind string) {
		end := position.EndOf(text, pos)
		tokens = append(tokens, Token{
			Type: typ,
			Rng:  position.NewRange(pos, end),
			Text: text,
			Kind: kind,
		})
		pos = end
	}

	for i < len(document) {
		j, open := nextDelimiter(document, i)
		if j < 0 {
			emit(TokenData, document[i:], "")
			break
		}
		if j > i {
			emit(TokenData, document[i:j], "")
		}

		closer := closers[open]
		k := strings.Index(document[j+len(open):], closer)
		if k < 0 {
			// Unterminated delimiter: the rest of the document is literal.
			start := pos
			emit(TokenData, document[j:], "")
			defects = append(defects, diagnostic.NewDefect(
				diagnostic.StageTokenizer,
				position.NewRange(start, pos),
				"unterminated '"+open+"' delimiter",
			))
			break
		}

		end := j + len(open) + k + len(closer)
		text := document[j:end]
		switch open {
		case openVariable:
			emit(TokenVariable, text, "")
		case openComment:
			emit(TokenComment, text, "")
		case openBlock:
			emit(TokenBlock, text, blockKeyword(text))
		}
		i = end
	}

	return tokens, defects
}

// nextDelimiter returns the index and kind of the earliest templating opener
// at or after i, or -1 when none remains.
func nextDelimiter(document string, i int) (int, string) {
	best, kind := -1, ""
	for open := range closers {
		if idx := strings.Index(document[i:], open); idx >= 0 {
			if best < 0 || i+idx < best {
				best, kind = i+idx, open
			}
		}
	}
	return best, kind
}

// blockKeyword extracts the statement keyword from a block token's text,
// skipping the opening delimiter and any whitespace-control marker.
func blockKeyword(text string) string {
	inner := strings.TrimPrefix(text, openBlock)
	inner = strings.TrimLeft(inner, "-+")
	inner = strings.TrimLeft(inner, " \t\r\n")
	end := 0
	for end < len(inner) {
		c := inner[end]
		if (c < 'a' || c > 'z') && c != '_' {
			break
		}
		end++
	}
	if end == 0 {
		return "unknown"
	}
	return inner[:end]
}
