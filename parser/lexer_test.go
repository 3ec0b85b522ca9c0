package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func tokenTypes(toks []Token) []TokenType {
	out := make([]TokenType, 0, len(toks))
	for _, t := range toks {
		if t.Type == TokenComment {
			continue
		}
		out = append(out, t.Type)
	}
	return out
}

func TestLexerBasicInstruction(t *testing.T) {
	l := NewLexer("t.s", []byte("add a0, a1, a2 # sum\n"))
	toks, err := l.TokenizeAll()
	require.Nil(t, err)
	require.Equal(t, []TokenType{
		TokenIdentifier, TokenIdentifier, TokenComma, TokenIdentifier, TokenComma, TokenIdentifier,
		TokenNewline, TokenEOF,
	}, tokenTypes(toks))
}

func TestLexerLabelDirectiveMacroArg(t *testing.T) {
	l := NewLexer("t.s", []byte("main: .word %r\n"))
	toks, err := l.TokenizeAll()
	require.Nil(t, err)
	require.Equal(t, TokenLabel, toks[0].Type)
	require.Equal(t, "main", toks[0].Literal)
	require.Equal(t, TokenDirective, toks[1].Type)
	require.Equal(t, "word", toks[1].Literal)
	require.Equal(t, TokenMacroArg, toks[2].Type)
	require.Equal(t, "r", toks[2].Literal)
}

func TestLexerIntegerBases(t *testing.T) {
	cases := []struct {
		src  string
		want int64
	}{
		{"0x1F", 31},
		{"0b101", 5},
		{"0o17", 15},
		{"0d42", 42},
		{"-7", -7},
		{"7", 7},
	}
	for _, c := range cases {
		l := NewLexer("t.s", []byte(c.src))
		tok, err := l.Next()
		require.Nil(t, err, c.src)
		require.Equal(t, TokenInteger, tok.Type, c.src)
		require.Equal(t, c.want, tok.IntVal, c.src)
	}
}

func TestLexerStringEscapes(t *testing.T) {
	l := NewLexer("t.s", []byte(`"hi\n\t\"there\""`))
	tok, err := l.Next()
	require.Nil(t, err)
	require.Equal(t, TokenStringLit, tok.Type)
	require.Equal(t, "hi\n\t\"there\"", tok.Literal)
}

func TestLexerCharLiteral(t *testing.T) {
	l := NewLexer("t.s", []byte(`'\n'`))
	tok, err := l.Next()
	require.Nil(t, err)
	require.Equal(t, TokenCharLit, tok.Type)
	require.EqualValues(t, '\n', tok.IntVal)
}

func TestLexerUnexpectedCharacter(t *testing.T) {
	l := NewLexer("t.s", []byte("`"))
	_, err := l.Next()
	require.NotNil(t, err)
	require.Equal(t, KindLexer, err.Kind)
}

func TestLexerLossyUTF8(t *testing.T) {
	// An invalid UTF-8 byte sequence must be replaced, not rejected outright
	// at decode time; it may still fail later as an unexpected character,
	// but NewLexer itself must not panic or error.
	l := NewLexer("t.s", []byte{'a', 0xff, 'b'})
	require.NotPanics(t, func() {
		_, _ = l.TokenizeAll()
	})
}
