package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scenescript/scenectl/compiler/lexer"
)

func tokenKinds(t *testing.T, src string) []lexer.Kind {
	t.Helper()
	l := lexer.New(src)
	var kinds []lexer.Kind
	for {
		tok := l.Next()
		kinds = append(kinds, tok.Kind)
		if tok.Kind == lexer.EOF {
			return kinds
		}
	}
}

func TestKeywordsAreClassified(t *testing.T) {
	kinds := tokenKinds(t, "let set print when wait at scene start stop as in is true false")
	require.Equal(t, []lexer.Kind{
		lexer.LET, lexer.SET, lexer.PRINT, lexer.WHEN, lexer.WAIT, lexer.AT,
		lexer.SCENE, lexer.START, lexer.STOP, lexer.AS, lexer.IN, lexer.IS,
		lexer.TRUE, lexer.FALSE, lexer.EOF,
	}, kinds)
}

func TestIdentifierIsNotAKeyword(t *testing.T) {
	kinds := tokenKinds(t, "waiting")
	require.Equal(t, []lexer.Kind{lexer.IDENT, lexer.EOF}, kinds)
}

func TestDurationLiteralKeepsNumberAndUnit(t *testing.T) {
	l := lexer.New("90m")
	tok := l.Next()
	require.Equal(t, lexer.DURATION, tok.Kind)
	require.Equal(t, "90m", tok.Literal)
}

func TestPathLiteral(t *testing.T) {
	l := lexer.New("<room/light>")
	tok := l.Next()
	require.Equal(t, lexer.PATH, tok.Kind)
}

func TestStringEscapes(t *testing.T) {
	l := lexer.New(`"a\nb"`)
	tok := l.Next()
	require.Equal(t, lexer.STRING, tok.Kind)
	require.Equal(t, "a\nb", tok.Literal)
}

func TestSunTokens(t *testing.T) {
	kinds := tokenKinds(t, "#sunrise #sunset")
	require.Equal(t, []lexer.Kind{lexer.TIME, lexer.TIME, lexer.EOF}, kinds)
}
