package lexer

import (
	"moss/internal/token"
	"testing"
)

func TestNextToken(t *testing.T) {
	input := `local five = 5
local ten = 10.25

local add = function(x, y)
	return x + y
end

local result = add(five, ten)
- / * % ^ # 5
5 < 10 > 5
5 <= 10 >= 5

if 5 < 10 then
	return true
elseif 5 > 10 then
	return false
else
	return nil
end
-- comment
10 == 10 -- trailing comment
10 ~= 9
true and false
true or not false
10 & 9 | 8 ~ 7
1 << 2 >> 3
"a" .. "b"
...
.5
do end
while until repeat
for i in pairs do end
goto done
::done::
break
t.field
t:method()
{1, 2; x = 3}
-- comment at eof`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.LOCAL, "local"},
		{token.IDENT, "five"},
		{token.ASSIGN, "="},
		{token.NUMBER, "5"},
		{token.LOCAL, "local"},
		{token.IDENT, "ten"},
		{token.ASSIGN, "="},
		{token.NUMBER, "10.25"},
		{token.LOCAL, "local"},
		{token.IDENT, "add"},
		{token.ASSIGN, "="},
		{token.FUNCTION, "function"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.COMMA, ","},
		{token.IDENT, "y"},
		{token.RPAREN, ")"},
		{token.RETURN, "return"},
		{token.IDENT, "x"},
		{token.PLUS, "+"},
		{token.IDENT, "y"},
		{token.END, "end"},
		{token.LOCAL, "local"},
		{token.IDENT, "result"},
		{token.ASSIGN, "="},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.IDENT, "five"},
		{token.COMMA, ","},
		{token.IDENT, "ten"},
		{token.RPAREN, ")"},
		{token.MINUS, "-"},
		{token.SLASH, "/"},
		{token.ASTERISK, "*"},
		{token.PERCENT, "%"},
		{token.CARET, "^"},
		{token.HASH, "#"},
		{token.NUMBER, "5"},
		{token.NUMBER, "5"},
		{token.LT, "<"},
		{token.NUMBER, "10"},
		{token.GT, ">"},
		{token.NUMBER, "5"},
		{token.NUMBER, "5"},
		{token.LT_EQ, "<="},
		{token.NUMBER, "10"},
		{token.GT_EQ, ">="},
		{token.NUMBER, "5"},
		{token.IF, "if"},
		{token.NUMBER, "5"},
		{token.LT, "<"},
		{token.NUMBER, "10"},
		{token.THEN, "then"},
		{token.RETURN, "return"},
		{token.TRUE, "true"},
		{token.ELSEIF, "elseif"},
		{token.NUMBER, "5"},
		{token.GT, ">"},
		{token.NUMBER, "10"},
		{token.THEN, "then"},
		{token.RETURN, "return"},
		{token.FALSE, "false"},
		{token.ELSE, "else"},
		{token.RETURN, "return"},
		{token.NIL, "nil"},
		{token.END, "end"},
		{token.NUMBER, "10"},
		{token.EQ, "=="},
		{token.NUMBER, "10"},
		{token.NUMBER, "10"},
		{token.NOT_EQ, "~="},
		{token.NUMBER, "9"},
		{token.TRUE, "true"},
		{token.AND, "and"},
		{token.FALSE, "false"},
		{token.TRUE, "true"},
		{token.OR, "or"},
		{token.NOT, "not"},
		{token.FALSE, "false"},
		{token.NUMBER, "10"},
		{token.AMPERSAND, "&"},
		{token.NUMBER, "9"},
		{token.PIPE, "|"},
		{token.NUMBER, "8"},
		{token.TILDE, "~"},
		{token.NUMBER, "7"},
		{token.NUMBER, "1"},
		{token.SHIFT_LEFT, "<<"},
		{token.NUMBER, "2"},
		{token.SHIFT_RIGHT, ">>"},
		{token.NUMBER, "3"},
		{token.STRING, "a"},
		{token.CONCAT, ".."},
		{token.STRING, "b"},
		{token.ELLIPSIS, "..."},
		{token.NUMBER, ".5"},
		{token.DO, "do"},
		{token.END, "end"},
		{token.WHILE, "while"},
		{token.UNTIL, "until"},
		{token.REPEAT, "repeat"},
		{token.FOR, "for"},
		{token.IDENT, "i"},
		{token.IN, "in"},
		{token.IDENT, "pairs"},
		{token.DO, "do"},
		{token.END, "end"},
		{token.GOTO, "goto"},
		{token.IDENT, "done"},
		{token.LABEL, "::"},
		{token.IDENT, "done"},
		{token.LABEL, "::"},
		{token.BREAK, "break"},
		{token.IDENT, "t"},
		{token.PERIOD, "."},
		{token.IDENT, "field"},
		{token.IDENT, "t"},
		{token.COLON, ":"},
		{token.IDENT, "method"},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.NUMBER, "1"},
		{token.COMMA, ","},
		{token.NUMBER, "2"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.NUMBER, "3"},
		{token.RBRACE, "}"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q '%q', got=%q: '%q'",
				i, tt.expectedType, tt.expectedLiteral, tok.Type, tok.Literal)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	input := `"\n\t\r\\\"" '\''`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.STRING, "\n\t\r\\\""},
		{token.STRING, "'"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q: '%q'",
				i, tt.expectedType, tok.Type, tok.Literal)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`"no end`)
	tok := l.NextToken()

	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL token, got %q: %q", tok.Type, tok.Literal)
	}
}

func TestStringAcrossNewline(t *testing.T) {
	l := New("\"line\nbreak\"")
	tok := l.NextToken()

	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL token, got %q: %q", tok.Type, tok.Literal)
	}
}

func TestShebangLine(t *testing.T) {
	input := "#!/usr/bin/env moss\nlocal x = 1"

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.LOCAL, "local"},
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.NUMBER, "1"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q: '%q'",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
	}
}

func TestTokenPositions(t *testing.T) {
	input := "local x = 10"

	tests := []struct {
		expectedType     token.TokenType
		expectedPosition int
	}{
		{token.LOCAL, 0},
		{token.IDENT, 6},
		{token.ASSIGN, 8},
		{token.NUMBER, 10},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Position != tt.expectedPosition {
			t.Fatalf("tests[%d] - position wrong. expected=%d, got=%d",
				i, tt.expectedPosition, tok.Position)
		}
	}
}
