package lexer

import (
	"moss/internal/token"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Lexer struct {
	input        string
	position     int  // current byte position in input (points to start of current rune)
	readPosition int  // next byte position in input (start of next rune)
	ch           rune // current rune under examination; 0 means EOF
}

func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	l.skipShebang()
	return l
}

func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespace()

	startPosition := l.position

	switch l.ch {
	case '=':
		tok = l.handleCompoundToken(token.ASSIGN, '=', token.EQ)
	case '+':
		tok = newToken(token.PLUS, l.ch, startPosition)
	case '-':
		tok = newToken(token.MINUS, l.ch, startPosition)
	case '*':
		tok = newToken(token.ASTERISK, l.ch, startPosition)
	case '/':
		tok = l.handleCompoundToken(token.SLASH, '/', token.DSLASH)
	case '%':
		tok = newToken(token.PERCENT, l.ch, startPosition)
	case '^':
		tok = newToken(token.CARET, l.ch, startPosition)
	case '#':
		tok = newToken(token.HASH, l.ch, startPosition)
	case '~':
		tok = l.handleCompoundToken(token.TILDE, '=', token.NOT_EQ)
	case '&':
		tok = newToken(token.AMPERSAND, l.ch, startPosition)
	case '|':
		tok = newToken(token.PIPE, l.ch, startPosition)
	case '<':
		tok = l.handleCompoundToken2(token.LT, '=', token.LT_EQ, '<', token.SHIFT_LEFT)
	case '>':
		tok = l.handleCompoundToken2(token.GT, '=', token.GT_EQ, '>', token.SHIFT_RIGHT)
	case ';':
		tok = newToken(token.SEMICOLON, l.ch, startPosition)
	case ':':
		tok = l.handleCompoundToken(token.COLON, ':', token.LABEL)
	case ',':
		tok = newToken(token.COMMA, l.ch, startPosition)
	case '.':
		if l.peekChar() == '.' && l.peekTwoChars() == '.' {
			tok = token.Token{Type: token.ELLIPSIS, Literal: "...", Position: startPosition}
			l.readChar()
			l.readChar()
		} else if l.peekChar() == '.' {
			tok = token.Token{Type: token.CONCAT, Literal: "..", Position: startPosition}
			l.readChar()
		} else if isDigit(l.peekChar()) {
			// a number may start with a bare decimal point, .5 == 0.5
			tok.Type = token.NUMBER
			tok.Literal = l.readNumber()
			tok.Position = startPosition
			return tok
		} else {
			tok = newToken(token.PERIOD, l.ch, startPosition)
		}
	case '(':
		tok = newToken(token.LPAREN, l.ch, startPosition)
	case ')':
		tok = newToken(token.RPAREN, l.ch, startPosition)
	case '{':
		tok = newToken(token.LBRACE, l.ch, startPosition)
	case '}':
		tok = newToken(token.RBRACE, l.ch, startPosition)
	case '[':
		tok = newToken(token.LBRACKET, l.ch, startPosition)
	case ']':
		tok = newToken(token.RBRACKET, l.ch, startPosition)
	case '"', '\'':
		literal, ok := l.readString(l.ch)
		if !ok {
			return token.Token{Type: token.ILLEGAL, Literal: literal, Position: startPosition}
		}
		return token.Token{Type: token.STRING, Literal: literal, Position: startPosition}
	case 0:
		tok.Literal = ""
		tok.Type = token.EOF
		tok.Position = startPosition
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = token.LookupIdent(tok.Literal)
			tok.Position = startPosition
			return tok
		} else if isDigit(l.ch) {
			tok.Type = token.NUMBER
			tok.Literal = l.readNumber()
			tok.Position = startPosition
			return tok
		} else {
			tok = newToken(token.ILLEGAL, l.ch, startPosition)
		}
	}

	l.readChar()
	return tok
}

func (l *Lexer) handleCompoundToken(
	t token.TokenType,
	ch1 rune,
	t1 token.TokenType,
) token.Token {
	startPosition := l.position
	if l.peekChar() == ch1 {
		first := l.ch
		l.readChar()
		literal := string(first) + string(l.ch)
		return token.Token{Type: t1, Literal: literal, Position: startPosition}
	} else {
		return newToken(t, l.ch, startPosition)
	}
}

func (l *Lexer) handleCompoundToken2(
	t token.TokenType,
	ch1 rune,
	t1 token.TokenType,
	ch2 rune,
	t2 token.TokenType,
) token.Token {
	startPosition := l.position
	peek := l.peekChar()
	if peek == ch1 {
		first := l.ch
		l.readChar()
		literal := string(first) + string(l.ch)
		return token.Token{Type: t1, Literal: literal, Position: startPosition}
	} else if peek == ch2 {
		first := l.ch
		l.readChar()
		literal := string(first) + string(l.ch)
		return token.Token{Type: t2, Literal: literal, Position: startPosition}
	} else {
		return newToken(t, l.ch, startPosition)
	}
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.ch {
		case ' ', '\t', '\r', '\n':
			l.readChar()
		case '-':
			if l.peekChar() == '-' {
				l.skipToLineEnd()
			} else {
				return
			}
		default:
			return
		}
	}
}

// skipShebang ignores a `#!...` line at the very start of the input
// so executable scripts can carry an interpreter line.
func (l *Lexer) skipShebang() {
	if l.ch == '#' && l.peekChar() == '!' {
		l.skipToLineEnd()
	}
}

func (l *Lexer) skipToLineEnd() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// readChar advances by one UTF-8 rune, updating byte positions
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
}

// peekChar returns the next rune without advancing; returns 0 at EOF
func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// peekTwoChars returns the rune after next without advancing; returns 0 if unavailable
func (l *Lexer) peekTwoChars() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	_, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	idx := l.readPosition + size
	if idx >= len(l.input) {
		return 0
	}
	r2, _ := utf8.DecodeRuneInString(l.input[idx:])
	return r2
}

// readIdentifier returns the substring (bytes) covering the identifier runes
func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber scans a decimal literal with an optional fraction and exponent
func (l *Lexer) readNumber() string {
	var numStr strings.Builder
	for isDigit(l.ch) {
		numStr.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		numStr.WriteRune(l.ch)
		l.readChar()
		for isDigit(l.ch) {
			numStr.WriteRune(l.ch)
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		peek := l.peekChar()
		if isDigit(peek) || ((peek == '+' || peek == '-') && isDigit(l.peekTwoChars())) {
			numStr.WriteRune(l.ch)
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				numStr.WriteRune(l.ch)
				l.readChar()
			}
			for isDigit(l.ch) {
				numStr.WriteRune(l.ch)
				l.readChar()
			}
		}
	}
	return numStr.String()
}

// readString scans a quoted literal, processing escapes. The opening quote is
// the current char; on success the lexer is left past the closing quote.
// Returns ok=false for an unterminated string or a string spanning a raw newline.
func (l *Lexer) readString(quote rune) (string, bool) {
	var out strings.Builder
	l.readChar() // consume the opening quote
	for l.ch != quote {
		if l.ch == 0 || l.ch == '\n' {
			return "unterminated string", false
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				out.WriteRune('\n')
			case 't':
				out.WriteRune('\t')
			case 'r':
				out.WriteRune('\r')
			case '\\':
				out.WriteRune('\\')
			case '"':
				out.WriteRune('"')
			case '\'':
				out.WriteRune('\'')
			case 0:
				return "unterminated string", false
			default:
				out.WriteRune(l.ch)
			}
		} else {
			out.WriteRune(l.ch)
		}
		l.readChar()
	}
	l.readChar() // consume the closing quote
	return out.String(), true
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func newToken(tokenType token.TokenType, ch rune, position int) token.Token {
	return token.Token{Type: tokenType, Literal: string(ch), Position: position}
}
