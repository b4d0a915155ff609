package token

type TokenType string

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers + literals
	IDENT  = "IDENT"  // x, foo, self, ...
	NUMBER = "NUMBER" // 42, 3.14, 1e9
	STRING = "STRING" // "hello", 'world'

	// Operators
	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"
	DSLASH   = "//"
	PERCENT  = "%"
	CARET    = "^"
	HASH     = "#"

	EQ     = "=="
	NOT_EQ = "~="
	LT     = "<"
	LT_EQ  = "<="
	GT     = ">"
	GT_EQ  = ">="

	AMPERSAND   = "&"
	PIPE        = "|"
	TILDE       = "~"
	SHIFT_LEFT  = "<<"
	SHIFT_RIGHT = ">>"

	CONCAT   = ".."
	ELLIPSIS = "..."

	// Delimiters
	PERIOD    = "."
	COMMA     = ","
	SEMICOLON = ";"
	COLON     = ":"
	LABEL     = "::"

	LPAREN   = "("
	RPAREN   = ")"
	LBRACE   = "{"
	RBRACE   = "}"
	LBRACKET = "["
	RBRACKET = "]"

	// Keywords
	AND      = "AND"
	BREAK    = "BREAK"
	DO       = "DO"
	ELSE     = "ELSE"
	ELSEIF   = "ELSEIF"
	END      = "END"
	FALSE    = "FALSE"
	FOR      = "FOR"
	FUNCTION = "FUNCTION"
	GOTO     = "GOTO"
	IF       = "IF"
	IN       = "IN"
	LOCAL    = "LOCAL"
	NIL      = "NIL"
	NOT      = "NOT"
	OR       = "OR"
	REPEAT   = "REPEAT"
	RETURN   = "RETURN"
	THEN     = "THEN"
	TRUE     = "TRUE"
	UNTIL    = "UNTIL"
	WHILE    = "WHILE"
)

type Token struct {
	Type     TokenType
	Literal  string
	Position int // the src index of the token
}

var keywords = map[string]TokenType{
	// constants
	"nil":   NIL,
	"true":  TRUE,
	"false": FALSE,

	// declarations
	"function": FUNCTION,
	"local":    LOCAL,

	// flow control
	"if":     IF,
	"then":   THEN,
	"else":   ELSE,
	"elseif": ELSEIF,
	"end":    END,
	"while":  WHILE,
	"repeat": REPEAT,
	"until":  UNTIL,
	"for":    FOR,
	"in":     IN,
	"do":     DO,
	"break":  BREAK,
	"goto":   GOTO,
	"return": RETURN,

	// operators
	"and": AND,
	"or":  OR,
	"not": NOT,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
