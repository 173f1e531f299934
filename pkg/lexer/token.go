package lexer

import (
	"fmt"
)

// Kind identifies a lexical token.
type Kind byte

const (
	EOF Kind = iota
	Illegal

	Identifier
	Integer
	Float
	String

	// keywords
	Break
	Continue
	If
	Else
	False
	Null
	Return
	True
	While

	// operators and punctuation
	Assign   // =
	Eq       // ==
	Not      // !
	Ne       // !=
	Or       // |
	Bor      // ||
	And      // &
	Band     // &&
	Lt       // <
	Lte      // <=
	Gt       // >
	Gte      // >=
	Period   // .
	Dollar   // $
	Question // ?
	Colon    // :
	LBracket // [
	RBracket // ]
	LParen   // (
	RParen   // )
	LBrace   // {
	RBrace   // }
	Comma    // ,
	Semi     // ;
	Add      // +
	Minus    // -
	Multiply // *
	Divide   // /
	Mod      // %
)

var keywords = map[string]Kind{
	"break":    Break,
	"continue": Continue,
	"if":       If,
	"else":     Else,
	"false":    False,
	"null":     Null,
	"return":   Return,
	"true":     True,
	"while":    While,
}

var kindNames = [...]string{
	EOF:        "end of input",
	Illegal:    "illegal token",
	Identifier: "identifier",
	Integer:    "integer",
	Float:      "float",
	String:     "string",
	Break:      "'break'",
	Continue:   "'continue'",
	If:         "'if'",
	Else:       "'else'",
	False:      "'false'",
	Null:       "'null'",
	Return:     "'return'",
	True:       "'true'",
	While:      "'while'",
	Assign:     "'='",
	Eq:         "'=='",
	Not:        "'!'",
	Ne:         "'!='",
	Or:         "'|'",
	Bor:        "'||'",
	And:        "'&'",
	Band:       "'&&'",
	Lt:         "'<'",
	Lte:        "'<='",
	Gt:         "'>'",
	Gte:        "'>='",
	Period:     "'.'",
	Dollar:     "'$'",
	Question:   "'?'",
	Colon:      "':'",
	LBracket:   "'['",
	RBracket:   "']'",
	LParen:     "'('",
	RParen:     "')'",
	LBrace:     "'{'",
	RBrace:     "'}'",
	Comma:      "','",
	Semi:       "';'",
	Add:        "'+'",
	Minus:      "'-'",
	Multiply:   "'*'",
	Divide:     "'/'",
	Mod:        "'%'",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("token(%d)", k)
}

// Token is a lexical token with the offset of its first character.
// Value holds an int32, float32 or string payload for literals and identifiers,
// and the error message for Illegal tokens.
type Token struct {
	Kind   Kind
	Value  any
	Offset int
}

func (t Token) String() string {
	switch t.Kind {
	case Identifier, Integer, Float:
		return fmt.Sprintf("%s %v", t.Kind, t.Value)
	case String:
		return fmt.Sprintf("string %q", t.Value)
	case Illegal:
		return fmt.Sprintf("illegal token (%v)", t.Value)
	default:
		return t.Kind.String()
	}
}
