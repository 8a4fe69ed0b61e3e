package grammar

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies a lexical token of the query dialect.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokString
	TokNumber
	TokRegex
	TokPunct
)

func (k TokenKind) String() string {
	switch k {
	case TokEOF:
		return "end of input"
	case TokIdent:
		return "identifier"
	case TokString:
		return "string"
	case TokNumber:
		return "number"
	case TokRegex:
		return "regex"
	case TokPunct:
		return "punctuation"
	}
	return "token"
}

// Token is one lexeme. Start and End are byte offsets into the lexed text.
// Value holds the decoded contents of strings and the pattern of regexes.
type Token struct {
	Kind  TokenKind
	Text  string
	Value string
	Flags string
	Start int
	End   int
}

const punctuation = ";(){}[],.:"

// Lex splits src into tokens, skipping whitespace and comments. It stops at
// the first lexical error and returns the tokens read so far with it; the
// token list always ends with TokEOF.
func Lex(src string) ([]Token, error) {
	l := &lexer{src: src}
	for {
		tok, err := l.next()
		if err != nil {
			l.toks = append(l.toks, Token{Kind: TokEOF, Start: len(src), End: len(src)})
			return l.toks, err
		}
		l.toks = append(l.toks, tok)
		if tok.Kind == TokEOF {
			return l.toks, nil
		}
	}
}

type lexer struct {
	src  string
	pos  int
	toks []Token
}

func (l *lexer) next() (Token, error) {
	if err := l.skipSpace(); err != nil {
		return Token{}, err
	}
	if l.pos >= len(l.src) {
		return Token{Kind: TokEOF, Start: l.pos, End: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]
	switch {
	case strings.IndexByte(punctuation, c) >= 0:
		l.pos++
		return Token{Kind: TokPunct, Text: l.src[start:l.pos], Start: start, End: l.pos}, nil
	case c == '"' || c == '\'':
		return l.lexString(c)
	case c == '/':
		return l.lexRegex()
	case c == '-' || c == '+' || isDigit(c) || (c == '.' && l.peekDigit(1)):
		return l.lexNumber()
	}

	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	if isIdentRune(r, true) {
		l.pos += size
		for l.pos < len(l.src) {
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if !isIdentRune(r, false) {
				break
			}
			l.pos += size
		}
		return Token{Kind: TokIdent, Text: l.src[start:l.pos], Start: start, End: l.pos}, nil
	}
	return Token{}, errAt(l.src, start, start+size, "unexpected character %q", r)
}

func (l *lexer) skipSpace() error {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		switch {
		case unicode.IsSpace(r):
			l.pos += size
		case strings.HasPrefix(l.src[l.pos:], "//"):
			if nl := strings.IndexByte(l.src[l.pos:], '\n'); nl >= 0 {
				l.pos += nl + 1
			} else {
				l.pos = len(l.src)
			}
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return errAt(l.src, l.pos, len(l.src), "unterminated comment")
			}
			l.pos += end + 4
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) lexString(quote byte) (Token, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == quote:
			l.pos++
			return Token{Kind: TokString, Text: l.src[start:l.pos], Value: b.String(), Start: start, End: l.pos}, nil
		case c == '\n':
			return Token{}, errAt(l.src, start, l.pos, "unterminated string")
		case c == '\\' && l.pos+1 < len(l.src):
			l.pos++
			if err := l.unescape(&b); err != nil {
				return Token{}, err
			}
		default:
			b.WriteByte(c)
			l.pos++
		}
	}
	return Token{}, errAt(l.src, start, l.pos, "unterminated string")
}

func (l *lexer) unescape(b *strings.Builder) error {
	c := l.src[l.pos]
	l.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case '0':
		b.WriteByte(0)
	case 'u':
		if l.pos+4 > len(l.src) {
			return errAt(l.src, l.pos-2, len(l.src), "invalid unicode escape")
		}
		var r rune
		for _, h := range l.src[l.pos : l.pos+4] {
			v := hexValue(h)
			if v < 0 {
				return errAt(l.src, l.pos-2, l.pos+4, "invalid unicode escape")
			}
			r = r<<4 | rune(v)
		}
		l.pos += 4
		b.WriteRune(r)
	default:
		b.WriteByte(c)
	}
	return nil
}

func (l *lexer) lexRegex() (Token, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	inClass := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			return Token{}, errAt(l.src, start, l.pos, "unterminated regex")
		case c == '\\' && l.pos+1 < len(l.src):
			b.WriteString(l.src[l.pos : l.pos+2])
			l.pos += 2
			continue
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			pattern := b.String()
			l.pos++
			flagStart := l.pos
			for l.pos < len(l.src) && isRegexFlag(l.src[l.pos]) {
				l.pos++
			}
			return Token{
				Kind:  TokRegex,
				Text:  l.src[start:l.pos],
				Value: pattern,
				Flags: l.src[flagStart:l.pos],
				Start: start,
				End:   l.pos,
			}, nil
		}
		b.WriteByte(c)
		l.pos++
	}
	return Token{}, errAt(l.src, start, l.pos, "unterminated regex")
}

func (l *lexer) lexNumber() (Token, error) {
	start := l.pos
	if c := l.src[l.pos]; c == '-' || c == '+' {
		l.pos++
		if !l.peekDigit(0) && !(l.pos < len(l.src) && l.src[l.pos] == '.' && l.peekDigit(1)) {
			return Token{}, errAt(l.src, start, l.pos, "unexpected %q", c)
		}
	}
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' && l.peekDigit(1) {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		save := l.pos
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '-' || l.src[l.pos] == '+') {
			l.pos++
		}
		if !l.peekDigit(0) {
			l.pos = save
		}
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	return Token{Kind: TokNumber, Text: l.src[start:l.pos], Start: start, End: l.pos}, nil
}

func (l *lexer) peekDigit(off int) bool {
	i := l.pos + off
	return i < len(l.src) && isDigit(l.src[i])
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isRegexFlag(c byte) bool { return strings.IndexByte("imxsgu", c) >= 0 }

func hexValue(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10
	case r >= 'A' && r <= 'F':
		return int(r-'A') + 10
	}
	return -1
}
