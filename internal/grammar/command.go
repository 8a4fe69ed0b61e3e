// Package grammar parses the single-line commands typed at the prompt and the
// mongo-shell query dialect they forward to the database.
//
// Everything here is pure: no I/O, no clocks, no shared state. The same input
// always yields the same Command (or the same ParseError), which is what lets
// the interactive client and the language service agree on what a line means.
package grammar

import (
	"strings"
	"unicode"
)

// Command is the parsed form of one line of operator input.
// The concrete types are Use, Connect, RawQuery and Unknown.
type Command interface {
	command()
}

// Use switches the active database on the current connection.
type Use struct {
	Database string
}

// Connect replaces the active connection.
type Connect struct {
	Source URISource
}

// RawQuery is forwarded verbatim to the database client.
type RawQuery struct {
	Text string
}

// Unknown is anything that is neither a client verb nor a query.
type Unknown struct {
	Text string
}

func (Use) command()      {}
func (Connect) command()  {}
func (RawQuery) command() {}
func (Unknown) command()  {}

// URISource says where a connection URI comes from.
// The concrete types are Literal and ShellSubstitution.
type URISource interface {
	uriSource()
	String() string
}

// Literal is a URI typed directly on the line.
type Literal struct {
	URI string
}

// ShellSubstitution is the body of a !( ... ) form. It is run through the
// operator's shell and its trimmed stdout becomes the URI.
type ShellSubstitution struct {
	Command string
}

func (Literal) uriSource()           {}
func (ShellSubstitution) uriSource() {}

func (l Literal) String() string           { return l.URI }
func (s ShellSubstitution) String() string { return "!(" + s.Command + ")" }

const (
	verbUse     = "use"
	verbConnect = "connect"
)

// Parse turns one line of input into a Command.
//
// Empty input and unrecognised leading words yield Unknown with a nil error.
// Malformed use/connect lines yield a *ParseError carrying the byte offset of
// the problem; the caller keeps the input so the operator can fix it.
func Parse(raw string) (Command, error) {
	lead := len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
	text := strings.TrimSpace(raw)
	if text == "" {
		return Unknown{Text: text}, nil
	}

	head := leadingIdent(text)
	rest := text[len(head):]
	isVerb := head != "" && (rest == "" || unicode.IsSpace(rune(rest[0])))

	if isVerb {
		switch strings.ToLower(head) {
		case verbUse:
			return parseUse(raw, rest, lead+len(head))
		case verbConnect:
			return parseConnect(raw, rest, lead+len(head))
		}
	}

	if isQueryStart(text, head) {
		return RawQuery{Text: text}, nil
	}
	return Unknown{Text: text}, nil
}

func parseUse(raw, rest string, offset int) (Command, error) {
	arg, argPos := trimArg(rest, offset)
	if arg == "" {
		return nil, &ParseError{Input: raw, Pos: len(raw), Message: "use: missing database name"}
	}
	if i := strings.IndexFunc(arg, unicode.IsSpace); i >= 0 {
		return nil, &ParseError{Input: raw, Pos: argPos + i, Message: "use: database name must be a single word"}
	}
	return Use{Database: arg}, nil
}

func parseConnect(raw, rest string, offset int) (Command, error) {
	arg, argPos := trimArg(rest, offset)
	if arg == "" {
		return nil, &ParseError{Input: raw, Pos: len(raw), Message: "connect: missing URI"}
	}

	if strings.HasPrefix(arg, "!(") {
		body, end, ok := scanSubstitution(arg)
		if !ok {
			return nil, &ParseError{Input: raw, Pos: argPos, Message: "connect: unterminated !( substitution"}
		}
		if trailing := strings.TrimSpace(arg[end:]); trailing != "" {
			return nil, &ParseError{Input: raw, Pos: argPos + end, Message: "connect: unexpected text after substitution"}
		}
		body = strings.TrimSpace(body)
		if body == "" {
			return nil, &ParseError{Input: raw, Pos: argPos, Message: "connect: empty substitution"}
		}
		return Connect{Source: ShellSubstitution{Command: body}}, nil
	}

	if i := strings.IndexFunc(arg, unicode.IsSpace); i >= 0 {
		return nil, &ParseError{Input: raw, Pos: argPos + i, Message: "connect: URI must not contain whitespace"}
	}
	return Connect{Source: Literal{URI: arg}}, nil
}

// trimArg trims rest and returns the argument with its absolute offset.
func trimArg(rest string, offset int) (string, int) {
	trimmed := strings.TrimLeftFunc(rest, unicode.IsSpace)
	pos := offset + len(rest) - len(trimmed)
	return strings.TrimRightFunc(trimmed, unicode.IsSpace), pos
}

// scanSubstitution scans s, which starts with "!(", up to the matching close
// paren. Quotes are honoured so a ")" inside a shell string does not close it.
// It returns the body, the offset just past the closing paren and whether one
// was found.
func scanSubstitution(s string) (string, int, bool) {
	depth := 0
	var quote byte
	for i := 1; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case c == '\\' && quote != '\'' && i+1 < len(s):
				i++
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[2:i], i + 1, true
			}
		}
	}
	return "", 0, false
}

func leadingIdent(s string) string {
	for i, r := range s {
		if !isIdentRune(r, i == 0) {
			return s[:i]
		}
	}
	return s
}

func isQueryStart(text, head string) bool {
	switch head {
	case "db", "show":
		return true
	case "true", "false", "null":
		return true
	case "":
	default:
		return isHelper(head) && strings.HasPrefix(strings.TrimSpace(text[len(head):]), "(")
	}
	switch text[0] {
	case '{', '[', '"', '\'', '/', '-':
		return true
	}
	return text[0] >= '0' && text[0] <= '9'
}

func isIdentRune(r rune, first bool) bool {
	if r == '_' || r == '$' || unicode.IsLetter(r) {
		return true
	}
	return !first && unicode.IsDigit(r)
}
