package grammar

import (
	"errors"
	"strings"
	"unicode"
)

// NodeKind tags a region of analysed input.
type NodeKind int

const (
	NodeVerb NodeKind = iota
	NodeDatabase
	NodeURI
	NodeSubstitution
	NodeQuery
	NodeUnknown
)

// Node is a position-tagged region of the input.
type Node struct {
	Kind  NodeKind
	Start int
	End   int
	Text  string
}

// Analysis is the incremental view of one input used by editors: it is
// produced for incomplete and invalid input too.
type Analysis struct {
	Input   string
	Command Command
	Query   *Query
	Tokens  []Token
	Nodes   []Node
	Err     *ParseError
}

// Analyze parses raw without failing. Command is nil when Err is set by the
// command grammar; Query is set only for valid raw queries.
func Analyze(raw string) Analysis {
	a := Analysis{Input: raw}
	cmd, err := Parse(raw)
	a.Command = cmd
	a.setErr(err)

	lead := len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
	text := strings.TrimSpace(raw)
	head := leadingIdent(text)

	switch c := cmd.(type) {
	case RawQuery:
		a.Nodes = append(a.Nodes, Node{Kind: NodeQuery, Start: lead, End: lead + len(text), Text: c.Text})
		a.Tokens, _ = Lex(raw)
		q, qerr := ParseQuery(raw)
		a.Query = q
		a.setErr(qerr)
	case Unknown:
		if text != "" {
			a.Nodes = append(a.Nodes, Node{Kind: NodeUnknown, Start: lead, End: lead + len(head), Text: head})
		}
	case Use:
		a.Nodes = append(a.Nodes, verbNode(raw, lead, head), argNode(raw, NodeDatabase, c.Database))
	case Connect:
		kind := NodeURI
		if _, ok := c.Source.(ShellSubstitution); ok {
			kind = NodeSubstitution
		}
		arg := strings.TrimSpace(text[len(head):])
		a.Nodes = append(a.Nodes, verbNode(raw, lead, head), argNode(raw, kind, arg))
	case nil:
		// use/connect with a parse error still get their verb tagged.
		if head != "" {
			a.Nodes = append(a.Nodes, verbNode(raw, lead, head))
		}
	}
	return a
}

func (a *Analysis) setErr(err error) {
	if err == nil || a.Err != nil {
		return
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		a.Err = pe
		return
	}
	a.Err = &ParseError{Input: a.Input, Message: err.Error()}
}

func verbNode(raw string, lead int, head string) Node {
	return Node{Kind: NodeVerb, Start: lead, End: lead + len(head), Text: raw[lead : lead+len(head)]}
}

func argNode(raw string, kind NodeKind, arg string) Node {
	start := strings.LastIndex(raw, arg)
	if start < 0 {
		start = len(raw)
	}
	return Node{Kind: kind, Start: start, End: start + len(arg), Text: arg}
}

// NodeAt returns the node covering offset, if any. A node also covers the
// offset just past its end so a cursor at the end of a word finds it.
func (a Analysis) NodeAt(offset int) (Node, bool) {
	for _, n := range a.Nodes {
		if offset >= n.Start && offset <= n.End {
			return n, true
		}
	}
	return Node{}, false
}
