package grammar

import "strings"

// QueryKind says what a parsed query asks the database for.
type QueryKind int

const (
	// QueryShow lists databases or collections.
	QueryShow QueryKind = iota
	// QueryCollection calls a method on a collection.
	QueryCollection
	// QueryLiteral evaluates a literal value into documents.
	QueryLiteral
)

// Show targets.
const (
	ShowDatabases   = "databases"
	ShowCollections = "collections"
)

// Query is a parsed mongo-shell statement.
type Query struct {
	Kind QueryKind

	// Show is set for QueryShow.
	Show string

	// Collection, Method and Modifiers are set for QueryCollection.
	Collection string
	Method     MethodCall
	Modifiers  []MethodCall

	// Literal is set for QueryLiteral.
	Literal Expr
}

// MethodCall is one .name(args) link of a query chain.
type MethodCall struct {
	Name string
	Args []Expr
	Pos  int
	End  int
}

// Modifier returns the last modifier named name, if any.
func (q *Query) Modifier(name string) (MethodCall, bool) {
	for i := len(q.Modifiers) - 1; i >= 0; i-- {
		if q.Modifiers[i].Name == name {
			return q.Modifiers[i], true
		}
	}
	return MethodCall{}, false
}

// ParseQuery parses and validates one statement of the query dialect.
// Offsets in the returned AST and in any *ParseError refer to text.
func ParseQuery(text string) (*Query, error) {
	toks, err := Lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{src: text, toks: toks}

	if t := p.peek(); t.Kind == TokIdent && t.Text == "show" {
		return p.parseShow()
	}
	if p.peek().Kind == TokEOF {
		return nil, errAt(text, 0, len(text), "empty query")
	}

	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.isPunct(";") {
		p.advance()
	}
	if t := p.peek(); t.Kind != TokEOF {
		return nil, errAt(text, t.Start, t.End, "unexpected %s after query", describe(t))
	}
	return shapeQuery(text, x)
}

func (p *parser) parseShow() (*Query, error) {
	show := p.advance()
	target := p.peek()
	if target.Kind != TokIdent {
		return nil, errAt(p.src, show.Start, target.End, "show: expected dbs or collections")
	}
	p.advance()

	q := &Query{Kind: QueryShow}
	switch strings.ToLower(target.Text) {
	case "dbs", "databases":
		q.Show = ShowDatabases
	case "collections", "tables":
		q.Show = ShowCollections
	default:
		return nil, errAt(p.src, target.Start, target.End, "show: unknown target %q", target.Text)
	}
	if p.isPunct(";") {
		p.advance()
	}
	if t := p.peek(); t.Kind != TokEOF {
		return nil, errAt(p.src, t.Start, t.End, "unexpected %s after show", describe(t))
	}
	return q, nil
}

type segment struct {
	name    string
	namePos int
	call    *Call
}

// unwind flattens a.b(x).c(y) into its root and the ordered chain of links.
func unwind(x Expr) (Expr, []segment) {
	var segs []segment
	for {
		switch n := x.(type) {
		case *Call:
			m, ok := n.Fun.(*Member)
			if !ok {
				return reverse(x, segs)
			}
			segs = append(segs, segment{name: m.Name, namePos: m.NamePos, call: n})
			x = m.X
		case *Member:
			segs = append(segs, segment{name: n.Name, namePos: n.NamePos})
			x = n.X
		default:
			return reverse(x, segs)
		}
	}
}

func reverse(root Expr, segs []segment) (Expr, []segment) {
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return root, segs
}

func isLiteral(x Expr) bool {
	switch n := x.(type) {
	case *String, *Number, *Bool, *Null, *Regex, *Object, *Array:
		return true
	case *Call:
		id, ok := n.Fun.(*Ident)
		return ok && isHelper(id.Name)
	}
	return false
}

func shapeQuery(src string, x Expr) (*Query, error) {
	if isLiteral(x) {
		return &Query{Kind: QueryLiteral, Literal: x}, nil
	}

	root, segs := unwind(x)
	id, ok := root.(*Ident)
	if !ok || id.Name != "db" {
		pos, end := root.Span()
		return nil, errAt(src, pos, end, "queries must start with db")
	}
	if len(segs) == 0 {
		return nil, errAt(src, id.Pos, id.End, "expected db.<collection>.<method>(...)")
	}

	first := segs[0]
	var coll string
	if first.call != nil {
		switch first.name {
		case "getCollection":
			if len(first.call.Args) != 1 {
				return nil, errAt(src, first.call.Pos, first.call.End, "getCollection: expected one collection name")
			}
			name, ok := first.call.Args[0].(*String)
			if !ok {
				pos, end := first.call.Args[0].Span()
				return nil, errAt(src, pos, end, "getCollection: expected string")
			}
			coll = name.Value
		case "getCollectionNames":
			if len(segs) > 1 || len(first.call.Args) > 0 {
				return nil, errAt(src, first.call.Pos, first.call.End, "getCollectionNames takes no arguments")
			}
			return &Query{Kind: QueryShow, Show: ShowCollections}, nil
		default:
			return nil, errAt(src, first.namePos, first.namePos+len(first.name), "unknown database method %q", first.name)
		}
	} else {
		coll = first.name
	}

	rest := segs[1:]
	if len(rest) == 0 {
		return nil, errAt(src, first.namePos, first.namePos+len(first.name), "expected a method call on collection %q", coll)
	}
	for _, s := range rest {
		if s.call == nil {
			return nil, errAt(src, s.namePos, s.namePos+len(s.name), "expected call to %s(...)", s.name)
		}
	}

	method := toMethodCall(rest[0])
	spec, ok := LookupMethod(method.Name)
	if !ok {
		return nil, errAt(src, method.Pos, method.Pos+len(method.Name), "unknown collection method %q", method.Name)
	}
	if err := checkArgs(src, spec, method); err != nil {
		return nil, err
	}

	q := &Query{Kind: QueryCollection, Collection: coll, Method: method}
	for _, s := range rest[1:] {
		mod := toMethodCall(s)
		if !spec.allowsModifier(mod.Name) {
			return nil, errAt(src, mod.Pos, mod.Pos+len(mod.Name), "%s does not support .%s()", spec.Name, mod.Name)
		}
		if err := checkArgs(src, modifierSpecs[mod.Name], mod); err != nil {
			return nil, err
		}
		q.Modifiers = append(q.Modifiers, mod)
	}
	return q, nil
}

func toMethodCall(s segment) MethodCall {
	return MethodCall{Name: s.name, Args: s.call.Args, Pos: s.namePos, End: s.call.End}
}
