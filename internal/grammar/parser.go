package grammar

type parser struct {
	src  string
	toks []Token
	i    int
}

func (p *parser) peek() Token { return p.toks[p.i] }

func (p *parser) advance() Token {
	t := p.toks[p.i]
	if t.Kind != TokEOF {
		p.i++
	}
	return t
}

func (p *parser) isPunct(s string) bool {
	t := p.peek()
	return t.Kind == TokPunct && t.Text == s
}

func (p *parser) expect(s string) (Token, error) {
	if !p.isPunct(s) {
		t := p.peek()
		return t, errAt(p.src, t.Start, t.End, "expected %q, found %s", s, describe(t))
	}
	return p.advance(), nil
}

func (p *parser) parseExpr() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	start, _ := x.Span()
	for {
		switch {
		case p.isPunct("."):
			dot := p.advance()
			name := p.peek()
			if name.Kind != TokIdent {
				return nil, errAt(p.src, dot.Start, name.End, "expected property name after '.'")
			}
			p.advance()
			x = &Member{span: span{start, name.End}, X: x, Name: name.Text, NamePos: name.Start}
		case p.isPunct("["):
			p.advance()
			key := p.peek()
			if key.Kind != TokString {
				return nil, errAt(p.src, key.Start, key.End, "expected string property name, found %s", describe(key))
			}
			p.advance()
			closing, err := p.expect("]")
			if err != nil {
				return nil, err
			}
			x = &Member{span: span{start, closing.End}, X: x, Name: key.Value, NamePos: key.Start}
		case p.isPunct("("):
			p.advance()
			args, end, err := p.parseList(")")
			if err != nil {
				return nil, err
			}
			x = &Call{span: span{start, end}, Fun: x, Args: args}
		default:
			return x, nil
		}
	}
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.peek()
	s := span{t.Start, t.End}
	switch t.Kind {
	case TokIdent:
		p.advance()
		switch t.Text {
		case "true", "false":
			return &Bool{span: s, Value: t.Text == "true"}, nil
		case "null", "undefined":
			return &Null{span: s}, nil
		}
		return &Ident{span: s, Name: t.Text}, nil
	case TokString:
		p.advance()
		return &String{span: s, Value: t.Value}, nil
	case TokNumber:
		p.advance()
		return &Number{span: s, Raw: t.Text}, nil
	case TokRegex:
		p.advance()
		return &Regex{span: s, Pattern: t.Value, Flags: t.Flags}, nil
	case TokPunct:
		switch t.Text {
		case "{":
			return p.parseObject()
		case "[":
			p.advance()
			elems, end, err := p.parseList("]")
			if err != nil {
				return nil, err
			}
			return &Array{span: span{t.Start, end}, Elems: elems}, nil
		}
	}
	return nil, errAt(p.src, t.Start, t.End, "unexpected %s", describe(t))
}

func (p *parser) parseObject() (Expr, error) {
	open := p.advance()
	obj := &Object{span: span{Pos: open.Start}}
	for {
		if p.isPunct("}") {
			obj.End = p.advance().End
			return obj, nil
		}
		key := p.peek()
		var name string
		switch key.Kind {
		case TokIdent, TokNumber:
			name = key.Text
		case TokString:
			name = key.Value
		default:
			return nil, errAt(p.src, key.Start, key.End, "expected field name, found %s", describe(key))
		}
		p.advance()
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		obj.Fields = append(obj.Fields, Field{Key: name, KeyPos: key.Start, Value: val})
		if p.isPunct(",") {
			p.advance()
			continue
		}
		if !p.isPunct("}") {
			t := p.peek()
			return nil, errAt(p.src, t.Start, t.End, "expected ',' or '}', found %s", describe(t))
		}
	}
}

// parseList parses comma separated expressions up to close, which it
// consumes. A trailing comma is allowed.
func (p *parser) parseList(close string) ([]Expr, int, error) {
	var out []Expr
	for {
		if p.isPunct(close) {
			return out, p.advance().End, nil
		}
		x, err := p.parseExpr()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, x)
		if p.isPunct(",") {
			p.advance()
			continue
		}
		if !p.isPunct(close) {
			t := p.peek()
			return nil, 0, errAt(p.src, t.Start, t.End, "expected ',' or %q, found %s", close, describe(t))
		}
	}
}
