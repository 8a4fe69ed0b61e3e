package grammar

// Expr is a node of the query expression tree.
type Expr interface {
	Span() (int, int)
}

type span struct {
	Pos, End int
}

func (s span) Span() (int, int) { return s.Pos, s.End }

type (
	Ident struct {
		span
		Name string
	}

	String struct {
		span
		Value string
	}

	// Number keeps the source text so integers and floats can be told apart.
	Number struct {
		span
		Raw string
	}

	Bool struct {
		span
		Value bool
	}

	Null struct {
		span
	}

	Regex struct {
		span
		Pattern string
		Flags   string
	}

	Object struct {
		span
		Fields []Field
	}

	Array struct {
		span
		Elems []Expr
	}

	// Member is x.name, and also x["name"].
	Member struct {
		span
		X       Expr
		Name    string
		NamePos int
	}

	Call struct {
		span
		Fun  Expr
		Args []Expr
	}
)

// Field is one key: value pair of an object literal.
type Field struct {
	Key    string
	KeyPos int
	Value  Expr
}

// Get returns the value stored under key, if any.
func (o *Object) Get(key string) (Expr, bool) {
	for _, f := range o.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}
