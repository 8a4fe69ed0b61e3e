package grammar

import "fmt"

// ArgKind is the expected shape of a method argument.
type ArgKind int

const (
	ArgAny ArgKind = iota
	ArgDocument
	ArgPipeline
	ArgNumber
	ArgString
	ArgBool
)

func (k ArgKind) String() string {
	switch k {
	case ArgDocument:
		return "document"
	case ArgPipeline:
		return "pipeline array"
	case ArgNumber:
		return "number"
	case ArgString:
		return "string"
	case ArgBool:
		return "boolean"
	}
	return "value"
}

// MethodSpec describes a collection method or cursor modifier.
type MethodSpec struct {
	Name      string
	Args      []ArgKind
	Required  int
	Detail    string
	Modifiers []string
}

var collectionMethods = []MethodSpec{
	{
		Name:      "find",
		Args:      []ArgKind{ArgDocument, ArgDocument},
		Detail:    "find(filter, projection)",
		Modifiers: []string{"sort", "limit", "skip", "count", "projection", "maxTimeMS", "pretty", "toArray"},
	},
	{Name: "findOne", Args: []ArgKind{ArgDocument, ArgDocument}, Detail: "findOne(filter, projection)"},
	{Name: "count", Args: []ArgKind{ArgDocument}, Detail: "count(filter)"},
	{Name: "countDocuments", Args: []ArgKind{ArgDocument}, Detail: "countDocuments(filter)"},
	{Name: "estimatedDocumentCount", Detail: "estimatedDocumentCount()"},
	{Name: "distinct", Args: []ArgKind{ArgString, ArgDocument}, Required: 1, Detail: "distinct(field, filter)"},
	{
		Name:      "aggregate",
		Args:      []ArgKind{ArgPipeline},
		Detail:    "aggregate(pipeline)",
		Modifiers: []string{"allowDiskUse", "maxTimeMS", "pretty", "toArray"},
	},
}

var modifierSpecs = map[string]MethodSpec{
	"sort":         {Name: "sort", Args: []ArgKind{ArgDocument}, Required: 1, Detail: "sort(spec)"},
	"limit":        {Name: "limit", Args: []ArgKind{ArgNumber}, Required: 1, Detail: "limit(n)"},
	"skip":         {Name: "skip", Args: []ArgKind{ArgNumber}, Required: 1, Detail: "skip(n)"},
	"count":        {Name: "count", Detail: "count()"},
	"projection":   {Name: "projection", Args: []ArgKind{ArgDocument}, Required: 1, Detail: "projection(spec)"},
	"maxTimeMS":    {Name: "maxTimeMS", Args: []ArgKind{ArgNumber}, Required: 1, Detail: "maxTimeMS(ms)"},
	"allowDiskUse": {Name: "allowDiskUse", Args: []ArgKind{ArgBool}, Detail: "allowDiskUse(enabled)"},
	"pretty":       {Name: "pretty", Detail: "pretty()"},
	"toArray":      {Name: "toArray", Detail: "toArray()"},
}

var helpers = []string{"ObjectId", "ISODate", "Date", "NumberLong", "NumberInt", "NumberDecimal"}

// CollectionMethods lists the methods callable on db.<collection>.
func CollectionMethods() []MethodSpec {
	out := make([]MethodSpec, len(collectionMethods))
	copy(out, collectionMethods)
	return out
}

// LookupMethod finds a collection method by name.
func LookupMethod(name string) (MethodSpec, bool) {
	for _, m := range collectionMethods {
		if m.Name == name {
			return m, true
		}
	}
	return MethodSpec{}, false
}

// ModifiersFor lists the cursor modifiers that may follow method.
func ModifiersFor(method string) []MethodSpec {
	m, ok := LookupMethod(method)
	if !ok {
		return nil
	}
	out := make([]MethodSpec, 0, len(m.Modifiers))
	for _, name := range m.Modifiers {
		out = append(out, modifierSpecs[name])
	}
	return out
}

// Helpers lists the value constructors understood inside queries.
func Helpers() []string {
	return append([]string(nil), helpers...)
}

func isHelper(name string) bool {
	for _, h := range helpers {
		if h == name {
			return true
		}
	}
	return false
}

func (s MethodSpec) allowsModifier(name string) bool {
	for _, m := range s.Modifiers {
		if m == name {
			return true
		}
	}
	return false
}

func checkArgs(src string, spec MethodSpec, call MethodCall) error {
	if len(call.Args) < spec.Required {
		return errAt(src, call.Pos, call.End, "%s: expected at least %d argument(s), got %d", spec.Name, spec.Required, len(call.Args))
	}
	if len(call.Args) > len(spec.Args) {
		extra := call.Args[len(spec.Args)]
		pos, end := extra.Span()
		return errAt(src, pos, end, "%s: too many arguments", spec.Name)
	}
	for i, arg := range call.Args {
		if err := checkKind(src, spec.Name, spec.Args[i], arg); err != nil {
			return err
		}
	}
	return nil
}

func checkKind(src, method string, kind ArgKind, arg Expr) error {
	ok := true
	switch kind {
	case ArgDocument:
		_, ok = arg.(*Object)
	case ArgPipeline:
		arr, isArr := arg.(*Array)
		ok = isArr
		if isArr {
			for _, el := range arr.Elems {
				if _, isObj := el.(*Object); !isObj {
					pos, end := el.Span()
					return errAt(src, pos, end, "%s: pipeline stages must be documents", method)
				}
			}
		}
	case ArgNumber:
		switch a := arg.(type) {
		case *Number:
		case *Call:
			id, isIdent := a.Fun.(*Ident)
			ok = isIdent && (id.Name == "NumberLong" || id.Name == "NumberInt")
		default:
			ok = false
		}
	case ArgString:
		_, ok = arg.(*String)
	case ArgBool:
		_, ok = arg.(*Bool)
	}
	if !ok {
		pos, end := arg.Span()
		return errAt(src, pos, end, "%s: expected %s", method, kind)
	}
	return nil
}

func describe(t Token) string {
	switch t.Kind {
	case TokEOF:
		return "end of input"
	case TokPunct:
		return fmt.Sprintf("%q", t.Text)
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}
