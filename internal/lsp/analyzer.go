package lsp

import (
	"fmt"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/sahilm/fuzzy"

	"github.com/nhath/ezmongo/internal/grammar"
	"github.com/nhath/ezmongo/internal/schema"
)

// CompletionKind follows LSP completion item kinds.
type CompletionKind int

const (
	CompletionMethod   CompletionKind = 2
	CompletionFunction CompletionKind = 3
	CompletionField    CompletionKind = 5
	CompletionModule   CompletionKind = 9
	CompletionValue    CompletionKind = 12
	CompletionKeyword  CompletionKind = 14
	CompletionOperator CompletionKind = 24
)

// CompletionItem is one candidate. Start and End are the byte range of the
// input it replaces.
type CompletionItem struct {
	Label  string
	Kind   CompletionKind
	Detail string
	Start  int
	End    int
}

// DiagnosticSeverity follows LSP severity levels.
type DiagnosticSeverity int

const (
	DiagError       DiagnosticSeverity = 1
	DiagWarning     DiagnosticSeverity = 2
	DiagInformation DiagnosticSeverity = 3
)

// Diagnostic is a problem in the input. Start and End are byte offsets.
type Diagnostic struct {
	Start    int
	End      int
	Severity DiagnosticSeverity
	Message  string
}

var verbs = []CompletionItem{
	{Label: "use", Kind: CompletionKeyword, Detail: "use <database>"},
	{Label: "connect", Kind: CompletionKeyword, Detail: "connect <uri> | connect !(<command>)"},
	{Label: "show", Kind: CompletionKeyword, Detail: "show dbs | show collections"},
	{Label: "db", Kind: CompletionModule, Detail: "db.<collection>.<method>(...)"},
}

var showTargets = []string{"dbs", "databases", "collections"}

var operators = []string{
	"$eq", "$ne", "$gt", "$gte", "$lt", "$lte", "$in", "$nin", "$exists", "$regex",
	"$and", "$or", "$nor", "$not", "$elemMatch", "$size",
	"$match", "$group", "$project", "$sort", "$limit", "$skip", "$unwind", "$lookup",
	"$count", "$sum", "$avg", "$min", "$max", "$push", "$addToSet", "$first", "$last",
}

// Analyzer answers completion and diagnostic questions about one line of
// input or one query file. It is safe for concurrent use; the schema
// snapshot may be swapped at any time.
type Analyzer struct {
	snapshot atomic.Pointer[schema.Snapshot]
	profiles []string
}

// NewAnalyzer returns an analyzer offering profiles as connect targets.
func NewAnalyzer(profiles ...string) *Analyzer {
	return &Analyzer{profiles: profiles}
}

// SetSnapshot replaces the connection context. nil degrades completion to
// syntax only.
func (a *Analyzer) SetSnapshot(s *schema.Snapshot) { a.snapshot.Store(s) }

// Snapshot returns the current connection context, or nil.
func (a *Analyzer) Snapshot() *schema.Snapshot { return a.snapshot.Load() }

// Complete returns the candidates for the word ending at offset, best first.
func (a *Analyzer) Complete(text string, offset int) []CompletionItem {
	if offset < 0 || offset > len(text) {
		offset = len(text)
	}
	prefix := text[:offset]
	trimmed := strings.TrimLeftFunc(prefix, unicode.IsSpace)
	lead := len(prefix) - len(trimmed)

	head := leadingWord(trimmed)
	if len(head) == len(trimmed) {
		return rank(head, withRange(verbs, lead, offset))
	}

	rest := trimmed[len(head):]
	if unicode.IsSpace(rune(rest[0])) {
		word := lastWord(prefix)
		start := offset - len(word)
		switch strings.ToLower(head) {
		case "use":
			if strings.ContainsFunc(strings.TrimSpace(rest), unicode.IsSpace) {
				return nil
			}
			return rank(word, a.names(a.databases(), CompletionModule, "database", start, offset))
		case "connect":
			if strings.HasPrefix(strings.TrimSpace(rest), "!(") {
				return nil
			}
			items := a.names(a.profiles, CompletionValue, "profile", start, offset)
			items = append(items, CompletionItem{Label: "!(", Kind: CompletionOperator, Detail: "shell substitution", Start: start, End: offset})
			return rank(word, items)
		case "show":
			return rank(word, a.names(showTargets, CompletionKeyword, "", start, offset))
		}
	}
	return a.completeQuery(prefix, offset)
}

func (a *Analyzer) completeQuery(prefix string, offset int) []CompletionItem {
	toks, _ := grammar.Lex(prefix)
	toks = toks[:len(toks)-1] // EOF

	partial := ""
	if n := len(toks); n > 0 && toks[n-1].Kind == grammar.TokIdent && toks[n-1].End == offset {
		partial = toks[n-1].Text
		toks = toks[:n-1]
	}
	start := offset - len(partial)

	if n := len(toks); n > 0 && isPunct(toks[n-1], ".") {
		chain := toks[:n-1]
		switch {
		case len(chain) == 1 && isIdent(chain[0], "db"):
			items := a.names(a.collections(), CompletionField, "collection", start, offset)
			items = append(items, CompletionItem{Label: "getCollection", Kind: CompletionMethod, Detail: "getCollection(name)", Start: start, End: offset})
			return rank(partial, items)
		case isCollectionRef(chain):
			var items []CompletionItem
			for _, m := range grammar.CollectionMethods() {
				items = append(items, CompletionItem{Label: m.Name, Kind: CompletionMethod, Detail: m.Detail, Start: start, End: offset})
			}
			return rank(partial, items)
		default:
			if method, ok := chainMethod(chain); ok {
				var items []CompletionItem
				for _, m := range grammar.ModifiersFor(method) {
					items = append(items, CompletionItem{Label: m.Name, Kind: CompletionMethod, Detail: m.Detail, Start: start, End: offset})
				}
				return rank(partial, items)
			}
		}
		return nil
	}

	if strings.HasPrefix(partial, "$") {
		return rank(partial, a.names(operators, CompletionOperator, "operator", start, offset))
	}
	if partial != "" && insideCall(toks) {
		return rank(partial, a.names(grammar.Helpers(), CompletionFunction, "helper", start, offset))
	}
	return nil
}

// Diagnose reports parse errors, unknown commands and, with a snapshot,
// names the server does not know.
func (a *Analyzer) Diagnose(text string) []Diagnostic {
	an := grammar.Analyze(text)
	var out []Diagnostic
	if an.Err != nil {
		start, end := an.Err.Span()
		out = append(out, Diagnostic{Start: start, End: end, Severity: DiagError, Message: an.Err.Message})
	}

	snap := a.Snapshot()
	switch c := an.Command.(type) {
	case grammar.Unknown:
		if n, ok := firstNode(an, grammar.NodeUnknown); ok {
			out = append(out, Diagnostic{Start: n.Start, End: n.End, Severity: DiagError, Message: fmt.Sprintf("unknown command %q", n.Text)})
		}
	case grammar.Use:
		if snap != nil && !contains(snap.Databases, c.Database) {
			if n, ok := firstNode(an, grammar.NodeDatabase); ok {
				out = append(out, Diagnostic{Start: n.Start, End: n.End, Severity: DiagInformation, Message: fmt.Sprintf("database %q does not exist yet", c.Database)})
			}
		}
	case grammar.RawQuery:
		q := an.Query
		if snap == nil || q == nil || q.Kind != grammar.QueryCollection {
			break
		}
		if !contains(snap.CollectionsOf(""), q.Collection) {
			start, end := collectionSpan(an.Tokens, q.Collection)
			out = append(out, Diagnostic{Start: start, End: end, Severity: DiagWarning, Message: fmt.Sprintf("collection %q not found in %s", q.Collection, snap.Database)})
		}
	}
	return out
}

// Hover describes the method or verb under offset.
func (a *Analyzer) Hover(text string, offset int) string {
	an := grammar.Analyze(text)
	if n, ok := an.NodeAt(offset); ok && n.Kind == grammar.NodeVerb {
		for _, v := range verbs {
			if strings.EqualFold(v.Label, n.Text) {
				return v.Detail
			}
		}
	}
	for _, t := range an.Tokens {
		if t.Kind != grammar.TokIdent || offset < t.Start || offset > t.End {
			continue
		}
		if m, ok := grammar.LookupMethod(t.Text); ok {
			return m.Detail
		}
		for _, h := range grammar.Helpers() {
			if h == t.Text {
				return h + "(...)"
			}
		}
	}
	return ""
}

func (a *Analyzer) databases() []string {
	if s := a.Snapshot(); s != nil {
		return s.Databases
	}
	return nil
}

func (a *Analyzer) collections() []string {
	if s := a.Snapshot(); s != nil {
		return s.CollectionsOf("")
	}
	return nil
}

func (a *Analyzer) names(names []string, kind CompletionKind, detail string, start, end int) []CompletionItem {
	items := make([]CompletionItem, 0, len(names))
	for _, n := range names {
		items = append(items, CompletionItem{Label: n, Kind: kind, Detail: detail, Start: start, End: end})
	}
	return items
}

func withRange(items []CompletionItem, start, end int) []CompletionItem {
	out := make([]CompletionItem, len(items))
	for i, it := range items {
		it.Start, it.End = start, end
		out[i] = it
	}
	return out
}

// rank orders items by fuzzy match against word; an empty word keeps the
// given order.
func rank(word string, items []CompletionItem) []CompletionItem {
	if word == "" {
		return items
	}
	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.Label
	}
	matches := fuzzy.Find(word, labels)
	out := make([]CompletionItem, 0, len(matches))
	for _, m := range matches {
		out = append(out, items[m.Index])
	}
	return out
}

// leadingWord returns the identifier s starts with.
func leadingWord(s string) string {
	for i, r := range s {
		if r != '_' && r != '$' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return s[:i]
		}
	}
	return s
}

func lastWord(s string) string {
	i := strings.LastIndexFunc(s, unicode.IsSpace)
	return s[i+1:]
}

func isPunct(t grammar.Token, s string) bool { return t.Kind == grammar.TokPunct && t.Text == s }

func isIdent(t grammar.Token, s string) bool { return t.Kind == grammar.TokIdent && t.Text == s }

// isCollectionRef matches db.<name> and db.getCollection("<name>").
func isCollectionRef(toks []grammar.Token) bool {
	switch {
	case len(toks) == 3:
		return isIdent(toks[0], "db") && isPunct(toks[1], ".") && toks[2].Kind == grammar.TokIdent && toks[2].Text != "getCollection"
	case len(toks) == 6:
		return isIdent(toks[0], "db") && isPunct(toks[1], ".") && isIdent(toks[2], "getCollection") &&
			isPunct(toks[3], "(") && toks[4].Kind == grammar.TokString && isPunct(toks[5], ")")
	}
	return false
}

// chainMethod returns the collection method of a chain that ends with a
// closed call, e.g. db.users.find({}).
func chainMethod(toks []grammar.Token) (string, bool) {
	if len(toks) == 0 || !isPunct(toks[len(toks)-1], ")") {
		return "", false
	}
	for _, n := range []int{3, 6} {
		if len(toks) > n+1 && isCollectionRef(toks[:n]) && isPunct(toks[n], ".") && toks[n+1].Kind == grammar.TokIdent {
			return toks[n+1].Text, true
		}
	}
	return "", false
}

func insideCall(toks []grammar.Token) bool {
	depth := 0
	for _, t := range toks {
		switch {
		case isPunct(t, "("):
			depth++
		case isPunct(t, ")"):
			depth--
		}
	}
	return depth > 0
}

func firstNode(an grammar.Analysis, kind grammar.NodeKind) (grammar.Node, bool) {
	for _, n := range an.Nodes {
		if n.Kind == kind {
			return n, true
		}
	}
	return grammar.Node{}, false
}

func collectionSpan(toks []grammar.Token, name string) (int, int) {
	for _, t := range toks {
		if (t.Kind == grammar.TokIdent || t.Kind == grammar.TokString) && (t.Text == name || t.Value == name) && t.Text != "db" {
			return t.Start, t.End
		}
	}
	return 0, 0
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
