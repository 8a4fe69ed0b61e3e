package highlight

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// ANSI foreground color codes (no background, no reset issues)
const (
	fgCyan   = "\x1b[38;5;110m" // Keywords - light cyan
	fgPurple = "\x1b[38;5;183m" // Numbers - purple
	fgGreen  = "\x1b[38;5;150m" // Strings - green
	fgOrange = "\x1b[38;5;209m" // Keys and functions - orange
	fgGray   = "\x1b[38;5;245m" // Comments - gray
	fgReset  = "\x1b[39m"       // Reset foreground only (not all attributes)
)

var (
	jsonLexer  = chroma.Coalesce(lexerOrFallback("json"))
	queryLexer = chroma.Coalesce(lexerOrFallback("javascript"))
)

func lexerOrFallback(name string) chroma.Lexer {
	if l := lexers.Get(name); l != nil {
		return l
	}
	return lexers.Fallback
}

// JSON highlights an Extended JSON document for the result preview.
func JSON(text string) string {
	return render(jsonLexer, text)
}

// Query highlights query text for the history dropdown and the prompt echo.
func Query(text string) string {
	return render(queryLexer, text)
}

func render(lexer chroma.Lexer, text string) string {
	iter, err := lexer.Tokenise(nil, text)
	if err != nil {
		return text
	}

	var result strings.Builder
	for _, tok := range iter.Tokens() {
		color := tokenColor(tok.Type)
		if color == "" || strings.TrimSpace(tok.Value) == "" {
			result.WriteString(tok.Value)
			continue
		}
		result.WriteString(color)
		result.WriteString(tok.Value)
		result.WriteString(fgReset)
	}
	return result.String()
}

func tokenColor(t chroma.TokenType) string {
	if t == chroma.NameTag || t == chroma.NameBuiltin || t == chroma.NameFunction || t == chroma.NameOther {
		return fgOrange
	}
	switch {
	case t.InCategory(chroma.Keyword):
		return fgCyan
	case t.InCategory(chroma.LiteralString):
		return fgGreen
	case t.InCategory(chroma.LiteralNumber):
		return fgPurple
	case t.InCategory(chroma.Comment):
		return fgGray
	}
	return ""
}

// Strip removes the ANSI codes this package writes.
func Strip(text string) string {
	r := strings.NewReplacer(fgCyan, "", fgPurple, "", fgGreen, "", fgOrange, "", fgGray, "", fgReset, "")
	return r.Replace(text)
}
