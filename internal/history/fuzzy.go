package history

import "unicode"

const (
	scoreMatch      = 1
	bonusContiguous = 5
	bonusWordStart  = 3
	bonusFirstChar  = 4
	penaltyLeading  = 1
	maxLeadPenalty  = 3
)

// Score rates how well query fuzzily matches candidate. Every rune of query
// must appear in candidate in order; if not, ok is false. Matching is
// case-insensitive unless query contains an upper-case letter. Runs of
// adjacent matches and matches at word starts score higher.
func Score(query, candidate string) (score int, ok bool) {
	if query == "" {
		return 0, true
	}
	q := []rune(query)
	c := []rune(candidate)
	fold := !hasUpper(q)
	if fold {
		q = lowerRunes(q)
		c = lowerRunes(c)
	}
	if len(q) > len(c) {
		return 0, false
	}

	// Greedy alignment from each possible start of the first rune; keep the
	// best. Candidates are short command lines so this stays cheap.
	best, found := 0, false
	orig := []rune(candidate)
	for start := 0; start < len(c); start++ {
		if c[start] != q[0] {
			continue
		}
		s, matched := align(q, c, orig, start)
		if matched && (!found || s > best) {
			best, found = s, true
		}
	}
	return best, found
}

func align(q, c, orig []rune, start int) (int, bool) {
	score := 0
	prev := -2
	qi := 0
	for ci := start; ci < len(c) && qi < len(q); ci++ {
		if c[ci] != q[qi] {
			continue
		}
		score += scoreMatch
		if ci == prev+1 {
			score += bonusContiguous
		}
		if isWordStart(orig, ci) {
			score += bonusWordStart
		}
		if ci == 0 {
			score += bonusFirstChar
		}
		prev = ci
		qi++
	}
	if qi < len(q) {
		return 0, false
	}
	lead := start
	if lead > maxLeadPenalty {
		lead = maxLeadPenalty
	}
	return score - lead*penaltyLeading, true
}

func isWordStart(s []rune, i int) bool {
	if i == 0 {
		return true
	}
	prev, cur := s[i-1], s[i]
	if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
		return true
	}
	return unicode.IsLower(prev) && unicode.IsUpper(cur)
}

func hasUpper(rs []rune) bool {
	for _, r := range rs {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func lowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}
