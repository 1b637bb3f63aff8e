package chunker

import (
	"strings"
	"unicode"
)

// abbreviations never end a sentence when followed by a dot.
var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "dra": {}, "prof": {}, "sr": {}, "sra": {},
	"srta": {}, "lic": {}, "ing": {}, "st": {}, "jr": {}, "vs": {}, "e.g": {}, "i.e": {},
	"av": {}, "fig": {}, "approx": {}, "aprox": {}, "inc": {}, "ltd": {},
}

// numberAbbreviations only count when a number follows, as in "No. 5".
// A bare "No." is the Spanish answer and ends the sentence.
var numberAbbreviations = map[string]struct{}{
	"no": {}, "nro": {}, "num": {},
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '»', '”', '’':
		return true
	}
	return false
}

// sentenceSpans finds sentences: text up to terminal punctuation (plus any
// closing quotes or brackets) that is followed by whitespace or the end of
// text. A blank line also ends a sentence. Returned spans are trimmed.
func sentenceSpans(runes []rune) []span {
	total := len(runes)
	var spans []span

	start := 0
	i := 0
	for i < total {
		r := runes[i]

		if r == '\n' && blankLineAt(runes, i) {
			if s := trimSpan(runes, start, i); s.start < s.end {
				spans = append(spans, s)
			}
			start = i + 1
			i++
			continue
		}

		if !isTerminal(r) {
			i++
			continue
		}

		j := i + 1
		for j < total && (isTerminal(runes[j]) || isCloser(runes[j])) {
			j++
		}
		if j < total && !unicode.IsSpace(runes[j]) {
			i = j
			continue
		}
		if r == '.' && isAbbreviation(runes, start, i, j) {
			i = j
			continue
		}

		if s := trimSpan(runes, start, j); s.start < s.end {
			spans = append(spans, s)
		}
		start = j
		i = j
	}

	if s := trimSpan(runes, start, total); s.start < s.end {
		spans = append(spans, s)
	}
	return spans
}

// blankLineAt reports whether the newline at i is followed by another
// newline with only horizontal whitespace in between.
func blankLineAt(runes []rune, i int) bool {
	for j := i + 1; j < len(runes); j++ {
		switch runes[j] {
		case '\n':
			return true
		case ' ', '\t', '\r':
			continue
		default:
			return false
		}
	}
	return false
}

// isAbbreviation inspects the word ending right before the dot at dot. next
// is the first index after the punctuation run.
func isAbbreviation(runes []rune, lowerBound, dot, next int) bool {
	k := dot
	for k > lowerBound && !unicode.IsSpace(runes[k-1]) && runes[k-1] != '(' {
		k--
	}
	word := string(runes[k:dot])
	if word == "" {
		return false
	}
	// single-letter initials such as "J." in "J. Pérez"
	if w := []rune(word); len(w) == 1 && unicode.IsUpper(w[0]) {
		return true
	}
	lower := strings.ToLower(word)
	if _, ok := abbreviations[lower]; ok {
		return true
	}
	if _, ok := numberAbbreviations[lower]; ok {
		return digitFollows(runes, next)
	}
	return false
}

func digitFollows(runes []rune, i int) bool {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return i < len(runes) && unicode.IsDigit(runes[i])
}

// groupSentences accumulates consecutive sentences while the covered span
// stays within chunkSize runes. A sentence longer than chunkSize becomes a
// chunk of its own and is never cut.
func groupSentences(sentences []span, chunkSize int) []span {
	var groups []span
	var cur span
	open := false

	for _, s := range sentences {
		if !open {
			cur = s
			open = true
			continue
		}
		if s.end-cur.start <= chunkSize {
			cur.end = s.end
			continue
		}
		groups = append(groups, cur)
		cur = s
	}
	if open {
		groups = append(groups, cur)
	}
	return groups
}
