package services

import (
	"strings"
	"unicode"
)

// Signs are public map content, so their text is screened before it is
// stored. Matching works on a canonical form: lower case, common
// obfuscations undone, letters only, repeated letters collapsed.

var baseThreatWords = []string{
	"rape",
	"murder",
	"kill you",
	"shoot you",
	"stab",
	"strangle",
	"slaughter",
	"massacre",
	"revenge",
}

var baseSelfHarmWords = []string{
	"suicide",
	"kill myself",
	"end my life",
	"self harm",
	"cut myself",
	"want to die",
	"better off dead",
	"unalive",
}

var obfuscations = strings.NewReplacer(
	"@", "a", "4", "a", "3", "e", "!", "i", "1", "i", "0", "o",
	"$", "s", "5", "s", "7", "t", "+", "t",
	"а", "a", "е", "e", "і", "i", "о", "o", "р", "p", // Cyrillic lookalikes
)

// CleanText normalises text to the canonical form used for matching.
func CleanText(text string) string {
	cleaned := obfuscations.Replace(strings.ToLower(text))

	var b strings.Builder
	for _, r := range cleaned {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(collapseRepeats(b.String())), " ")
}

// collapseRepeats reduces runs of the same letter to one: "kiiilll" -> "kil".
func collapseRepeats(text string) string {
	var b strings.Builder
	var last rune
	for i, r := range text {
		if i > 0 && r == last && unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(r)
		last = r
	}
	return b.String()
}

// containsTerm matches single words on word boundaries ("skill" is not
// "kill") and phrases as substrings of the cleaned text.
func containsTerm(cleaned string, words []string, term string) bool {
	term = CleanText(term)
	if strings.Contains(term, " ") {
		return strings.Contains(" "+cleaned+" ", " "+term+" ")
	}
	for _, w := range words {
		if w == term {
			return true
		}
	}
	return false
}

// ContentFlags reports what CheckContent found.
type ContentFlags struct {
	Threat   bool
	SelfHarm bool
	Matched  []string
}

// Blocked reports whether the text must not be published.
func (f ContentFlags) Blocked() bool {
	return f.Threat || f.SelfHarm
}

// CheckContent screens text against the threat and self-harm lists.
func CheckContent(text string) ContentFlags {
	cleaned := CleanText(text)
	words := strings.Fields(cleaned)

	var f ContentFlags
	for _, t := range baseThreatWords {
		if containsTerm(cleaned, words, t) {
			f.Threat = true
			f.Matched = append(f.Matched, t)
		}
	}
	for _, t := range baseSelfHarmWords {
		if containsTerm(cleaned, words, t) {
			f.SelfHarm = true
			f.Matched = append(f.Matched, t)
		}
	}
	return f
}
