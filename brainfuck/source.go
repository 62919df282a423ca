package brainfuck

import "strings"

// Alphabet is the set of characters that survive Trim; anything else is
// treated as comment text and dropped.
const Alphabet = "+-<>.,[]#"

// Trim removes every character outside Alphabet from source, preserving
// the order of the characters that remain.
func Trim(source string) string {
	var b strings.Builder
	b.Grow(len(source))
	for _, r := range source {
		if strings.ContainsRune(Alphabet, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
