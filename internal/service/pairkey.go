package service

import "strings"

const pairSeparator = "::"

// NormalizeTitle is the single canonical form used for every title lookup:
// surrounding whitespace trimmed, lowercased. Both the durable and the
// in-memory validation layers key on it.
func NormalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// PairKey builds the lookup key for an ordered (from, to) pair.
func PairKey(from, to string) string {
	return NormalizeTitle(from) + pairSeparator + NormalizeTitle(to)
}

// compactTitle drops all whitespace on top of NormalizeTitle, so
// "Java Script" and "javascript" compare equal.
func compactTitle(s string) string {
	return strings.Join(strings.Fields(NormalizeTitle(s)), "")
}
