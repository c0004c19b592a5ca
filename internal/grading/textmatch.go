package grading

import "strings"

// equalText compares a submitted short answer to its key. Surrounding
// whitespace never matters; letter case matters only when the question asks
// for it.
func equalText(got, want string, caseSensitive bool) bool {
	got = strings.TrimSpace(got)
	want = strings.TrimSpace(want)
	if got == "" || want == "" {
		return false
	}
	if caseSensitive {
		return got == want
	}
	return strings.EqualFold(got, want)
}
