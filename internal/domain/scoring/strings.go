package scoring

import "strings"

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func equalsFold(a, b string) bool {
	return fold(a) == fold(b)
}
