package catalog

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseLimit reads the limit query parameter. An empty value means
// DefaultLimit. Otherwise the leading integer is used ("3rows" is 3); a value
// without one, or a negative value, yields 0, so no results are returned.
func ParseLimit(s string) int {
	if s == "" {
		return DefaultLimit
	}
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		if s[0] != '-' {
			return math.MaxInt
		}
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}
