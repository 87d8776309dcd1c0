package shop

import (
	"regexp"
	"strconv"
	"strings"
)

// maxFieldLength caps customer and item names so the ledger never stores unbounded input.
const maxFieldLength = 50

// maxQuantity caps both cart quantities and admin stock counts.
const maxQuantity = 99

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// cleanName strips HTML-like tags and whitespace from a customer name and
// truncates the remainder.
func cleanName(name string) string {
	name = tagPattern.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	return truncate(name, maxFieldLength)
}

// cleanItemName trims and truncates a snack name coming from a cart key.
func cleanItemName(name string) string {
	return truncate(strings.TrimSpace(name), maxFieldLength)
}

// truncate cuts on rune boundaries so multi-byte names stay valid UTF-8.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// parseQuantity applies the best-effort rule: non-numeric input counts as
// zero, and anything outside [0, maxQuantity] is clamped.
func parseQuantity(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return clampCount(n)
}

// parseCount is the strict variant used by stock adjustment: a value that
// does not parse reports an error so the item stays untouched.
func parseCount(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	return clampCount(n), nil
}

// clampCount bounds a count to [0, maxQuantity].
func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	if n > maxQuantity {
		return maxQuantity
	}
	return n
}
