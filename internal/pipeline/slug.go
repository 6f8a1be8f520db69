package pipeline

import (
	"fmt"
	"strings"
	"unicode"
)

const maxSlugLen = 60

// Slug returns a file-name-safe stem for a report. n disambiguates results
// with equal titles and is prefixed as a zero-padded line number.
func Slug(title string, n int) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
		if sb.Len() >= maxSlugLen {
			break
		}
	}

	s := strings.TrimRight(sb.String(), "-")
	if s == "" {
		s = "result"
	}
	return fmt.Sprintf("%04d-%s", n, s)
}
