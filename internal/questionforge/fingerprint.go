package questionforge

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/abhisek/intervue/internal/interview"
)

var (
	openFence  = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	closeFence = regexp.MustCompile("\\s*```$")
	spaceRun   = regexp.MustCompile(`\s+`)
)

// Normalize cleans an oracle reply into question text: surrounding
// whitespace, formatting fences and wrapping quotes are removed.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = openFence.ReplaceAllString(s, "")
		s = closeFence.ReplaceAllString(s, "")
		s = strings.TrimSpace(s)
	}
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
			continue
		}
		break
	}
	return s
}

// Hash fingerprints question text. The text is lowercased with runs of
// whitespace collapsed, then folded with h = h*31 + c over its UTF-16 code
// units in 32-bit arithmetic. The absolute value is returned in hex.
//
// Collisions are tolerated: a collision only costs one extra novelty
// attempt.
func Hash(text string) string {
	key := strings.ToLower(strings.TrimSpace(spaceRun.ReplaceAllString(text, " ")))
	var h int32
	for _, c := range utf16.Encode([]rune(key)) {
		h = h<<5 - h + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 16)
}

// ResolveHash finds the fingerprint whose hash equals or starts with
// prefix. An ambiguous prefix is an error.
func ResolveHash(fps []interview.Fingerprint, prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	for _, fp := range fps {
		if fp.Hash == prefix {
			return fp.Hash, nil
		}
	}
	var match string
	for _, fp := range fps {
		if prefix != "" && strings.HasPrefix(fp.Hash, prefix) {
			if match != "" {
				return "", fmt.Errorf("hash prefix %q is ambiguous", prefix)
			}
			match = fp.Hash
		}
	}
	if match == "" {
		return "", fmt.Errorf("question %q: %w", prefix, interview.ErrNotFound)
	}
	return match, nil
}
