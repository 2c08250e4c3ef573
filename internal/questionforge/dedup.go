package questionforge

import (
	"fmt"
	"strings"

	"github.com/abhisek/intervue/internal/interview"
)

// problemPreview is how much of a long problem statement is quoted back.
const problemPreview = 100

// buildDedup formats prior questions for the prompt, respecting the max
// limit. Long problem statements are shortened when truncate is set.
// Returns "None" if there are no prior questions.
func buildDedup(prior []interview.QAPair, max int, truncate bool) string {
	if len(prior) == 0 {
		return "None"
	}

	// Keep only the most recent N questions.
	if max > 0 && len(prior) > max {
		prior = prior[len(prior)-max:]
	}

	var b strings.Builder
	for i, p := range prior {
		q := strings.TrimSpace(p.Question)
		if truncate {
			if r := []rune(q); len(r) > problemPreview {
				q = string(r[:problemPreview]) + "..."
			}
		}
		q = strings.ReplaceAll(q, "\n", " ")
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return strings.TrimRight(b.String(), "\n")
}

// askedInSession reports whether text fingerprints the same as a question
// already asked in this session.
func askedInSession(hash string, prior []interview.QAPair) bool {
	for _, p := range prior {
		if Hash(p.Question) == hash {
			return true
		}
	}
	return false
}
