package chat

import (
	"strings"

	"github.com/coachchat/coachchat/internal/domain"
)

// assembleContext concatenates match texts in index order, separated by
// single spaces, and truncates the result to wordBudget words so the
// prompt stays inside the model's context window. wordBudget <= 0 means
// no truncation.
func assembleContext(matches []domain.Match, wordBudget int) string {
	var sb strings.Builder
	for _, m := range matches {
		if m.Text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(m.Text)
	}

	ctx := strings.TrimSpace(sb.String())
	if wordBudget <= 0 {
		return ctx
	}

	words := strings.Fields(ctx)
	if len(words) <= wordBudget {
		return ctx
	}
	return strings.Join(words[:wordBudget], " ")
}
