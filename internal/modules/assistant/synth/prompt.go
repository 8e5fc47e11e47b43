package synth

import (
	"fmt"
	"strings"

	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/intent"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/selector"
)

const snippetChars = 300

func composeAugmentedQuery(query string, web []domain.WebResult, mode intent.Mode, urgency intent.Urgency, complexity intent.Complexity) string {
	var b strings.Builder
	b.WriteString(query)

	if len(web) > 0 {
		b.WriteString("\n\nCURRENT WEB SOURCES:\n")
		for i, r := range web {
			fmt.Fprintf(&b, "\n[%d] %s (%s)\n", i+1, r.Title, r.URL)
			if r.Description != "" {
				b.WriteString(r.Description)
				b.WriteString("\n")
			}
			if r.Snippet != "" {
				b.WriteString("Excerpt: ")
				b.WriteString(truncateRunes(r.Snippet, snippetChars))
				b.WriteString("\n")
			}
		}
		b.WriteString("\nUse these sources where relevant and cite them by number.")
	}

	b.WriteString("\n\n")
	b.WriteString(selector.ModeDirective(mode))
	if d := selector.UrgencyDirective(mode, urgency); d != "" {
		b.WriteString("\n\n")
		b.WriteString(d)
	}
	b.WriteString("\n\n")
	b.WriteString(selector.ComplexityDirective(complexity))
	return b.String()
}

func composeRAGQuery(query string, contexts []domain.RetrievedContext, skill intent.SkillLevel) string {
	var b strings.Builder
	for _, c := range contexts {
		source := c.DocumentTitle
		if source == "" {
			source = c.DocumentID
		}
		fmt.Fprintf(&b, "<context source=%q similarity=\"%.2f\">\n%s\n</context>\n\n",
			source, c.Similarity, strings.TrimSpace(c.Text))
	}
	fmt.Fprintf(&b, "Learner skill level: %s\n\nQuestion: %s", skill, query)
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
