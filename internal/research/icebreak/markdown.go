// internal/research/icebreak/markdown.go
package icebreak

import (
	"fmt"
	"strings"
)

// Markdown renders the briefing for a terminal or a chat message: the organized customer
// profile, each suggested topic in category order, then the recommended approach.
func (b *Briefing) Markdown() string {
	var sb strings.Builder

	sb.WriteString("## Customer\n\n")
	info := b.CustomerInfo
	writeField(&sb, "Age", ageText(info.Age))
	writeField(&sb, "Gender", info.Gender)
	writeField(&sb, "Family", info.FamilyStatus)
	writeField(&sb, "Occupation", strings.TrimSpace(info.Occupation.Type+" "+parenthesized(info.Occupation.Industry)))
	writeField(&sb, "Location", info.Location)

	topics := make(map[string]string, len(b.Suggestions.Topics))
	for c := range b.Suggestions.Topics {
		topics[c] = c
	}
	categories := orderedCategories(topics)
	if len(categories) > 0 {
		sb.WriteString("\n## Topics\n")
	}
	for _, c := range categories {
		t := b.Suggestions.Topics[c]
		fmt.Fprintf(&sb, "\n### %s\n\n", c)
		writeField(&sb, "Opener", t.Starter)
		writeField(&sb, "Source", t.Source)
		writeField(&sb, "Bridge", t.Bridge)
	}

	if b.Suggestions.BestApproach != "" {
		fmt.Fprintf(&sb, "\n## Best approach\n\n%s\n", b.Suggestions.BestApproach)
	}
	return sb.String()
}

func writeField(sb *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "- **%s**: %s\n", label, value)
}

func ageText(age *int) string {
	if age == nil {
		return ""
	}
	return fmt.Sprintf("%d", *age)
}

func parenthesized(s string) string {
	if s == "" {
		return ""
	}
	return "(" + s + ")"
}
