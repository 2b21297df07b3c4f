package search

import (
	"strings"

	"github.com/kangxh75/NextPM/internal/spec"
)

const (
	previewMinSentence = 20
	previewMaxLength   = 150
)

var statusIcons = map[spec.Status]string{
	spec.StatusDraft:      "📝",
	spec.StatusReview:     "👀",
	spec.StatusApproved:   "✅",
	spec.StatusInProgress: "🚧",
	spec.StatusCompleted:  "🎉",
}

var priorityColors = map[spec.Priority]string{
	spec.PriorityHigh:   "#ff3b30",
	spec.PriorityMedium: "#ff9500",
	spec.PriorityLow:    "#30d158",
}

// StatusIcon is the emoji shown next to a status in search results.
func StatusIcon(status spec.Status) string {
	if icon, ok := statusIcons[status]; ok {
		return icon
	}
	return statusIcons[spec.StatusDraft]
}

// PriorityColor is the accent colour of a priority badge.
func PriorityColor(priority spec.Priority) string {
	if color, ok := priorityColors[priority]; ok {
		return color
	}
	return "#6c757d"
}

// Preview picks the first sentence longer than 20 characters, or the whole
// content, and truncates it to 150 characters.
func Preview(content string) string {
	preview := content
	for _, sentence := range strings.Split(content, ".") {
		if len(strings.TrimSpace(sentence)) > previewMinSentence {
			preview = sentence
			break
		}
	}
	runes := []rune(preview)
	if len(runes) > previewMaxLength {
		return string(runes[:previewMaxLength]) + "..."
	}
	return preview
}
