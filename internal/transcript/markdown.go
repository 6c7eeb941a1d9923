package transcript

import (
	"strings"

	"github.com/anthropics/relay/internal/session"
)

// exportMarkdown renders a human-readable transcript: one "### role" heading
// per message, blocks separated by blank lines. Export-only; there is no
// Markdown importer.
func exportMarkdown(msgs []session.Message) []byte {
	var b strings.Builder
	for i := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("### ")
		b.WriteString(string(msgs[i].Role))
		b.WriteString("\n")
		b.WriteString(msgs[i].Content)
		b.WriteString("\n")
	}
	return []byte(b.String())
}
