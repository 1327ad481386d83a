package connect

import (
	"strings"

	"connectchat/internal/domain"
)

// formatTranscript renders the virtual-agent conversation as a single
// message injected at handover so the human agent sees the prior context.
func formatTranscript(hctx domain.HandoverContext) string {
	var b strings.Builder
	b.WriteString("--- Prior conversation with Virtual Agent ---\n")
	b.WriteString("Customer: " + hctx.CustomerName + "\n")
	b.WriteString("Intent: " + hctx.Intent + "\n")
	if strings.TrimSpace(hctx.Summary) != "" {
		b.WriteString("Summary: " + hctx.Summary + "\n")
	}
	b.WriteString("\n")

	for _, entry := range hctx.Transcript {
		role := "Virtual Agent"
		if entry.Role == string(domain.RoleCustomer) {
			role = "Customer"
		}
		b.WriteString("[" + role + "]: " + entry.Content + "\n")
	}

	b.WriteString("\n--- Live agent conversation begins ---\n")
	return b.String()
}
