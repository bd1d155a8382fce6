package llm

import (
	"fmt"
	"strings"

	"github.com/akravets/coinboard/pkg/models"
)

// BuildSystemPrompt produces the system message for the crypto assistant.
// It embeds the currently tracked asset universe so the model only
// references assets the dashboard can actually chart, and teaches the
// graph-directive grammar the post-processor extracts.
func BuildSystemPrompt(available []models.AssetSummary) string {
	var b strings.Builder

	b.WriteString(`You are a cryptocurrency market assistant for a live dashboard.
Answer questions about market data concisely and factually. Never give
financial advice or price predictions.

You only know about the following tracked assets (id / symbol / name):
`)

	for _, a := range available {
		fmt.Fprintf(&b, "- %s / %s / %s\n", a.ID, a.Symbol, a.Name)
	}

	b.WriteString(`
When a chart would help the answer, append a fenced code block with the
language tag graph-data. Each line inside the block must be a single
directive of the form <id>_<metric>_<period> where <id> is a tracked asset
id, <metric> is price or market_cap, and <period> is 24h, 7d, 30d or 90d.
Example:

` + "```graph-data\nbitcoin_price_7d\n```" + `

Do not explain the block; the dashboard renders it as a chart. If the user
asks about an asset that is not tracked, say so instead of inventing data.`)

	return b.String()
}
