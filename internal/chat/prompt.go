package chat

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"propflow/api/internal/models"
)

const systemPrompt = `You are %[1]s's AI Property Advisor, a knowledgeable and friendly assistant for a South African commercial real estate platform.

You help users:
- Find suitable commercial properties (offices, warehouses, retail, industrial)
- Understand lease terms, pricing and market conditions in South Africa
- Schedule viewings and submit enquiries
- Explain the difference between "to let" and "for sale" properties
- Navigate the platform features

South African context:
- Prices are in ZAR (South African Rand)
- Major markets: Sandton, Cape Town CBD, Century City, Claremont, Midrand, Menlyn, Umhlanga, Durban, Pretoria
- Typical office leases: 3 to 5 year terms, escalation clauses of 7 to 10 percent per year
- GLA (Gross Leasable Area) is the standard size metric
- Common property types: Grade A/B offices, industrial/logistics, retail strips, mixed-use

Guidelines:
- Be concise and helpful (2 to 3 paragraphs max)
- Use bold for key terms or figures
- If asked for specific listings, invite them to use the search feature or chat with an agent
- Never invent specific prices or availability; direct them to search or contact an agent
- For legal or contractual questions, always recommend consulting a registered property practitioner
- You can help with enquiries, but encourage users to submit through the platform for tracking`

// SystemPrompt returns the advisor prompt, followed by the listing the user
// is viewing when l is not nil.
func SystemPrompt(appName string, l *models.Listing) string {
	prompt := fmt.Sprintf(systemPrompt, appName)
	if l == nil {
		return prompt
	}

	description := l.Description
	if strings.TrimSpace(description) == "" {
		description = "Not provided"
	}
	features := []byte("{}")
	if len(l.Features) > 0 {
		if b, err := json.Marshal(l.Features); err == nil {
			features = b
		}
	}
	unit := l.PriceUnit
	if unit == "" {
		unit = models.DefaultPriceUnit
	}

	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\n\nCurrent listing context the user is viewing:\n")
	fmt.Fprintf(&sb, "Title: %s\n", l.Title)
	fmt.Fprintf(&sb, "Type: %s | %s\n", l.Type, l.ListingType)
	fmt.Fprintf(&sb, "Price: R%s %s\n", groupThousands(l.Price), strings.ReplaceAll(unit, "_", " "))
	fmt.Fprintf(&sb, "Size: %sm²\n", strconv.FormatFloat(l.SizeSqm, 'f', -1, 64))
	fmt.Fprintf(&sb, "Location: %s, %s\n", l.Location, l.City)
	fmt.Fprintf(&sb, "Description: %s\n", description)
	fmt.Fprintf(&sb, "Features: %s", features)
	return sb.String()
}

// groupThousands formats whole rands as 45,000.
func groupThousands(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var out []byte
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// Preview truncates the last user message for the chat log.
func Preview(msgs []models.ChatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == models.ChatRoleUser {
			r := []rune(msgs[i].Content)
			if len(r) > LogMessagePreview {
				r = r[:LogMessagePreview]
			}
			return string(r)
		}
	}
	return ""
}
