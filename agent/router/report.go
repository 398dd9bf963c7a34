package router

import (
	"fmt"
	"strings"

	"github.com/supawit-m/deskmesh/model"
)

func formatCustomerProfile(c *model.Customer) string {
	var b strings.Builder
	b.WriteString("Customer Information:\n")
	fmt.Fprintf(&b, "  ID: %d\n", c.ID)
	fmt.Fprintf(&b, "  Name: %s\n", c.Name)
	fmt.Fprintf(&b, "  Email: %s\n", c.Email)
	fmt.Fprintf(&b, "  Phone: %s\n", c.Phone)
	fmt.Fprintf(&b, "  Status: %s", c.Status)
	return b.String()
}

// formatTicketReport lists high-priority tickets with their owning
// customer resolved by ID; unknown owners fall back to a placeholder.
func formatTicketReport(customers []model.Customer, tickets []model.Ticket) string {
	if len(tickets) == 0 {
		return "No high-priority tickets found for premium customers."
	}

	names := make(map[int64]string, len(customers))
	for _, c := range customers {
		names[c.ID] = c.Name
	}

	lines := []string{fmt.Sprintf("Found %d high-priority ticket(s) for premium customers:\n", len(tickets))}
	for _, t := range tickets {
		name, ok := names[t.CustomerID]
		if !ok || name == "" {
			name = fmt.Sprintf("Customer %d", t.CustomerID)
		}
		lines = append(lines, fmt.Sprintf("- Ticket #%d: %s", t.ID, t.Issue))
		lines = append(lines, fmt.Sprintf("  Customer: %s (ID: %d)", name, t.CustomerID))
		lines = append(lines, fmt.Sprintf("  Status: %s, Priority: %s", t.Status, t.Priority))
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func formatUpdateReport(actions []string, customer *model.Customer, history []model.Ticket) string {
	var lines []string

	if len(actions) > 0 {
		lines = append(lines, "Updates completed:")
		for _, action := range actions {
			lines = append(lines, fmt.Sprintf("  ✓ %s", action))
		}
		lines = append(lines, "")
	}

	if customer != nil {
		lines = append(lines, "Customer Information:")
		lines = append(lines, fmt.Sprintf("  Name: %s", customer.Name))
		lines = append(lines, fmt.Sprintf("  Email: %s", customer.Email))
		lines = append(lines, fmt.Sprintf("  Status: %s", customer.Status))
		lines = append(lines, "")
	}

	lines = append(lines, fmt.Sprintf("Ticket History (%d tickets):", len(history)))
	if len(history) == 0 {
		lines = append(lines, "  No tickets found.")
	}
	for _, t := range history {
		lines = append(lines, fmt.Sprintf("  • Ticket #%d: %s", t.ID, t.Issue))
		lines = append(lines, fmt.Sprintf("    Status: %s, Priority: %s", t.Status, t.Priority))
		created := "N/A"
		if !t.CreatedAt.IsZero() {
			created = t.CreatedAt.UTC().Format("2006-01-02 15:04:05")
		}
		lines = append(lines, fmt.Sprintf("    Created: %s", created))
	}

	return strings.Join(lines, "\n")
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
