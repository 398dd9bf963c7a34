// Package intent classifies free-text queries against a fixed
// vocabulary table. Analysis is a pure function of the input string:
// no network, no state, and a query with no matches simply yields an
// all-false descriptor.
package intent

import (
	"regexp"
	"strings"
)

// Sub-intent tags, in the order the vocabulary table detects them.
const (
	TagGetCustomerInfo = "get_customer_info"
	TagSupport         = "support"
	TagBillingIssue    = "billing_issue"
	TagTicketQuery     = "ticket_query"
	TagUpdate          = "update"
)

// Intent is the descriptor consumed by the router. CustomerID is zero
// when no identifier could be extracted (customer ids start at 1).
type Intent struct {
	NeedsCustomerData bool
	NeedsSupport      bool
	IsComplex         bool
	CustomerID        int64
	SubIntents        []string
}

func (i Intent) Has(tag string) bool {
	for _, t := range i.SubIntents {
		if t == tag {
			return true
		}
	}
	return false
}

var (
	idPattern         = regexp.MustCompile(`(?:id|customer)\s+(\d+)`)
	standalonePattern = regexp.MustCompile(`\b(\d+)\b`)
	emailPattern      = regexp.MustCompile(`(\S+@\S+\.\S+)`)
)

// The vocabulary rows are matched by substring containment on the
// case-folded query, one category per row.
var (
	customerVocab = []string{"customer", "account", "info", "information", "id"}
	supportVocab  = []string{"help", "support", "issue", "problem", "ticket"}
	billingVocab  = []string{"cancel", "billing", "refund", "charge"}
	ticketVocab   = []string{"status", "tickets", "history", "premium", "open tickets"}
	updateVocab   = []string{"update", "change", "modify"}
	bulkVocab     = []string{"show", "list", "all", "every"}
)

func Analyze(query string) Intent {
	lower := strings.ToLower(query)
	out := Intent{}

	// Prefer an explicit "id 5" / "customer 5" form, then fall back to
	// the first standalone run of digits anywhere in the text.
	if id, ok := extractID(query, lower); ok {
		out.CustomerID = id
		out.NeedsCustomerData = true
	}

	if containsAny(lower, customerVocab) {
		out.NeedsCustomerData = true
		out.SubIntents = append(out.SubIntents, TagGetCustomerInfo)
	}
	if containsAny(lower, supportVocab) {
		out.NeedsSupport = true
		out.SubIntents = append(out.SubIntents, TagSupport)
	}
	if containsAny(lower, billingVocab) {
		out.NeedsSupport = true
		out.IsComplex = true
		out.SubIntents = append(out.SubIntents, TagBillingIssue)
	}
	if containsAny(lower, ticketVocab) {
		out.NeedsCustomerData = true
		out.NeedsSupport = true
		out.SubIntents = append(out.SubIntents, TagTicketQuery)
	}
	if containsAny(lower, updateVocab) {
		out.NeedsCustomerData = true
		out.SubIntents = append(out.SubIntents, TagUpdate)
	}

	if containsAny(lower, bulkVocab) {
		out.IsComplex = true
	}
	if len(out.SubIntents) > 1 {
		out.IsComplex = true
	}

	return out
}

// ExtractEmail returns the first email-like token in the raw text.
func ExtractEmail(query string) (string, bool) {
	m := emailPattern.FindStringSubmatch(query)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func extractID(query, lower string) (int64, bool) {
	m := idPattern.FindStringSubmatch(lower)
	if m == nil {
		m = standalonePattern.FindStringSubmatch(query)
	}
	if m == nil {
		return 0, false
	}
	return parseID(m[1])
}

func parseID(raw string) (int64, bool) {
	var id int64
	for _, ch := range raw {
		if ch < '0' || ch > '9' {
			return 0, false
		}
		id = id*10 + int64(ch-'0')
	}
	return id, id > 0
}

func containsAny(haystack string, words []string) bool {
	for _, w := range words {
		if strings.Contains(haystack, w) {
			return true
		}
	}
	return false
}
