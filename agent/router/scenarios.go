package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/supawit-m/deskmesh/agent/contract"
	intentx "github.com/supawit-m/deskmesh/agent/intent"
	"github.com/supawit-m/deskmesh/model"
)

const (
	ScenarioTaskAllocation = "Task Allocation"
	ScenarioComplexJoin    = "Complex Query Coordination"
	ScenarioMultiIntent    = "Multi-Intent Query"
	ScenarioNegotiation    = "Negotiation/Escalation"
	ScenarioMultiStep      = "Multi-Step Coordination"
)

// buildScenarios fixes the selection order. Earlier entries shadow
// later ones, so the complex-join and multi-intent phrase checks must
// come before the broader billing and multi-step predicates.
func (r *Router) buildScenarios() []scenario {
	return []scenario{
		{
			name:  ScenarioTaskAllocation,
			match: func(rn *run) bool { return !rn.intent.IsComplex },
			run:   r.taskAllocation,
		},
		{
			name: ScenarioComplexJoin,
			match: func(rn *run) bool {
				return strings.Contains(rn.lower, "all active customers") &&
					strings.Contains(rn.lower, "open tickets")
			},
			run: r.complexJoin,
		},
		{
			name: ScenarioMultiIntent,
			match: func(rn *run) bool {
				return strings.Contains(rn.lower, "update") &&
					strings.Contains(rn.lower, "ticket history")
			},
			run: r.multiIntentUpdate,
		},
		{
			name: ScenarioNegotiation,
			match: func(rn *run) bool {
				return rn.intent.Has(intentx.TagBillingIssue) || strings.Contains(rn.lower, "cancel")
			},
			run: r.negotiation,
		},
		{
			name: ScenarioMultiStep,
			match: func(rn *run) bool {
				return rn.intent.IsComplex && len(rn.intent.SubIntents) > 1
			},
			run: r.multiStep,
		},
	}
}

// taskAllocation is the simple scenario: fetch the customer record,
// hand the query to support, or both.
func (r *Router) taskAllocation(ctx context.Context, rn *run) Result {
	// Pure lookup: a known customer ID, no support need.
	if rn.intent.CustomerID != 0 && !rn.intent.NeedsSupport && rn.intent.Has(intentx.TagGetCustomerInfo) {
		rn.logf("Router → Data Agent: Get customer %d", rn.intent.CustomerID)
		reply, err := r.request(ctx, rn, contractx.AgentTypeCustomerData, contractx.ActionGetCustomer,
			contractx.GetCustomerArgs{CustomerID: rn.intent.CustomerID})
		if err != nil {
			return rn.failure(ScenarioTaskAllocation, err)
		}

		res, err := contractx.Decode[contractx.CustomerResult](reply.Content)
		if err != nil {
			return rn.failure(ScenarioTaskAllocation, err)
		}
		if !res.Success || res.Customer == nil {
			return Result{
				Query:           rn.query,
				QueryID:         rn.queryID,
				Scenario:        ScenarioTaskAllocation,
				Response:        fmt.Sprintf("Error: Could not retrieve customer information for ID %d", rn.intent.CustomerID),
				CoordinationLog: rn.logLines,
				Success:         false,
			}
		}

		rn.logf("Data Agent → Router: Customer data retrieved")
		return Result{
			Query:           rn.query,
			QueryID:         rn.queryID,
			Scenario:        ScenarioTaskAllocation,
			Response:        formatCustomerProfile(res.Customer),
			CustomerInfo:    res.Customer,
			CoordinationLog: rn.logLines,
			Success:         true,
		}
	}

	var customerInfo *model.Customer
	if rn.intent.CustomerID != 0 {
		rn.logf("Router → Data Agent: Get customer %d", rn.intent.CustomerID)
		reply, err := r.request(ctx, rn, contractx.AgentTypeCustomerData, contractx.ActionGetCustomer,
			contractx.GetCustomerArgs{CustomerID: rn.intent.CustomerID})
		if err != nil {
			return rn.failure(ScenarioTaskAllocation, err)
		}
		if res, err := contractx.Decode[contractx.CustomerResult](reply.Content); err == nil && res.Success {
			customerInfo = res.Customer
			rn.logf("Data Agent → Router: Customer data retrieved")
		}
	}

	if rn.intent.NeedsSupport || customerInfo == nil {
		reply, err := r.request(ctx, rn, contractx.AgentTypeSupport, contractx.ActionHandleSupport,
			contractx.HandleSupportArgs{Query: rn.query, CustomerInfo: customerInfo})
		if err != nil {
			return rn.failure(ScenarioTaskAllocation, err)
		}
		rn.logf("Router → Support Agent: Handle support query")
		rn.logf("Support Agent → Router: Response generated")

		responseText := "Unable to generate response"
		if res, err := contractx.Decode[contractx.SupportResult](reply.Content); err == nil && res.Response != "" {
			responseText = res.Response
		}
		return Result{
			Query:           rn.query,
			QueryID:         rn.queryID,
			Scenario:        ScenarioTaskAllocation,
			Response:        responseText,
			CustomerInfo:    customerInfo,
			CoordinationLog: rn.logLines,
			Success:         true,
		}
	}

	return Result{
		Query:           rn.query,
		QueryID:         rn.queryID,
		Scenario:        ScenarioTaskAllocation,
		Response:        formatCustomerProfile(customerInfo),
		CustomerInfo:    customerInfo,
		CoordinationLog: rn.logLines,
		Success:         true,
	}
}

// negotiation asks support whether it can take the query, optionally
// fetches customer context, then has support answer with that context.
// The capability check is advisory: the flow proceeds either way and
// the verdict is surfaced in the result.
func (r *Router) negotiation(ctx context.Context, rn *run) Result {
	reply, err := r.request(ctx, rn, contractx.AgentTypeSupport, contractx.ActionCheckCanHandle,
		contractx.CheckCanHandleArgs{Query: rn.query})
	if err != nil {
		return rn.failure(ScenarioNegotiation, err)
	}
	rn.logf("Router → Support: Can you handle this?")

	verdict, err := contractx.Decode[contractx.CanHandleResult](reply.Content)
	if err != nil {
		return rn.failure(ScenarioNegotiation, err)
	}
	rn.logf("Support → Router: %s", verdict.Reason)

	var customerInfo *model.Customer
	if rn.intent.CustomerID != 0 {
		reply, err := r.request(ctx, rn, contractx.AgentTypeCustomerData, contractx.ActionGetCustomer,
			contractx.GetCustomerArgs{CustomerID: rn.intent.CustomerID})
		if err != nil {
			return rn.failure(ScenarioNegotiation, err)
		}
		rn.logf("Router → Data Agent: Get customer context")

		if res, err := contractx.Decode[contractx.CustomerResult](reply.Content); err == nil && res.Success {
			customerInfo = res.Customer
			rn.logf("Data Agent → Router: Context provided")
		}
	}

	reply, err = r.request(ctx, rn, contractx.AgentTypeSupport, contractx.ActionHandleSupport,
		contractx.HandleSupportArgs{Query: rn.query, CustomerInfo: customerInfo})
	if err != nil {
		return rn.failure(ScenarioNegotiation, err)
	}
	rn.logf("Router → Support: Generate response with context")
	rn.logf("Support → Router: Coordinated response ready")

	responseText := "Unable to generate response"
	if res, err := contractx.Decode[contractx.SupportResult](reply.Content); err == nil && res.Response != "" {
		responseText = res.Response
	}

	return Result{
		Query:        rn.query,
		QueryID:      rn.queryID,
		Scenario:     ScenarioNegotiation,
		Response:     responseText,
		CustomerInfo: customerInfo,
		Negotiation: &Negotiation{
			SupportCanHandle: verdict.CanHandle,
			ContextProvided:  customerInfo != nil,
		},
		CoordinationLog: rn.logLines,
		Success:         true,
	}
}

// multiStep chains two dependent hops: the premium customer set from
// the data agent feeds the priority query to the support agent.
func (r *Router) multiStep(ctx context.Context, rn *run) Result {
	reply, err := r.request(ctx, rn, contractx.AgentTypeCustomerData, contractx.ActionGetPremiumCustomers,
		contractx.PremiumCustomersArgs{})
	if err != nil {
		return rn.failure(ScenarioMultiStep, err)
	}
	rn.logf("Router → Data Agent: Get premium customers")

	customersRes, err := contractx.Decode[contractx.CustomersResult](reply.Content)
	if err != nil {
		return rn.failure(ScenarioMultiStep, err)
	}
	customers := customersRes.Customers
	customerIDs := make([]int64, 0, len(customers))
	for _, c := range customers {
		customerIDs = append(customerIDs, c.ID)
	}
	rn.logf("Data Agent → Router: Found %d customers", len(customers))

	reply, err = r.request(ctx, rn, contractx.AgentTypeSupport, contractx.ActionTicketsByPriority,
		contractx.TicketsByPriorityArgs{Priority: model.PriorityHigh, CustomerIDs: customerIDs})
	if err != nil {
		return rn.failure(ScenarioMultiStep, err)
	}
	rn.logf("Router → Support: Get high-priority tickets")

	ticketsRes, err := contractx.Decode[contractx.TicketsResult](reply.Content)
	if err != nil {
		return rn.failure(ScenarioMultiStep, err)
	}
	tickets := ticketsRes.Tickets
	rn.logf("Support → Router: Found %d high-priority tickets", len(tickets))

	return Result{
		Query:    rn.query,
		QueryID:  rn.queryID,
		Scenario: ScenarioMultiStep,
		Response: formatTicketReport(customers, tickets),
		Statistics: map[string]int{
			"customers_found": len(customers),
			"tickets_found":   len(tickets),
		},
		CoordinationLog: rn.logLines,
		Success:         true,
	}
}

// complexJoin answers "all active customers with open tickets": list
// the active set, fetch their open tickets, and join client-side.
func (r *Router) complexJoin(ctx context.Context, rn *run) Result {
	log.Info().Str("query_id", rn.queryID).Msg("handling complex ticket query")

	reply, err := r.request(ctx, rn, contractx.AgentTypeCustomerData, contractx.ActionListCustomers,
		contractx.ListCustomersArgs{Status: model.CustomerActive, Limit: 1000})
	if err != nil {
		return rn.failure(ScenarioComplexJoin, err)
	}
	rn.logf("Router → Data Agent: Get all active customers")

	customersRes, err := contractx.Decode[contractx.CustomersResult](reply.Content)
	if err != nil {
		return rn.failure(ScenarioComplexJoin, err)
	}
	customers := customersRes.Customers
	customerIDs := make([]int64, 0, len(customers))
	for _, c := range customers {
		customerIDs = append(customerIDs, c.ID)
	}
	rn.logf("Data Agent → Router: Found %d active customers", len(customers))

	reply, err = r.request(ctx, rn, contractx.AgentTypeSupport, contractx.ActionOpenTicketsFor,
		contractx.OpenTicketsForArgs{CustomerIDs: customerIDs})
	if err != nil {
		return rn.failure(ScenarioComplexJoin, err)
	}
	rn.logf("Router → Support: Get open tickets")

	ticketsRes, err := contractx.Decode[contractx.TicketsResult](reply.Content)
	if err != nil {
		return rn.failure(ScenarioComplexJoin, err)
	}
	openTickets := ticketsRes.Tickets
	rn.logf("Support → Router: Found %d open tickets", len(openTickets))

	// Group tickets under their owners, keeping first-seen order so the
	// report is stable for identical inputs. Tickets whose owner is not
	// in the active set are dropped.
	byCustomer := make(map[int64]*model.Customer, len(customers))
	for i := range customers {
		byCustomer[customers[i].ID] = &customers[i]
	}

	var order []int64
	grouped := make(map[int64][]model.Ticket)
	for _, t := range openTickets {
		if _, known := byCustomer[t.CustomerID]; !known {
			continue
		}
		if _, seen := grouped[t.CustomerID]; !seen {
			order = append(order, t.CustomerID)
		}
		grouped[t.CustomerID] = append(grouped[t.CustomerID], t)
	}

	lines := []string{fmt.Sprintf("Found %d active customer(s) with open tickets:\n", len(order))}
	for _, id := range order {
		customer := byCustomer[id]
		tickets := grouped[id]
		lines = append(lines, fmt.Sprintf("- %s (ID: %d, Email: %s)", customer.Name, id, valueOr(customer.Email, "N/A")))
		lines = append(lines, fmt.Sprintf("  Open Tickets: %d", len(tickets)))
		for _, t := range tickets {
			lines = append(lines, fmt.Sprintf("    • Ticket #%d: %s (Priority: %s)", t.ID, t.Issue, t.Priority))
		}
		lines = append(lines, "")
	}

	return Result{
		Query:    rn.query,
		QueryID:  rn.queryID,
		Scenario: ScenarioComplexJoin,
		Response: strings.Join(lines, "\n"),
		Statistics: map[string]int{
			"active_customers":            len(customers),
			"customers_with_open_tickets": len(order),
			"total_open_tickets":          len(openTickets),
		},
		CoordinationLog: rn.logLines,
		Success:         true,
	}
}

// multiIntentUpdate applies an extracted update, then re-reads the
// record and its ticket history. The customer ID is required up front;
// no outbound call is made without it.
func (r *Router) multiIntentUpdate(ctx context.Context, rn *run) Result {
	customerID := rn.intent.CustomerID
	if customerID == 0 {
		return Result{
			Query:           rn.query,
			QueryID:         rn.queryID,
			Error:           "Customer ID required for updates",
			CoordinationLog: rn.logLines,
			Success:         false,
		}
	}

	updateData := map[string]string{}
	if email, ok := intentx.ExtractEmail(rn.query); ok {
		updateData["email"] = email
	}

	var actions []string
	if len(updateData) > 0 {
		reply, err := r.request(ctx, rn, contractx.AgentTypeCustomerData, contractx.ActionUpdateCustomer,
			contractx.UpdateCustomerArgs{CustomerID: customerID, Data: updateData})
		if err != nil {
			return rn.failure(ScenarioMultiIntent, err)
		}
		rn.logf("Router → Data Agent: Update customer %d", customerID)

		if res, err := contractx.Decode[contractx.UpdateResult](reply.Content); err == nil && res.Success {
			actions = append(actions, fmt.Sprintf("Updated customer %d: email=%s", customerID, updateData["email"]))
			rn.logf("Data Agent → Router: Update successful")
		}
	}

	var customerInfo *model.Customer
	reply, err := r.request(ctx, rn, contractx.AgentTypeCustomerData, contractx.ActionGetCustomer,
		contractx.GetCustomerArgs{CustomerID: customerID})
	if err != nil {
		return rn.failure(ScenarioMultiIntent, err)
	}
	rn.logf("Router → Data Agent: Get customer info")

	if res, err := contractx.Decode[contractx.CustomerResult](reply.Content); err == nil && res.Success {
		customerInfo = res.Customer
		rn.logf("Data Agent → Router: Customer data retrieved")
	}

	reply, err = r.request(ctx, rn, contractx.AgentTypeCustomerData, contractx.ActionGetCustomerHistory,
		contractx.CustomerHistoryArgs{CustomerID: customerID})
	if err != nil {
		return rn.failure(ScenarioMultiIntent, err)
	}
	rn.logf("Router → Data Agent: Get ticket history")

	var history []model.Ticket
	if res, err := contractx.Decode[contractx.HistoryResult](reply.Content); err == nil {
		history = res.History
	}
	rn.logf("Data Agent → Router: Found %d tickets", len(history))

	return Result{
		Query:           rn.query,
		QueryID:         rn.queryID,
		Scenario:        ScenarioMultiIntent,
		Response:        formatUpdateReport(actions, customerInfo, history),
		CustomerInfo:    customerInfo,
		TicketHistory:   history,
		Actions:         actions,
		CoordinationLog: rn.logLines,
		Success:         true,
	}
}
