package billing

// Outcome classifies what a billing pass did with one customer.
type Outcome string

const (
	// OutcomeInvoiced means an invoice was created and the billing date advanced.
	OutcomeInvoiced Outcome = "invoiced"
	// OutcomeNotDue means the customer's next billing date is still upcoming.
	OutcomeNotDue Outcome = "not_due"
	// OutcomeMissingPlan means the customer references a plan the directory
	// does not know. Data-integrity gap, not fatal.
	OutcomeMissingPlan Outcome = "missing_plan"
	// OutcomeLocked means another pass holds this customer's billing token.
	OutcomeLocked Outcome = "locked"
	// OutcomeFailed means a collaborator call failed for this customer.
	OutcomeFailed Outcome = "failed"
)

// CustomerResult is the per-customer record collected by a billing pass.
type CustomerResult struct {
	CustomerID string
	Outcome    Outcome
	// Err is set for failed outcomes, and also when the invoice was created
	// but a follow-up step (date advance, notification) failed.
	Err error
}

// Report summarizes one billing pass. The pass is only declared complete
// once every fanned-out customer has reported back.
type Report struct {
	Scanned      int
	Active       int
	Invoiced     int
	NotDue       int
	MissingPlan  int
	Locked       int
	Failed       int
	NotifyFailed int
	Results      []CustomerResult
}

func (r *Report) tally(result CustomerResult) {
	r.Results = append(r.Results, result)
	switch result.Outcome {
	case OutcomeInvoiced:
		r.Invoiced++
	case OutcomeNotDue:
		r.NotDue++
	case OutcomeMissingPlan:
		r.MissingPlan++
	case OutcomeLocked:
		r.Locked++
	case OutcomeFailed:
		r.Failed++
	}
}
