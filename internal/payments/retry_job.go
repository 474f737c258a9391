package payments

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/billifyhq/billify-backend/pkg/enums"
	"github.com/billifyhq/billify-backend/pkg/logger"
	"github.com/billifyhq/billify-backend/pkg/metrics"
	"github.com/billifyhq/billify-backend/pkg/records"
)

const defaultRetryWorkers = 4

// RetryOutcome classifies what a retry pass did with one failed invoice.
type RetryOutcome string

const (
	// RetryOutcomePaid means the reattempted payment settled.
	RetryOutcomePaid RetryOutcome = "paid"
	// RetryOutcomeStillFailed means the reattempt was declined again; the
	// invoice stays eligible for the next pass.
	RetryOutcomeStillFailed RetryOutcome = "still_failed"
	// RetryOutcomeNoHistory means the invoice has no payment attempts to
	// replay, so there is nothing to resubmit.
	RetryOutcomeNoHistory RetryOutcome = "no_history"
	// RetryOutcomeError means a collaborator call failed for this invoice.
	RetryOutcomeError RetryOutcome = "error"
)

// RetryResult is the per-invoice record collected by a retry pass.
type RetryResult struct {
	InvoiceID string
	Outcome   RetryOutcome
	Err       error
}

// RetryReport summarizes one retry pass.
type RetryReport struct {
	Scanned     int
	Paid        int
	StillFailed int
	NoHistory   int
	Errored     int
	Results     []RetryResult
}

func (r *RetryReport) tally(result RetryResult) {
	r.Results = append(r.Results, result)
	switch result.Outcome {
	case RetryOutcomePaid:
		r.Paid++
	case RetryOutcomeStillFailed:
		r.StillFailed++
	case RetryOutcomeNoHistory:
		r.NoHistory++
	case RetryOutcomeError:
		r.Errored++
	}
}

type failedInvoiceSource interface {
	ListFailed(ctx context.Context) ([]records.Invoice, error)
}

type paymentHistory interface {
	ListByInvoice(ctx context.Context, invoiceID string) (*ListResult, error)
}

type attemptProcessor interface {
	Process(ctx context.Context, params CreateParams) (*Result, error)
}

// RetryJobParams configure the payment retry pass.
type RetryJobParams struct {
	Logger    *logger.Logger
	Invoices  failedInvoiceSource
	History   paymentHistory
	Processor attemptProcessor
	Metrics   *metrics.CronJobMetrics
	Workers   int
}

// NewRetryJob builds the failed-payment retry job.
func NewRetryJob(params RetryJobParams) (*RetryJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("failed invoice source required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("payment history required")
	}
	if params.Processor == nil {
		return nil, fmt.Errorf("attempt processor required")
	}
	workers := params.Workers
	if workers <= 0 {
		workers = defaultRetryWorkers
	}
	return &RetryJob{
		logg:      params.Logger,
		invoices:  params.Invoices,
		history:   params.History,
		processor: params.Processor,
		metrics:   params.Metrics,
		workers:   workers,
	}, nil
}

// RetryJob finds invoices whose latest payment failed and resubmits the
// last attempt's parameters.
type RetryJob struct {
	logg      *logger.Logger
	invoices  failedInvoiceSource
	history   paymentHistory
	processor attemptProcessor
	metrics   *metrics.CronJobMetrics
	workers   int
}

const retryJobName = "payment-retry"

func (j *RetryJob) Name() string { return retryJobName }

// Run implements cron.Job.
func (j *RetryJob) Run(ctx context.Context) error {
	_, err := j.RunPass(ctx)
	return err
}

// RunPass executes one retry pass and returns its report.
func (j *RetryJob) RunPass(ctx context.Context) (*RetryReport, error) {
	failed, err := j.invoices.ListFailed(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch failed invoices: %w", err)
	}

	report := &RetryReport{Scanned: len(failed)}
	results := make([]RetryResult, len(failed))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(j.workers)
	for i, invoice := range failed {
		i, invoice := i, invoice
		group.Go(func() error {
			results[i] = j.retryInvoice(groupCtx, invoice)
			return nil
		})
	}
	_ = group.Wait()

	var errs error
	for _, result := range results {
		report.tally(result)
		if result.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("invoice %s: %w", result.InvoiceID, result.Err))
		}
		j.metrics.AddEntityOutcomes(retryJobName, string(result.Outcome), 1)
	}

	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":      report.Scanned,
		"paid":         report.Paid,
		"still_failed": report.StillFailed,
		"no_history":   report.NoHistory,
		"errored":      report.Errored,
	})
	j.logg.Info(reportCtx, "payment retry pass complete")
	return report, errs
}

func (j *RetryJob) retryInvoice(ctx context.Context, invoice records.Invoice) RetryResult {
	logCtx := j.logg.WithInvoiceID(ctx, invoice.ID)

	history, err := j.history.ListByInvoice(ctx, invoice.ID)
	if err != nil {
		return RetryResult{InvoiceID: invoice.ID, Outcome: RetryOutcomeError, Err: fmt.Errorf("list payment history: %w", err)}
	}
	// A retry only makes sense when there is a prior attempt to replay.
	if len(history.Payments) == 0 {
		j.logg.Info(logCtx, "failed invoice has no payment history; nothing to resubmit")
		return RetryResult{InvoiceID: invoice.ID, Outcome: RetryOutcomeNoHistory}
	}

	last := latestPayment(history.Payments)
	attemptCtx := j.logg.WithFields(logCtx, map[string]any{
		"last_payment_id":   last.ID,
		"last_payment_date": last.PaymentDate.Format(time.RFC3339),
		"amount":            last.Amount,
		"payment_method":    last.PaymentMethod,
	})
	j.logg.Info(attemptCtx, "reattempting payment")

	result, err := j.processor.Process(ctx, CreateParams{
		InvoiceID:     last.InvoiceID,
		Amount:        last.Amount,
		PaymentMethod: last.PaymentMethod,
	})
	if err != nil {
		return RetryResult{InvoiceID: invoice.ID, Outcome: RetryOutcomeError, Err: fmt.Errorf("process payment: %w", err)}
	}
	if result.Status == enums.PaymentStatusPaid {
		return RetryResult{InvoiceID: invoice.ID, Outcome: RetryOutcomePaid}
	}
	return RetryResult{InvoiceID: invoice.ID, Outcome: RetryOutcomeStillFailed}
}

// latestPayment picks the most recent attempt by payment date.
func latestPayment(payments []records.Payment) records.Payment {
	sorted := make([]records.Payment, len(payments))
	copy(sorted, payments)
	sort.Slice(sorted, func(a, b int) bool {
		return sorted[a].PaymentDate.After(sorted[b].PaymentDate)
	})
	return sorted[0]
}
