package billing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/billifyhq/billify-backend/internal/invoices"
	"github.com/billifyhq/billify-backend/internal/notify"
	"github.com/billifyhq/billify-backend/pkg/enums"
	"github.com/billifyhq/billify-backend/pkg/kv"
	"github.com/billifyhq/billify-backend/pkg/logger"
	"github.com/billifyhq/billify-backend/pkg/metrics"
	"github.com/billifyhq/billify-backend/pkg/records"
)

// CustomerLockPrefix namespaces per-customer billing tokens in the store.
const CustomerLockPrefix = "v1:billing-lock:"

const (
	defaultWorkers = 8
	defaultLockTTL = 5 * time.Minute
)

type directoryClient interface {
	ListCustomers(ctx context.Context) ([]records.Customer, error)
	ListSubscriptions(ctx context.Context) ([]records.Subscription, error)
	UpdateNextBillingDate(ctx context.Context, customerID string, next time.Time) error
}

type invoiceCreator interface {
	Create(ctx context.Context, params invoices.CreateParams) (*records.Invoice, error)
}

type notifier interface {
	SendEmail(ctx context.Context, to []string, subject, body string) error
}

// JobParams configure the billing pass.
type JobParams struct {
	Logger    *logger.Logger
	Directory directoryClient
	Invoices  invoiceCreator
	Notifier  notifier
	Locker    kv.Locker
	Metrics   *metrics.CronJobMetrics
	Workers   int
	LockTTL   time.Duration
	Now       func() time.Time
}

// NewJob builds the billing scheduler job.
func NewJob(params JobParams) (*Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Directory == nil {
		return nil, fmt.Errorf("directory client required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoice creator required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	workers := params.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	lockTTL := params.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Job{
		logg:      params.Logger,
		directory: params.Directory,
		invoices:  params.Invoices,
		notifier:  params.Notifier,
		locker:    params.Locker,
		metrics:   params.Metrics,
		workers:   workers,
		lockTTL:   lockTTL,
		now:       now,
	}, nil
}

// Job is the billing pass: scan customers, invoice the due ones, advance
// their billing dates, and notify them.
type Job struct {
	logg      *logger.Logger
	directory directoryClient
	invoices  invoiceCreator
	notifier  notifier
	locker    kv.Locker
	metrics   *metrics.CronJobMetrics
	workers   int
	lockTTL   time.Duration
	now       func() time.Time
}

const jobName = "billing-pass"

func (j *Job) Name() string { return jobName }

// Run implements cron.Job.
func (j *Job) Run(ctx context.Context) error {
	_, err := j.RunPass(ctx)
	return err
}

// RunPass executes one billing pass and returns its report. Per-customer
// work fans out across a bounded worker group; the pass returns only after
// every customer's outcome is collected.
func (j *Job) RunPass(ctx context.Context) (*Report, error) {
	customers, err := j.directory.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch customers: %w", err)
	}
	subscriptions, err := j.directory.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch subscriptions: %w", err)
	}
	plans := make(map[string]records.Subscription, len(subscriptions))
	for _, plan := range subscriptions {
		plans[plan.ID] = plan
	}

	now := j.now().UTC()
	report := &Report{Scanned: len(customers)}

	active := make([]records.Customer, 0, len(customers))
	for _, customer := range customers {
		if customer.IsActive() {
			active = append(active, customer)
		}
	}
	report.Active = len(active)

	results := make([]CustomerResult, len(active))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(j.workers)
	for i, customer := range active {
		i, customer := i, customer
		group.Go(func() error {
			results[i] = j.billCustomer(groupCtx, customer, plans, now)
			return nil
		})
	}
	// Worker closures never return errors; outcomes land in results.
	_ = group.Wait()

	var errs error
	for _, result := range results {
		report.tally(result)
		if result.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("customer %s: %w", result.CustomerID, result.Err))
			if result.Outcome == OutcomeInvoiced {
				report.NotifyFailed++
			}
		}
		j.metrics.AddEntityOutcomes(jobName, string(result.Outcome), 1)
	}

	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":       report.Scanned,
		"active":        report.Active,
		"invoiced":      report.Invoiced,
		"not_due":       report.NotDue,
		"missing_plan":  report.MissingPlan,
		"locked":        report.Locked,
		"failed":        report.Failed,
		"notify_failed": report.NotifyFailed,
	})
	j.logg.Info(reportCtx, "billing pass complete")
	return report, errs
}

func (j *Job) billCustomer(ctx context.Context, customer records.Customer, plans map[string]records.Subscription, now time.Time) CustomerResult {
	logCtx := j.logg.WithCustomerID(ctx, customer.ID)

	plan, ok := plans[customer.SubscriptionPlanID]
	if !ok {
		planCtx := j.logg.WithField(logCtx, "plan_id", customer.SubscriptionPlanID)
		j.logg.Warn(planCtx, "customer references unknown plan; skipping")
		return CustomerResult{CustomerID: customer.ID, Outcome: OutcomeMissingPlan}
	}

	if !customer.IsDue(now) {
		return CustomerResult{CustomerID: customer.ID, Outcome: OutcomeNotDue}
	}

	locked, err := j.locker.SetNX(ctx, CustomerLockPrefix+customer.ID, now.Format(time.RFC3339Nano), j.lockTTL)
	if err != nil {
		return CustomerResult{CustomerID: customer.ID, Outcome: OutcomeFailed, Err: fmt.Errorf("acquire billing token: %w", err)}
	}
	if !locked {
		j.logg.Info(logCtx, "billing token held elsewhere; skipping customer")
		return CustomerResult{CustomerID: customer.ID, Outcome: OutcomeLocked}
	}
	// Once an invoice exists without the date advanced, the token must
	// survive so its TTL bounds the double-invoice window.
	releaseToken := true
	defer func() {
		if !releaseToken {
			return
		}
		if err := j.locker.Delete(ctx, CustomerLockPrefix+customer.ID); err != nil {
			j.logg.Error(logCtx, "failed to release billing token", err)
		}
	}()

	invoice, err := j.invoices.Create(ctx, invoices.CreateParams{
		CustomerID:    customer.ID,
		Amount:        plan.Price,
		DueDate:       now,
		PaymentStatus: enums.PaymentStatusPending,
	})
	if err != nil {
		return CustomerResult{CustomerID: customer.ID, Outcome: OutcomeFailed, Err: fmt.Errorf("create invoice: %w", err)}
	}

	// Advance from the prior date, not from now, so a delayed run does not
	// drift the customer's cycle.
	next := customer.NextBillingDate.AddDate(0, plan.BillingCycle.Months(), 0)
	if err := j.directory.UpdateNextBillingDate(ctx, customer.ID, next); err != nil {
		// The invoice exists but the date did not advance; keep the token
		// so the next pass cannot re-invoice before the TTL expires.
		releaseToken = false
		j.logg.Error(logCtx, "invoice created but billing date not advanced", err)
		return CustomerResult{CustomerID: customer.ID, Outcome: OutcomeFailed, Err: fmt.Errorf("advance billing date: %w", err)}
	}

	subject := notify.InvoiceGeneratedSubject(plan)
	body := notify.InvoiceGeneratedBody(customer, plan, invoice.Amount, invoice.DueDate)
	if err := j.notifier.SendEmail(ctx, []string{customer.Email}, subject, body); err != nil {
		j.logg.Error(logCtx, "invoice notification failed", err)
		return CustomerResult{CustomerID: customer.ID, Outcome: OutcomeInvoiced, Err: fmt.Errorf("send notification: %w", err)}
	}

	successCtx := j.logg.WithFields(logCtx, map[string]any{
		"invoice_id":        invoice.ID,
		"amount":            invoice.Amount,
		"next_billing_date": next,
	})
	j.logg.Info(successCtx, "customer invoiced")
	return CustomerResult{CustomerID: customer.ID, Outcome: OutcomeInvoiced}
}
