package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/billifyhq/billify-backend/api/responses"
	"github.com/billifyhq/billify-backend/api/validators"
	"github.com/billifyhq/billify-backend/internal/invoices"
	"github.com/billifyhq/billify-backend/pkg/enums"
	pkgerrors "github.com/billifyhq/billify-backend/pkg/errors"
	"github.com/billifyhq/billify-backend/pkg/logger"
)

type createInvoiceRequest struct {
	CustomerID    string          `json:"customer_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	DueDate       time.Time       `json:"due_date" validate:"required"`
	PaymentStatus string          `json:"payment_status" validate:"required"`
}

type updateInvoiceRequest struct {
	CustomerID    *string          `json:"customer_id"`
	Amount        *decimal.Decimal `json:"amount"`
	DueDate       *time.Time       `json:"due_date"`
	PaymentStatus *string          `json:"payment_status"`
	PaymentDate   *time.Time       `json:"payment_date"`
}

// InvoiceList returns every stored invoice plus the count of records that
// could not be read.
func InvoiceList(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if customerID := r.URL.Query().Get("customer_id"); customerID != "" {
			result, err := svc.ListByCustomer(r.Context(), customerID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, result)
			return
		}

		result, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// InvoiceListFailed returns the invoices whose latest payment attempt
// failed. The retry worker polls this endpoint.
func InvoiceListFailed(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.ListFailed(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func InvoiceGet(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "invoiceId")
		invoice, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

func InvoiceCreate(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createInvoiceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParsePaymentStatus(body.PaymentStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status"))
			return
		}

		invoice, err := svc.Create(r.Context(), invoices.CreateParams{
			CustomerID:    body.CustomerID,
			Amount:        body.Amount,
			DueDate:       body.DueDate,
			PaymentStatus: status,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, invoice)
	}
}

// InvoiceUpdate applies a merge-patch: absent fields keep their stored
// value, an explicit null payment_date clears it.
func InvoiceUpdate(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "invoiceId")

		var body updateInvoiceRequest
		raw, err := validators.DecodeJSONPatch(r, &body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := invoices.UpdateParams{
			CustomerID:  body.CustomerID,
			Amount:      body.Amount,
			DueDate:     body.DueDate,
			PaymentDate: body.PaymentDate,
		}
		if body.PaymentStatus != nil {
			status, err := enums.ParsePaymentStatus(*body.PaymentStatus)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status"))
				return
			}
			params.PaymentStatus = &status
		}
		if validators.IsNullField(raw, "payment_date") {
			params.ClearPaymentDate = true
		}

		invoice, err := svc.Update(r.Context(), id, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// InvoicePay marks the invoice paid. Paying an already-paid invoice is a
// no-op so the retry worker can report without racing the API.
func InvoicePay(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "invoiceId")
		if err := svc.MarkPaid(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "paid"})
	}
}

// InvoiceFailedPayment marks the invoice failed and clears its payment
// date. Paid invoices are terminal and reject the transition.
func InvoiceFailedPayment(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "invoiceId")
		if err := svc.MarkFailed(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "failed"})
	}
}
