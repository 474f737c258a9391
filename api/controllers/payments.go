package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/billifyhq/billify-backend/api/responses"
	"github.com/billifyhq/billify-backend/api/validators"
	"github.com/billifyhq/billify-backend/internal/payments"
	"github.com/billifyhq/billify-backend/pkg/enums"
	pkgerrors "github.com/billifyhq/billify-backend/pkg/errors"
	"github.com/billifyhq/billify-backend/pkg/logger"
)

type createPaymentRequest struct {
	InvoiceID     string          `json:"invoice_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
}

// PaymentList returns the payment audit trail, optionally scoped to one
// invoice via ?invoice_id=.
func PaymentList(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if invoiceID := r.URL.Query().Get("invoice_id"); invoiceID != "" {
			result, err := svc.ListByInvoice(r.Context(), invoiceID)
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

func PaymentGet(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "paymentId")
		payment, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// PaymentProcess charges the gateway, appends the attempt record, and
// reports the outcome to the invoice.
func PaymentProcess(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		result, err := svc.Process(r.Context(), payments.CreateParams{
			InvoiceID:     body.InvoiceID,
			Amount:        body.Amount,
			PaymentMethod: method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
