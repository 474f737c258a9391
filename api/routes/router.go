package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/billifyhq/billify-backend/api/controllers"
	"github.com/billifyhq/billify-backend/api/middleware"
	"github.com/billifyhq/billify-backend/internal/invoices"
	"github.com/billifyhq/billify-backend/internal/payments"
	"github.com/billifyhq/billify-backend/pkg/config"
	"github.com/billifyhq/billify-backend/pkg/kv"
	"github.com/billifyhq/billify-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	store *kv.Client,
	invoiceService invoices.Service,
	paymentService payments.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, store))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.API, logg))

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", controllers.InvoiceList(invoiceService, logg))
			r.Get("/failed", controllers.InvoiceListFailed(invoiceService, logg))
			r.Post("/", controllers.InvoiceCreate(invoiceService, logg))
			r.Get("/{invoiceId}", controllers.InvoiceGet(invoiceService, logg))
			r.Put("/{invoiceId}", controllers.InvoiceUpdate(invoiceService, logg))
			r.Post("/{invoiceId}/pay", controllers.InvoicePay(invoiceService, logg))
			r.Post("/{invoiceId}/failed-payment", controllers.InvoiceFailedPayment(invoiceService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", controllers.PaymentList(paymentService, logg))
			r.Post("/", controllers.PaymentProcess(paymentService, logg))
			r.Get("/{paymentId}", controllers.PaymentGet(paymentService, logg))
		})
	})

	return r
}
