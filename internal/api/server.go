// Package api exposes the storefront and point-of-sale carts over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter mounts the catalog, cart, checkout and receipt routes.
// Cart and checkout routes are scoped by variant ("storefront" or "pos")
// and owner.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/{productID}", h.GetProduct)
		})

		r.Get("/receipts/{receiptID}", h.GetReceipt)

		r.Route("/{variant}/carts/{ownerID}", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{productID}", h.SetQuantity)
			r.Delete("/items/{productID}", h.RemoveItem)

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", h.GetCheckout)
				r.Post("/", h.BeginCheckout)
				r.Delete("/", h.CloseCheckout)
				r.Post("/proceed", h.Proceed)
				r.Put("/address", h.SetAddress)
				r.Put("/payment-method", h.SelectPaymentMethod)
				r.Post("/submit", h.Submit)
				r.Post("/confirm", h.Confirm)
				r.Post("/deny", h.Deny)
				r.Post("/cancel", h.Cancel)
				r.Post("/retry", h.Retry)
			})
		})
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Debug("http request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("elapsed", time.Since(start)))
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
