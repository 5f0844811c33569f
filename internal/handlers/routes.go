package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// API groups the handlers mounted under /api/v1
type API struct {
	Sessions *SessionHandler
	Wallet   *WalletHandler
	Flows    *FlowHandler
	QR       *QRHandler
	Catalog  *CatalogHandler
}

// RegisterRoutes mounts the API on r. auth guards every session-bound route.
func RegisterRoutes(r chi.Router, api API, auth func(http.Handler) http.Handler) {
	// Public endpoints (no auth required)
	r.Post("/session", api.Sessions.Create)
	r.Get("/catalog", api.Catalog.Catalog)

	// Protected endpoints (auth required)
	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Get("/session", api.Sessions.Me)
		r.Post("/session/logout", api.Sessions.Logout)

		r.Get("/wallet/balance", api.Wallet.Balance)
		r.Post("/wallet/add-money", api.Wallet.AddMoney)
		r.Post("/wallet/send-money", api.Wallet.SendMoney)
		r.Get("/wallet/transactions", api.Wallet.Transactions)
		r.Get("/wallet/dashboard", api.Wallet.Dashboard)
		r.Get("/wallet/history", api.Wallet.History)
		r.Get("/wallet/budget", api.Wallet.Budget)
		r.Put("/wallet/budget", api.Wallet.UpdateBudget)

		r.Post("/flows", api.Flows.Begin)
		r.Route("/flows/current", func(r chi.Router) {
			r.Get("/", api.Flows.Current)
			r.Delete("/", api.Flows.Discard)
			r.Post("/target", api.Flows.SubmitTarget)
			r.Post("/amount", api.Flows.SubmitAmount)
			r.Post("/authorize", api.Flows.Authorize)
			r.Post("/back", api.Flows.Back)
			r.Post("/repeat", api.Flows.Repeat)
		})

		r.Post("/qr/generate", api.QR.GenerateQR)
		r.Post("/qr/process", api.QR.ProcessQR)
	})
}
