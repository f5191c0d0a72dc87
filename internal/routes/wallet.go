package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chibank/wallet-core/internal/wallet"
)

// RegisterWalletRoutes wires the per-role wallet endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallets", h.Create)
	r.Get("/wallets", h.List)
	r.Get("/wallets/fiat", h.ListFiat)
	r.Get("/wallets/crypto", h.ListCrypto)
	r.Get("/wallets/:currency/balance", h.Balance)
	r.Get("/total-balance", h.Total)
	r.Get("/statistics", h.Statistics)
	r.Get("/transactions", h.Transactions)
}
