package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chibank/wallet-core/internal/transfer"
)

// RegisterTransferRoutes wires the transfer endpoint, replay-protected when
// an idempotency middleware is supplied.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler, idem fiber.Handler) {
	if idem != nil {
		r.Post("/transfer", idem, h.Create)
		return
	}
	r.Post("/transfer", h.Create)
}
