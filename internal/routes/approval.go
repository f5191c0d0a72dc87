package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chibank/wallet-core/internal/approval"
)

// RegisterApprovalRoutes wires the enterprise multi-signature endpoints.
func RegisterApprovalRoutes(r fiber.Router, h *approval.Handler, idem fiber.Handler) {
	r.Post("/wallets", h.CreateWallet)
	r.Get("/wallets", h.ListWallets)
	r.Post("/wallets/:walletId/fund", h.FundWallet)

	if idem != nil {
		r.Post("/approvals", idem, h.CreateRequest)
	} else {
		r.Post("/approvals", h.CreateRequest)
	}
	r.Get("/approvals", h.ListRequests)
	r.Get("/approvals/:requestId", h.GetRequest)
	r.Post("/approvals/:requestId/approve", h.Approve)
	r.Post("/approvals/:requestId/reject", h.Reject)
	r.Post("/approvals/:requestId/execute", h.Execute)
	r.Post("/approvals/sweep", h.Sweep)
}
