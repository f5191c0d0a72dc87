package transfer

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/chibank/wallet-core/internal/response"
	"github.com/chibank/wallet-core/internal/wallet"
)

// Handler exposes the transfer endpoint.
type Handler struct {
	engine *Engine
}

// NewHandler builds a transfer HTTP handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type transferRequest struct {
	FromCurrency string `json:"from_currency"`
	ToOwnerID    string `json:"to_owner_id"`
	ToOwnerKind  string `json:"to_owner_kind"`
	ToCurrency   string `json:"to_currency"`
	Amount       string `json:"amount"`
	Reference    string `json:"reference"`
	Remark       string `json:"remark"`
}

// Create moves funds from the caller's wallet to the destination wallet,
// converting between currencies when they differ. The destination defaults
// to the caller's own wallets when to_owner_id is omitted.
func (h *Handler) Create(c *fiber.Ctx) error {
	ownerID, kind, ok := wallet.Owner(c)
	if !ok {
		return response.BadRequest(c, "missing owner identity")
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return response.BadRequest(c, "amount must be a decimal string")
	}

	toOwnerID := req.ToOwnerID
	toKind := wallet.OwnerKind(req.ToOwnerKind)
	if toOwnerID == "" {
		toOwnerID = ownerID
		toKind = kind
	}
	if toKind == "" {
		toKind = kind
	}
	toCurrency := req.ToCurrency
	if toCurrency == "" {
		toCurrency = req.FromCurrency
	}

	result, err := h.engine.Transfer(c.UserContext(), Input{
		FromOwnerID:   ownerID,
		FromOwnerKind: kind,
		FromCurrency:  req.FromCurrency,
		ToOwnerID:     toOwnerID,
		ToOwnerKind:   toKind,
		ToCurrency:    toCurrency,
		Amount:        amount,
		Reference:     req.Reference,
		Remark:        req.Remark,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusCreated, result)
}
