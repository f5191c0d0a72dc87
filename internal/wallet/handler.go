package wallet

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/chibank/wallet-core/internal/currency"
	"github.com/chibank/wallet-core/internal/response"
)

func init() {
	response.Register(ErrInvalidAmount, "invalid_amount", http.StatusUnprocessableEntity)
	response.Register(ErrNotFound, "wallet_not_found", http.StatusNotFound)
	response.Register(ErrExists, "wallet_exists", http.StatusConflict)
	response.Register(ErrInactive, "wallet_inactive", http.StatusUnprocessableEntity)
	response.Register(ErrInsufficientFunds, "insufficient_funds", http.StatusUnprocessableEntity)
	response.Register(ErrConcurrentModification, "concurrent_modification", http.StatusConflict)
	response.Register(currency.ErrNotFound, "currency_not_found", http.StatusNotFound)
}

// ownerKindKey is set by the role-group middleware in routes.
const ownerKindKey = "ownerKind"

// OwnerHeader carries the caller's owner id. The gateway in front of this
// service authenticates the caller and injects the header.
const OwnerHeader = "X-Owner-ID"

// RoleLocal stores a role group's owner kind on the request context.
func RoleLocal(kind OwnerKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(ownerKindKey, kind)
		return c.Next()
	}
}

// Owner extracts the caller's identity from the request. It reports false
// when the header or the role group is missing.
func Owner(c *fiber.Ctx) (string, OwnerKind, bool) {
	ownerID := c.Get(OwnerHeader)
	kind, _ := c.Locals(ownerKindKey).(OwnerKind)
	return ownerID, kind, ownerID != "" && kind != ""
}

// Handler exposes the wallet read and provisioning endpoints.
type Handler struct {
	store      *Store
	queries    *QueryService
	currencies *currency.Registry
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(store *Store, queries *QueryService, currencies *currency.Registry) *Handler {
	return &Handler{store: store, queries: queries, currencies: currencies}
}

type createWalletRequest struct {
	Currency string `json:"currency"`
}

// Create provisions a wallet in the given currency for the caller.
func (h *Handler) Create(c *fiber.Ctx) error {
	ownerID, kind, ok := Owner(c)
	if !ok {
		return response.BadRequest(c, "missing owner identity")
	}
	var req createWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	cur, err := h.currencies.Resolve(req.Currency)
	if err != nil {
		return response.Error(c, err)
	}
	w, err := h.store.CreateWallet(c.UserContext(), ownerID, kind, cur.Code)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusCreated, h.queries.FormatWallet(w))
}

// List returns every wallet of the caller.
func (h *Handler) List(c *fiber.Ctx) error {
	ownerID, kind, ok := Owner(c)
	if !ok {
		return response.BadRequest(c, "missing owner identity")
	}
	views, err := h.queries.ListWallets(c.UserContext(), ownerID, kind)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusOK, fiber.Map{"wallets": views})
}

// ListFiat returns the caller's fiat wallets.
func (h *Handler) ListFiat(c *fiber.Ctx) error {
	return h.listByType(c, currency.TypeFiat)
}

// ListCrypto returns the caller's crypto wallets.
func (h *Handler) ListCrypto(c *fiber.Ctx) error {
	return h.listByType(c, currency.TypeCrypto)
}

func (h *Handler) listByType(c *fiber.Ctx, t currency.Type) error {
	ownerID, kind, ok := Owner(c)
	if !ok {
		return response.BadRequest(c, "missing owner identity")
	}
	views, err := h.queries.ListWalletsByCurrencyType(c.UserContext(), ownerID, kind, t)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusOK, fiber.Map{"wallets": views})
}

// Balance returns one wallet identified by its currency code.
func (h *Handler) Balance(c *fiber.Ctx) error {
	ownerID, kind, ok := Owner(c)
	if !ok {
		return response.BadRequest(c, "missing owner identity")
	}
	w, err := h.store.Get(c.UserContext(), ownerID, kind, c.Params("currency"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusOK, h.queries.FormatWallet(w))
}

// Total returns the caller's aggregate balance in the base currency.
func (h *Handler) Total(c *fiber.Ctx) error {
	ownerID, kind, ok := Owner(c)
	if !ok {
		return response.BadRequest(c, "missing owner identity")
	}
	total, err := h.queries.TotalBalance(c.UserContext(), ownerID, kind)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusOK, total)
}

// Statistics returns wallet counts and settled transaction totals.
func (h *Handler) Statistics(c *fiber.Ctx) error {
	ownerID, kind, ok := Owner(c)
	if !ok {
		return response.BadRequest(c, "missing owner identity")
	}
	stats, err := h.queries.Statistics(c.UserContext(), ownerID, kind)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusOK, stats)
}

// Transactions returns a page of the caller's ledger history. Optional
// filters: currency (wallet currency code) and type (entry type).
func (h *Handler) Transactions(c *fiber.Ctx) error {
	ownerID, kind, ok := Owner(c)
	if !ok {
		return response.BadRequest(c, "missing owner identity")
	}
	page, err := h.queries.History(c.UserContext(), ownerID, kind,
		c.Query("currency"), c.Query("type"),
		c.QueryInt("page", 1), c.QueryInt("limit", 15))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusOK, page)
}
