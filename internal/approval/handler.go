package approval

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/chibank/wallet-core/internal/response"
	"github.com/chibank/wallet-core/internal/wallet"
)

func init() {
	response.Register(ErrWalletNotFound, "approval_wallet_not_found", http.StatusNotFound)
	response.Register(ErrWalletExists, "approval_wallet_exists", http.StatusConflict)
	response.Register(ErrRequestNotFound, "approval_not_found", http.StatusNotFound)
	response.Register(ErrDuplicateReference, "duplicate_reference", http.StatusConflict)
	response.Register(ErrExpired, "approval_expired", http.StatusUnprocessableEntity)
	response.Register(ErrAlreadyDecided, "approval_already_decided", http.StatusConflict)
	response.Register(ErrAlreadySigned, "approval_already_signed", http.StatusConflict)
	response.Register(ErrQuorumImpossible, "quorum_impossible", http.StatusUnprocessableEntity)
	response.Register(ErrNotAuthorizedSigner, "not_authorized_signer", http.StatusForbidden)
	response.Register(ErrUnsupportedChain, "unsupported_chain", http.StatusUnprocessableEntity)
	response.Register(ErrStaleRequest, "approval_conflict", http.StatusConflict)
}

// Handler exposes the enterprise multi-signature endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an approval HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createWalletRequest struct {
	WalletName         string   `json:"wallet_name"`
	SupportedChains    []string `json:"supported_chains"`
	PrimaryChainID     string   `json:"primary_chain_id"`
	RequiredSignatures int      `json:"required_signatures"`
	SignerAddresses    []string `json:"signer_addresses"`
}

// CreateWallet provisions an enterprise multi-signature wallet.
func (h *Handler) CreateWallet(c *fiber.Ctx) error {
	ownerID := c.Get(wallet.OwnerHeader)
	if ownerID == "" {
		return response.BadRequest(c, "missing owner identity")
	}
	var req createWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	w, err := h.service.CreateWallet(c.UserContext(), CreateWalletInput{
		OwnerID:            ownerID,
		WalletName:         req.WalletName,
		SupportedChains:    req.SupportedChains,
		PrimaryChainID:     req.PrimaryChainID,
		RequiredSignatures: req.RequiredSignatures,
		SignerAddresses:    req.SignerAddresses,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusCreated, w)
}

// ListWallets returns the caller's enterprise wallets.
func (h *Handler) ListWallets(c *fiber.Ctx) error {
	ownerID := c.Get(wallet.OwnerHeader)
	if ownerID == "" {
		return response.BadRequest(c, "missing owner identity")
	}
	wallets, err := h.service.ListWallets(c.UserContext(), ownerID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusOK, fiber.Map{"wallets": wallets})
}

type fundRequest struct {
	CurrencyCode string `json:"currency_code"`
	ChainID      string `json:"chain_id"`
	Amount       string `json:"amount"`
}

// FundWallet credits a chain balance from custody.
func (h *Handler) FundWallet(c *fiber.Ctx) error {
	var req fundRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return response.BadRequest(c, "amount must be a decimal string")
	}
	w, err := h.service.FundWallet(c.UserContext(), c.Params("walletId"), req.CurrencyCode, req.ChainID, amount)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusOK, w)
}

type approvalRequest struct {
	WalletID        string `json:"wallet_id"`
	Signer          string `json:"signer"`
	TransactionType string `json:"transaction_type"`
	Amount          string `json:"amount"`
	CurrencyCode    string `json:"currency_code"`
	ChainID         string `json:"chain_id"`
	ToAddress       string `json:"to_address"`
	Reference       string `json:"reference"`
	Description     string `json:"description"`
}

// CreateRequest opens a pending approval request.
func (h *Handler) CreateRequest(c *fiber.Ctx) error {
	var req approvalRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return response.BadRequest(c, "amount must be a decimal string")
	}
	created, err := h.service.RequestApproval(c.UserContext(), RequestInput{
		WalletID:        req.WalletID,
		RequesterSigner: req.Signer,
		TransactionType: req.TransactionType,
		Amount:          amount,
		CurrencyCode:    req.CurrencyCode,
		ChainID:         req.ChainID,
		ToAddress:       req.ToAddress,
		Reference:       req.Reference,
		Description:     req.Description,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusCreated, created)
}

// ListRequests returns a wallet's approval requests; ?status= filters.
func (h *Handler) ListRequests(c *fiber.Ctx) error {
	requests, err := h.service.ListRequests(c.UserContext(), c.Query("wallet_id"), c.Query("status"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusOK, fiber.Map{"requests": requests})
}

// GetRequest returns one approval request.
func (h *Handler) GetRequest(c *fiber.Ctx) error {
	req, err := h.service.GetRequest(c.UserContext(), c.Params("requestId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusOK, req)
}

type voteRequest struct {
	Signer string `json:"signer"`
}

// Approve records the signer's approval vote.
func (h *Handler) Approve(c *fiber.Ctx) error {
	var req voteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	updated, err := h.service.Approve(c.UserContext(), c.Params("requestId"), req.Signer)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusOK, updated)
}

// Reject records the signer's rejection vote.
func (h *Handler) Reject(c *fiber.Ctx) error {
	var req voteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	updated, err := h.service.Reject(c.UserContext(), c.Params("requestId"), req.Signer)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusOK, updated)
}

type executeRequest struct {
	TransactionHash string `json:"transaction_hash"`
}

// Execute settles an approved request.
func (h *Handler) Execute(c *fiber.Ctx) error {
	var req executeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	executed, err := h.service.Execute(c.UserContext(), c.Params("requestId"), req.TransactionHash)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusOK, executed)
}

// Sweep expires every overdue pending request.
func (h *Handler) Sweep(c *fiber.Ctx) error {
	swept, err := h.service.SweepExpired(c.UserContext())
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, http.StatusOK, fiber.Map{"expired": swept})
}
