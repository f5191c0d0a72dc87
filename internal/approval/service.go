package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chibank/wallet-core/internal/notification"
	"github.com/chibank/wallet-core/internal/wallet"
)

// DefaultTTL is how long a request stays open for signatures.
const DefaultTTL = 24 * time.Hour

// Service drives the multi-signature approval workflow over enterprise
// wallets. The clock is injected so expiry behavior can be exercised in
// tests.
type Service struct {
	repo     Repository
	notifier notification.Notifier
	now      func() time.Time
	ttl      time.Duration
}

// NewService builds the workflow service. A nil clock defaults to time.Now
// and a non-positive ttl falls back to DefaultTTL.
func NewService(repo Repository, notifier notification.Notifier, now func() time.Time, ttl time.Duration) *Service {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{repo: repo, notifier: notifier, now: now, ttl: ttl}
}

// CreateWalletInput carries the signer policy for a new enterprise wallet.
type CreateWalletInput struct {
	OwnerID            string
	WalletName         string
	SupportedChains    []string
	PrimaryChainID     string
	RequiredSignatures int
	SignerAddresses    []string
}

// CreateWallet provisions a multi-signature wallet. The policy must be
// satisfiable: at least one signature required and no more than the signer
// set can provide.
func (s *Service) CreateWallet(ctx context.Context, input CreateWalletInput) (EnterpriseWallet, error) {
	if input.OwnerID == "" || input.WalletName == "" {
		return EnterpriseWallet{}, fmt.Errorf("owner id and wallet name are required")
	}
	if len(input.SignerAddresses) == 0 {
		return EnterpriseWallet{}, fmt.Errorf("at least one signer address is required")
	}
	if input.RequiredSignatures < 1 || input.RequiredSignatures > len(input.SignerAddresses) {
		return EnterpriseWallet{}, ErrQuorumImpossible
	}
	if len(input.SupportedChains) == 0 {
		return EnterpriseWallet{}, fmt.Errorf("at least one supported chain is required")
	}
	primary := input.PrimaryChainID
	if primary == "" {
		primary = input.SupportedChains[0]
	}
	now := s.now().UTC()
	w := EnterpriseWallet{
		ID:                 uuid.NewString(),
		OwnerID:            input.OwnerID,
		WalletName:         input.WalletName,
		SupportedChains:    input.SupportedChains,
		PrimaryChainID:     primary,
		RequiredSignatures: input.RequiredSignatures,
		TotalSigners:       len(input.SignerAddresses),
		SignerAddresses:    input.SignerAddresses,
		Balances:           make(map[string]map[string]decimal.Decimal),
		Status:             "active",
		LastActivityAt:     now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if !w.SupportsChain(primary) {
		return EnterpriseWallet{}, ErrUnsupportedChain
	}
	if err := s.repo.CreateWallet(ctx, w); err != nil {
		return EnterpriseWallet{}, err
	}
	return w, nil
}

// GetWallet returns one enterprise wallet.
func (s *Service) GetWallet(ctx context.Context, id string) (EnterpriseWallet, error) {
	return s.repo.GetWallet(ctx, id)
}

// ListWallets returns the owner's enterprise wallets.
func (s *Service) ListWallets(ctx context.Context, ownerID string) ([]EnterpriseWallet, error) {
	return s.repo.ListWallets(ctx, ownerID)
}

// FundWallet credits a chain balance outside the approval flow, for deposits
// arriving from custody.
func (s *Service) FundWallet(ctx context.Context, walletID, currencyCode, chainID string, amount decimal.Decimal) (EnterpriseWallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return EnterpriseWallet{}, wallet.ErrInvalidAmount
	}
	w, err := s.repo.GetWallet(ctx, walletID)
	if err != nil {
		return EnterpriseWallet{}, err
	}
	if chainID != "" && !w.SupportsChain(chainID) {
		return EnterpriseWallet{}, ErrUnsupportedChain
	}
	w.AddFunds(currencyCode, chainID, amount)
	w.LastActivityAt = s.now().UTC()
	if err := s.repo.UpdateWallet(ctx, w); err != nil {
		return EnterpriseWallet{}, err
	}
	return w, nil
}

// RequestInput describes a proposed outbound transaction.
type RequestInput struct {
	WalletID        string
	RequesterSigner string
	TransactionType string
	Amount          decimal.Decimal
	CurrencyCode    string
	ChainID         string
	ToAddress       string
	Reference       string
	Description     string
}

// RequestApproval opens a pending multi-signature request. The required
// approval count and the expiry are frozen from the wallet policy at this
// moment; later policy changes do not affect the open request.
func (s *Service) RequestApproval(ctx context.Context, input RequestInput) (Request, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return Request{}, wallet.ErrInvalidAmount
	}
	w, err := s.repo.GetWallet(ctx, input.WalletID)
	if err != nil {
		return Request{}, err
	}
	if !w.Active() {
		return Request{}, wallet.ErrInactive
	}
	if !w.IsAuthorizedSigner(input.RequesterSigner) {
		return Request{}, ErrNotAuthorizedSigner
	}
	chainID := input.ChainID
	if chainID == "" {
		chainID = w.PrimaryChainID
	}
	if !w.SupportsChain(chainID) {
		return Request{}, ErrUnsupportedChain
	}
	if w.Balance(input.CurrencyCode, chainID).Add(balanceEpsilon).LessThan(input.Amount) {
		return Request{}, wallet.ErrInsufficientFunds
	}

	txType := input.TransactionType
	if txType == "" {
		txType = TxTypeTransfer
	}
	reference := input.Reference
	if reference == "" {
		reference = uuid.NewString()
	}
	now := s.now().UTC()
	req := Request{
		ID:                   uuid.NewString(),
		WalletID:             w.ID,
		TransactionReference: reference,
		TransactionType:      txType,
		Amount:               input.Amount,
		CurrencyCode:         input.CurrencyCode,
		ChainID:              chainID,
		ToAddress:            input.ToAddress,
		RequiredApprovals:    w.RequiredSignatures,
		Status:               StatusPending,
		Description:          input.Description,
		ExpiresAt:            now.Add(s.ttl),
		CreatedAt:            now,
		UpdatedAt:            now,
		Version:              1,
	}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return Request{}, err
	}
	s.notify(ctx, notification.KindApprovalRequested, w.OwnerID,
		fmt.Sprintf("Approval requested for %s %s on wallet %s", req.Amount, req.CurrencyCode, w.WalletName))
	return req, nil
}

// Approve records one signer's approval. Touching a request past its expiry
// persists the expired status and reports ErrExpired.
func (s *Service) Approve(ctx context.Context, requestID, signer string) (Request, error) {
	req, w, err := s.loadLive(ctx, requestID)
	if err != nil {
		return req, err
	}
	if !w.IsAuthorizedSigner(signer) {
		return Request{}, ErrNotAuthorizedSigner
	}
	if req.Status != StatusPending {
		return Request{}, ErrAlreadyDecided
	}
	if req.HasApproved(signer) || req.HasRejected(signer) {
		return Request{}, ErrAlreadySigned
	}
	if !req.AddApproval(signer, s.now()) {
		return Request{}, ErrAlreadyDecided
	}
	req.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateRequest(ctx, req); err != nil {
		return Request{}, err
	}
	if req.Status == StatusApproved {
		s.notify(ctx, notification.KindApprovalApproved, w.OwnerID,
			fmt.Sprintf("Request %s reached %d of %d approvals", req.ID, len(req.ApprovedBy), req.RequiredApprovals))
	}
	return req, nil
}

// Reject records one signer's rejection. The request flips to rejected as
// soon as too few undecided signers remain to reach the quorum.
func (s *Service) Reject(ctx context.Context, requestID, signer string) (Request, error) {
	req, w, err := s.loadLive(ctx, requestID)
	if err != nil {
		return req, err
	}
	if !w.IsAuthorizedSigner(signer) {
		return Request{}, ErrNotAuthorizedSigner
	}
	if req.Status != StatusPending {
		return Request{}, ErrAlreadyDecided
	}
	if req.HasApproved(signer) || req.HasRejected(signer) {
		return Request{}, ErrAlreadySigned
	}
	if !req.AddRejection(signer, w.TotalSigners, s.now()) {
		return Request{}, ErrAlreadyDecided
	}
	req.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateRequest(ctx, req); err != nil {
		return Request{}, err
	}
	if req.Status == StatusRejected {
		s.notify(ctx, notification.KindApprovalRejected, w.OwnerID,
			fmt.Sprintf("Request %s was rejected", req.ID))
	}
	return req, nil
}

// Execute settles an approved request by deducting the enterprise per-chain
// balance. An insufficient balance marks the request failed.
func (s *Service) Execute(ctx context.Context, requestID, txHash string) (Request, error) {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	w, err := s.repo.GetWallet(ctx, req.WalletID)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusApproved {
		return Request{}, ErrAlreadyDecided
	}

	now := s.now().UTC()
	if !w.DeductFunds(req.CurrencyCode, req.ChainID, req.Amount) {
		req.MarkFailed()
		req.UpdatedAt = now
		if err := s.repo.UpdateRequest(ctx, req); err != nil {
			return Request{}, err
		}
		return Request{}, wallet.ErrInsufficientFunds
	}
	if !req.MarkExecuted(txHash, now) {
		return Request{}, ErrAlreadyDecided
	}
	req.UpdatedAt = now
	w.LastActivityAt = now
	if err := s.repo.UpdateRequest(ctx, req); err != nil {
		return Request{}, err
	}
	if err := s.repo.UpdateWallet(ctx, w); err != nil {
		return Request{}, err
	}
	s.notify(ctx, notification.KindApprovalExecuted, w.OwnerID,
		fmt.Sprintf("Request %s executed: %s %s sent on %s", req.ID, req.Amount, req.CurrencyCode, req.ChainID))
	return req, nil
}

// GetRequest returns one approval request, persisting expiry on touch.
func (s *Service) GetRequest(ctx context.Context, requestID string) (Request, error) {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if req.MarkExpired(s.now()) {
		req.UpdatedAt = s.now().UTC()
		if err := s.repo.UpdateRequest(ctx, req); err != nil && !errors.Is(err, ErrStaleRequest) {
			return Request{}, err
		}
	}
	return req, nil
}

// ListRequests returns a wallet's requests, optionally filtered by status.
func (s *Service) ListRequests(ctx context.Context, walletID, status string) ([]Request, error) {
	return s.repo.ListRequests(ctx, walletID, status)
}

// SweepExpired marks every overdue pending request expired. The sweep is
// idempotent and safe to run concurrently with approve/reject because every
// transition is guarded by the current status.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	now := s.now()
	overdue, err := s.repo.ListExpiredPending(ctx, now)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, req := range overdue {
		if !req.MarkExpired(now) {
			continue
		}
		req.UpdatedAt = now.UTC()
		if err := s.repo.UpdateRequest(ctx, req); err != nil {
			// Another actor already touched it; the next sweep settles it.
			if errors.Is(err, ErrStaleRequest) {
				continue
			}
			return swept, err
		}
		swept++
		if w, err := s.repo.GetWallet(ctx, req.WalletID); err == nil {
			s.notify(ctx, notification.KindApprovalExpired, w.OwnerID,
				fmt.Sprintf("Request %s expired before reaching quorum", req.ID))
		}
	}
	return swept, nil
}

// loadLive fetches a request and its wallet, persisting the expired status
// when the request is past its deadline.
func (s *Service) loadLive(ctx context.Context, requestID string) (Request, EnterpriseWallet, error) {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return Request{}, EnterpriseWallet{}, err
	}
	w, err := s.repo.GetWallet(ctx, req.WalletID)
	if err != nil {
		return Request{}, EnterpriseWallet{}, err
	}
	if req.MarkExpired(s.now()) {
		req.UpdatedAt = s.now().UTC()
		// A stale write here means someone else already persisted a newer
		// state; the deadline has passed either way.
		if err := s.repo.UpdateRequest(ctx, req); err != nil && !errors.Is(err, ErrStaleRequest) {
			return Request{}, EnterpriseWallet{}, err
		}
		return Request{}, EnterpriseWallet{}, ErrExpired
	}
	return req, w, nil
}

func (s *Service) notify(ctx context.Context, kind, destination, body string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{Kind: kind, Destination: destination, Body: body})
}
