package approval

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Request statuses. executed, failed, rejected and expired are terminal.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusExecuted = "executed"
	StatusFailed   = "failed"
	StatusExpired  = "expired"
)

// Transaction types carried by approval requests.
const (
	TxTypeTransfer = "transfer"
	TxTypeWithdraw = "withdraw"
)

// Request tracks one multi-signature approval. RequiredApprovals is frozen
// from the wallet at creation time; later signer-policy changes do not affect
// open requests. State transitions are guarded by current-state checks so the
// mutating methods are no-ops (returning false) on anything illegal.
type Request struct {
	ID                   string          `json:"id"`
	WalletID             string          `json:"wallet_id"`
	TransactionReference string          `json:"transaction_reference"`
	TransactionHash      string          `json:"transaction_hash,omitempty"`
	TransactionType      string          `json:"transaction_type"`
	Amount               decimal.Decimal `json:"amount"`
	CurrencyCode         string          `json:"currency_code"`
	ChainID              string          `json:"chain_id"`
	ToAddress            string          `json:"to_address,omitempty"`
	RequiredApprovals    int             `json:"required_approvals"`
	ApprovedBy           []string        `json:"approved_by"`
	RejectedBy           []string        `json:"rejected_by"`
	Status               string          `json:"status"`
	Description          string          `json:"description,omitempty"`
	ExecutedAt           *time.Time      `json:"executed_at,omitempty"`
	ExpiresAt            time.Time       `json:"expires_at"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`

	// Version backs the optimistic write check in the repositories so two
	// signers voting at once cannot overwrite each other.
	Version int64 `json:"-"`
}

// IsExpired reports whether the expiry has passed.
func (r *Request) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// ThresholdMet reports whether enough signers approved.
func (r *Request) ThresholdMet() bool {
	return len(r.ApprovedBy) >= r.RequiredApprovals
}

// HasApproved reports whether the signer already approved.
func (r *Request) HasApproved(signer string) bool {
	return containsFold(r.ApprovedBy, signer)
}

// HasRejected reports whether the signer already rejected.
func (r *Request) HasRejected(signer string) bool {
	return containsFold(r.RejectedBy, signer)
}

// AddApproval records one signer approval. When the quorum is met the request
// transitions to approved.
func (r *Request) AddApproval(signer string, now time.Time) bool {
	if r.Status != StatusPending || r.IsExpired(now) {
		return false
	}
	if r.HasApproved(signer) {
		return false
	}
	r.ApprovedBy = append(r.ApprovedBy, signer)
	if r.ThresholdMet() {
		r.Status = StatusApproved
	}
	return true
}

// AddRejection records one signer rejection. The request flips to rejected as
// soon as the approval quorum becomes mathematically impossible: fewer than
// RequiredApprovals signers remain who have not rejected.
func (r *Request) AddRejection(signer string, totalSigners int, now time.Time) bool {
	if r.Status != StatusPending || r.IsExpired(now) {
		return false
	}
	if r.HasRejected(signer) {
		return false
	}
	r.RejectedBy = append(r.RejectedBy, signer)
	if totalSigners-len(r.RejectedBy) < r.RequiredApprovals {
		r.Status = StatusRejected
	}
	return true
}

// MarkExecuted transitions approved -> executed, stamping the execution time
// and the optional chain transaction hash.
func (r *Request) MarkExecuted(txHash string, now time.Time) bool {
	if r.Status != StatusApproved {
		return false
	}
	r.Status = StatusExecuted
	r.ExecutedAt = &now
	if txHash != "" {
		r.TransactionHash = txHash
	}
	return true
}

// MarkFailed transitions approved -> failed after an execution error.
func (r *Request) MarkFailed() bool {
	if r.Status != StatusApproved {
		return false
	}
	r.Status = StatusFailed
	return true
}

// MarkExpired transitions a pending request past its expiry to expired.
func (r *Request) MarkExpired(now time.Time) bool {
	if r.Status != StatusPending || !r.IsExpired(now) {
		return false
	}
	r.Status = StatusExpired
	return true
}

func containsFold(list []string, value string) bool {
	for _, v := range list {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}
