package approval

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// balanceEpsilon guards float-derived balances during comparisons, matching
// the platform's historical tolerance of 1e-8.
var balanceEpsilon = decimal.New(1, -8)

// EnterpriseWallet is the multi-signature treasury variant: balances are kept
// per chain per currency and mutate only through approved transactions.
type EnterpriseWallet struct {
	ID                 string   `json:"id"`
	OwnerID            string   `json:"owner_id"`
	WalletName         string   `json:"wallet_name"`
	SupportedChains    []string `json:"supported_chains"`
	PrimaryChainID     string   `json:"primary_chain_id"`
	RequiredSignatures int      `json:"required_signatures"`
	TotalSigners       int      `json:"total_signers"`
	SignerAddresses    []string `json:"signer_addresses"`
	// Balances maps chain id -> currency code -> amount.
	Balances       map[string]map[string]decimal.Decimal `json:"balances"`
	Status         string                                `json:"status"`
	LastActivityAt time.Time                             `json:"last_activity_at"`
	CreatedAt      time.Time                             `json:"created_at"`
	UpdatedAt      time.Time                             `json:"updated_at"`
}

// Active reports whether the wallet accepts new approval requests.
func (w *EnterpriseWallet) Active() bool {
	return w.Status == "active"
}

// Balance returns the balance for a currency on a chain. An empty chain id
// falls back to the primary chain.
func (w *EnterpriseWallet) Balance(currencyCode, chainID string) decimal.Decimal {
	if chainID == "" {
		chainID = w.PrimaryChainID
	}
	chain, ok := w.Balances[chainID]
	if !ok {
		return decimal.Zero
	}
	return chain[currencyCode]
}

// SetBalance overwrites the balance for a currency on a chain.
func (w *EnterpriseWallet) SetBalance(currencyCode, chainID string, amount decimal.Decimal) {
	if chainID == "" {
		chainID = w.PrimaryChainID
	}
	if w.Balances == nil {
		w.Balances = make(map[string]map[string]decimal.Decimal)
	}
	if w.Balances[chainID] == nil {
		w.Balances[chainID] = make(map[string]decimal.Decimal)
	}
	w.Balances[chainID][currencyCode] = amount
}

// AddFunds credits a chain balance.
func (w *EnterpriseWallet) AddFunds(currencyCode, chainID string, amount decimal.Decimal) {
	w.SetBalance(currencyCode, chainID, w.Balance(currencyCode, chainID).Add(amount))
}

// DeductFunds debits a chain balance, tolerating the epsilon. It reports
// false when the balance cannot cover the amount.
func (w *EnterpriseWallet) DeductFunds(currencyCode, chainID string, amount decimal.Decimal) bool {
	current := w.Balance(currencyCode, chainID)
	if current.Add(balanceEpsilon).LessThan(amount) {
		return false
	}
	w.SetBalance(currencyCode, chainID, current.Sub(amount))
	return true
}

// IsAuthorizedSigner matches addresses case-insensitively.
func (w *EnterpriseWallet) IsAuthorizedSigner(address string) bool {
	for _, s := range w.SignerAddresses {
		if strings.EqualFold(s, address) {
			return true
		}
	}
	return false
}

// SupportsChain reports whether the wallet operates on the chain.
func (w *EnterpriseWallet) SupportsChain(chainID string) bool {
	for _, c := range w.SupportedChains {
		if c == chainID {
			return true
		}
	}
	return false
}
