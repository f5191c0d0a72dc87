package approval

import "errors"

var (
	// ErrWalletNotFound indicates no enterprise wallet exists for the key.
	ErrWalletNotFound = errors.New("enterprise wallet not found")

	// ErrWalletExists indicates the (owner, wallet_name) slot is taken.
	ErrWalletExists = errors.New("enterprise wallet already exists")

	// ErrRequestNotFound indicates no approval request exists for the id.
	ErrRequestNotFound = errors.New("approval request not found")

	// ErrDuplicateReference indicates the transaction reference is already in
	// use by another request.
	ErrDuplicateReference = errors.New("transaction reference already used")

	// ErrExpired occurs when touching a request past its expiry.
	ErrExpired = errors.New("approval request has expired")

	// ErrAlreadyDecided occurs when touching a request in a terminal state or
	// executing one that is not approved.
	ErrAlreadyDecided = errors.New("approval request already decided")

	// ErrAlreadySigned occurs when a signer votes twice on the same request.
	ErrAlreadySigned = errors.New("signer has already voted on this request")

	// ErrQuorumImpossible indicates a signer policy under which the approval
	// quorum can never be reached.
	ErrQuorumImpossible = errors.New("approval quorum cannot be reached")

	// ErrNotAuthorizedSigner occurs when the address is not in the wallet's
	// signer set.
	ErrNotAuthorizedSigner = errors.New("address is not an authorized signer")

	// ErrUnsupportedChain occurs when the request targets a chain the wallet
	// does not support.
	ErrUnsupportedChain = errors.New("chain not supported by this wallet")

	// ErrStaleRequest occurs when a write loses the version check because
	// another signer updated the request first. The caller should re-read and
	// retry.
	ErrStaleRequest = errors.New("approval request was modified concurrently")
)
