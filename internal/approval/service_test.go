package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chibank/wallet-core/internal/wallet"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T) (*Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(NewMemoryRepository(), nil, clock.Now, DefaultTTL)
	return svc, clock
}

func newFundedWallet(t *testing.T, svc *Service, required int, signers []string) EnterpriseWallet {
	t.Helper()
	ctx := context.Background()
	w, err := svc.CreateWallet(ctx, CreateWalletInput{
		OwnerID:            "ent-1",
		WalletName:         "treasury",
		SupportedChains:    []string{"ethereum", "polygon"},
		PrimaryChainID:     "ethereum",
		RequiredSignatures: required,
		SignerAddresses:    signers,
	})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	w, err = svc.FundWallet(ctx, w.ID, "USDT", "ethereum", decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("fund wallet: %v", err)
	}
	return w
}

func TestCreateWalletRejectsImpossibleQuorum(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateWallet(context.Background(), CreateWalletInput{
		OwnerID:            "ent-1",
		WalletName:         "treasury",
		SupportedChains:    []string{"ethereum"},
		RequiredSignatures: 4,
		SignerAddresses:    []string{"0xa", "0xb", "0xc"},
	})
	if !errors.Is(err, ErrQuorumImpossible) {
		t.Fatalf("expected ErrQuorumImpossible, got %v", err)
	}
}

func TestQuorumApproval(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w := newFundedWallet(t, svc, 2, []string{"0xa", "0xb", "0xc"})

	req, err := svc.RequestApproval(ctx, RequestInput{
		WalletID:        w.ID,
		RequesterSigner: "0xa",
		Amount:          decimal.NewFromInt(100),
		CurrencyCode:    "USDT",
		ToAddress:       "0xdead",
	})
	if err != nil {
		t.Fatalf("request approval: %v", err)
	}
	if req.Status != StatusPending {
		t.Fatalf("expected pending, got %s", req.Status)
	}
	if req.RequiredApprovals != 2 {
		t.Fatalf("expected frozen quorum 2, got %d", req.RequiredApprovals)
	}

	req, err = svc.Approve(ctx, req.ID, "0xa")
	if err != nil {
		t.Fatalf("first approval: %v", err)
	}
	if req.Status != StatusPending {
		t.Fatalf("one of two approvals should keep status pending, got %s", req.Status)
	}

	req, err = svc.Approve(ctx, req.ID, "0xB")
	if err != nil {
		t.Fatalf("second approval: %v", err)
	}
	if req.Status != StatusApproved {
		t.Fatalf("expected approved after quorum, got %s", req.Status)
	}
}

func TestDuplicateSignerVote(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w := newFundedWallet(t, svc, 2, []string{"0xa", "0xb", "0xc"})

	req, err := svc.RequestApproval(ctx, RequestInput{
		WalletID:        w.ID,
		RequesterSigner: "0xa",
		Amount:          decimal.NewFromInt(50),
		CurrencyCode:    "USDT",
	})
	if err != nil {
		t.Fatalf("request approval: %v", err)
	}
	if _, err := svc.Approve(ctx, req.ID, "0xa"); err != nil {
		t.Fatalf("first approval: %v", err)
	}
	if _, err := svc.Approve(ctx, req.ID, "0xA"); !errors.Is(err, ErrAlreadySigned) {
		t.Fatalf("expected ErrAlreadySigned on duplicate vote, got %v", err)
	}
	if _, err := svc.Reject(ctx, req.ID, "0xa"); !errors.Is(err, ErrAlreadySigned) {
		t.Fatalf("expected ErrAlreadySigned when flipping a vote, got %v", err)
	}
}

func TestRejectionFlipsWhenQuorumImpossible(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	// 3 signers, 3 required: a single rejection makes approval impossible.
	w := newFundedWallet(t, svc, 3, []string{"0xa", "0xb", "0xc"})

	req, err := svc.RequestApproval(ctx, RequestInput{
		WalletID:        w.ID,
		RequesterSigner: "0xa",
		Amount:          decimal.NewFromInt(10),
		CurrencyCode:    "USDT",
	})
	if err != nil {
		t.Fatalf("request approval: %v", err)
	}
	req, err = svc.Reject(ctx, req.ID, "0xb")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if req.Status != StatusRejected {
		t.Fatalf("expected rejected after quorum became impossible, got %s", req.Status)
	}
	if _, err := svc.Approve(ctx, req.ID, "0xa"); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided on rejected request, got %v", err)
	}
}

func TestRejectionBelowFlipKeepsPending(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	// 3 signers, 2 required: one rejection still leaves 2 possible approvals.
	w := newFundedWallet(t, svc, 2, []string{"0xa", "0xb", "0xc"})

	req, err := svc.RequestApproval(ctx, RequestInput{
		WalletID:        w.ID,
		RequesterSigner: "0xa",
		Amount:          decimal.NewFromInt(10),
		CurrencyCode:    "USDT",
	})
	if err != nil {
		t.Fatalf("request approval: %v", err)
	}
	req, err = svc.Reject(ctx, req.ID, "0xb")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if req.Status != StatusPending {
		t.Fatalf("one rejection of three signers should keep pending, got %s", req.Status)
	}
}

func TestExpiredRequestIsImmutable(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	w := newFundedWallet(t, svc, 2, []string{"0xa", "0xb"})

	req, err := svc.RequestApproval(ctx, RequestInput{
		WalletID:        w.ID,
		RequesterSigner: "0xa",
		Amount:          decimal.NewFromInt(10),
		CurrencyCode:    "USDT",
	})
	if err != nil {
		t.Fatalf("request approval: %v", err)
	}

	clock.Advance(DefaultTTL + time.Minute)

	if _, err := svc.Approve(ctx, req.ID, "0xa"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	got, err := svc.GetRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if got.Status != StatusExpired {
		t.Fatalf("expired status should persist on touch, got %s", got.Status)
	}
	if _, err := svc.Reject(ctx, req.ID, "0xb"); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided on expired request, got %v", err)
	}
}

func TestExecuteMovesChainBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w := newFundedWallet(t, svc, 1, []string{"0xa", "0xb"})

	req, err := svc.RequestApproval(ctx, RequestInput{
		WalletID:        w.ID,
		RequesterSigner: "0xa",
		Amount:          decimal.NewFromInt(400),
		CurrencyCode:    "USDT",
		ChainID:         "ethereum",
	})
	if err != nil {
		t.Fatalf("request approval: %v", err)
	}

	// Execution requires the approved status first.
	if _, err := svc.Execute(ctx, req.ID, "0xhash"); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided executing a pending request, got %v", err)
	}

	if _, err := svc.Approve(ctx, req.ID, "0xa"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	req, err = svc.Execute(ctx, req.ID, "0xhash")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if req.Status != StatusExecuted {
		t.Fatalf("expected executed, got %s", req.Status)
	}
	if req.ExecutedAt == nil || req.TransactionHash != "0xhash" {
		t.Fatalf("expected execution stamp and hash, got %+v", req)
	}

	got, err := svc.GetWallet(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if want := decimal.NewFromInt(600); !got.Balance("USDT", "ethereum").Equal(want) {
		t.Fatalf("expected balance %s, got %s", want, got.Balance("USDT", "ethereum"))
	}

	if _, err := svc.Execute(ctx, req.ID, ""); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided on re-execution, got %v", err)
	}
}

func TestExecuteInsufficientBalanceFails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w := newFundedWallet(t, svc, 1, []string{"0xa"})

	first, err := svc.RequestApproval(ctx, RequestInput{
		WalletID:        w.ID,
		RequesterSigner: "0xa",
		Amount:          decimal.NewFromInt(900),
		CurrencyCode:    "USDT",
	})
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	second, err := svc.RequestApproval(ctx, RequestInput{
		WalletID:        w.ID,
		RequesterSigner: "0xa",
		Amount:          decimal.NewFromInt(900),
		CurrencyCode:    "USDT",
	})
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if _, err := svc.Approve(ctx, first.ID, "0xa"); err != nil {
		t.Fatalf("approve first: %v", err)
	}
	if _, err := svc.Approve(ctx, second.ID, "0xa"); err != nil {
		t.Fatalf("approve second: %v", err)
	}
	if _, err := svc.Execute(ctx, first.ID, ""); err != nil {
		t.Fatalf("execute first: %v", err)
	}
	if _, err := svc.Execute(ctx, second.ID, ""); !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	got, err := svc.GetRequest(ctx, second.ID)
	if err != nil {
		t.Fatalf("get second: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("expected failed after short execution, got %s", got.Status)
	}
}

func TestRequestValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w := newFundedWallet(t, svc, 2, []string{"0xa", "0xb", "0xc"})

	if _, err := svc.RequestApproval(ctx, RequestInput{
		WalletID:        w.ID,
		RequesterSigner: "0xintruder",
		Amount:          decimal.NewFromInt(1),
		CurrencyCode:    "USDT",
	}); !errors.Is(err, ErrNotAuthorizedSigner) {
		t.Fatalf("expected ErrNotAuthorizedSigner, got %v", err)
	}

	if _, err := svc.RequestApproval(ctx, RequestInput{
		WalletID:        w.ID,
		RequesterSigner: "0xa",
		Amount:          decimal.NewFromInt(-5),
		CurrencyCode:    "USDT",
	}); !errors.Is(err, wallet.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	if _, err := svc.RequestApproval(ctx, RequestInput{
		WalletID:        w.ID,
		RequesterSigner: "0xa",
		Amount:          decimal.NewFromInt(1),
		CurrencyCode:    "USDT",
		ChainID:         "solana",
	}); !errors.Is(err, ErrUnsupportedChain) {
		t.Fatalf("expected ErrUnsupportedChain, got %v", err)
	}

	if _, err := svc.RequestApproval(ctx, RequestInput{
		WalletID:        w.ID,
		RequesterSigner: "0xa",
		Amount:          decimal.NewFromInt(5000),
		CurrencyCode:    "USDT",
	}); !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestSweepExpiredIsIdempotent(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	w := newFundedWallet(t, svc, 2, []string{"0xa", "0xb"})

	for i := 0; i < 3; i++ {
		if _, err := svc.RequestApproval(ctx, RequestInput{
			WalletID:        w.ID,
			RequesterSigner: "0xa",
			Amount:          decimal.NewFromInt(1),
			CurrencyCode:    "USDT",
		}); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}

	clock.Advance(DefaultTTL + time.Hour)

	swept, err := svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 3 {
		t.Fatalf("expected 3 swept, got %d", swept)
	}

	swept, err = svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if swept != 0 {
		t.Fatalf("second sweep should be a no-op, got %d", swept)
	}

	reqs, err := svc.ListRequests(ctx, w.ID, StatusExpired)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reqs) != 3 {
		t.Fatalf("expected 3 expired requests, got %d", len(reqs))
	}
}

func TestStaleVoteWriteCannotEraseRecordedVote(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	repo := NewMemoryRepository()
	svc := NewService(repo, nil, clock.Now, DefaultTTL)
	ctx := context.Background()
	w := newFundedWallet(t, svc, 2, []string{"0xa", "0xb", "0xc"})

	req, err := svc.RequestApproval(ctx, RequestInput{
		WalletID:        w.ID,
		RequesterSigner: "0xa",
		Amount:          decimal.NewFromInt(100),
		CurrencyCode:    "USDT",
		ToAddress:       "0xdead",
	})
	if err != nil {
		t.Fatalf("request approval: %v", err)
	}

	// Two signers race: both read the fresh request, one vote lands first.
	stale, err := repo.GetRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("read request: %v", err)
	}
	if _, err := svc.Approve(ctx, req.ID, "0xa"); err != nil {
		t.Fatalf("first vote: %v", err)
	}

	stale.ApprovedBy = append(stale.ApprovedBy, "0xb")
	if err := repo.UpdateRequest(ctx, stale); !errors.Is(err, ErrStaleRequest) {
		t.Fatalf("expected ErrStaleRequest, got %v", err)
	}

	// The losing writer retries through the service and both votes survive.
	final, err := svc.Approve(ctx, req.ID, "0xb")
	if err != nil {
		t.Fatalf("retried vote: %v", err)
	}
	if len(final.ApprovedBy) != 2 || !final.HasApproved("0xa") || !final.HasApproved("0xb") {
		t.Fatalf("votes lost, approved by %v", final.ApprovedBy)
	}
	if final.Status != StatusApproved {
		t.Fatalf("expected approved after quorum, got %s", final.Status)
	}
}
