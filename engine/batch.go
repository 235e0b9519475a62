package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BatchWithdraw applies a list of withdrawal requests all-or-nothing. The
// aggregate amount per account is checked against that account's balance
// before anything is validated, and every request is fully validated before
// any is applied: if one request fails, post-state equals pre-state exactly.
//
// Nonces within a batch must be consecutive per account, continuing from the
// account's current nonce in request order.
func (e *Engine) BatchWithdraw(reqs []WithdrawalRequest) ([]*Withdrawal, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Aggregate pre-check: the whole batch is rejected before any per-request
	// validation if an account cannot cover its total.
	totals := make(map[common.Address]*big.Int)
	for _, req := range reqs {
		if req.Amount == nil || req.Amount.Sign() <= 0 {
			return nil, ErrNonPositiveAmount
		}
		total, ok := totals[req.Account]
		if !ok {
			total = new(big.Int)
			totals[req.Account] = total
		}
		total.Add(total, req.Amount)
	}
	for addr, total := range totals {
		if e.ledger.get(addr).balance.Cmp(total) < 0 {
			return nil, ErrInsufficientBalance
		}
	}

	// Stage: validate every request against the pre-state plus the batch's
	// own nonce progression. No ledger mutation happens in this loop.
	expected := make(map[common.Address]uint64)
	for addr := range totals {
		expected[addr] = e.ledger.get(addr).nonce
	}
	for _, req := range reqs {
		if req.Nonce != expected[req.Account] {
			return nil, ErrReplayedNonce
		}
		root, ok := e.commitments[req.CommitmentSeq]
		if !ok {
			return nil, ErrInvalidProof
		}
		if !e.verifier.Verify(root, req.leaf(), req.Proof) {
			return nil, ErrInvalidProof
		}
		expected[req.Account]++
	}

	// Apply: every request already validated, so acceptWithdrawal cannot
	// fail here other than by programming error, which must not leave a
	// half-applied batch.
	withdrawals := make([]*Withdrawal, 0, len(reqs))
	for _, req := range reqs {
		w, err := e.acceptWithdrawal(req)
		if err != nil {
			// Unreachable after staging; surface loudly if it ever happens.
			e.logger.Error("batch apply failed after validation",
				"account", req.Account.Hex(),
				"nonce", req.Nonce,
				"error", err)
			return nil, err
		}
		withdrawals = append(withdrawals, w.clone())
	}

	e.logger.Info("batch withdrawal applied", "requests", len(reqs))
	return withdrawals, nil
}
