package engine

import (
	"encoding/binary"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lightlink-network/ll-withdrawal-engine/merkle"
	"github.com/lightlink-network/ll-withdrawal-engine/types"
)

// WithdrawalRequest is the caller-supplied authorization to move value back
// to the primary ledger.
type WithdrawalRequest struct {
	Account       common.Address `json:"account"`
	Amount        *big.Int       `json:"amount"`
	Nonce         uint64         `json:"nonce"`
	CommitmentSeq uint64         `json:"commitment_seq"`
	Proof         merkle.Proof   `json:"proof"`
}

func (r WithdrawalRequest) leaf() merkle.Leaf {
	return merkle.Leaf{Account: r.Account, Amount: r.Amount, Nonce: r.Nonce}
}

// Withdrawal is the engine's record of an accepted request. Records are never
// deleted; terminal withdrawals remain as immutable audit entries.
type Withdrawal struct {
	ID             uint64                 `json:"id"`
	Hash           common.Hash            `json:"hash"`
	Account        common.Address         `json:"account"`
	Amount         *big.Int               `json:"amount"`
	Nonce          uint64                 `json:"nonce"`
	CommitmentSeq  uint64                 `json:"commitment_seq"`
	ProofIndex     uint64                 `json:"proof_index"`
	Status         types.WithdrawalStatus `json:"status"`
	CreatedAt      time.Time              `json:"created_at"`
	Deadline       time.Time              `json:"deadline"`
	FinalizedAt    *time.Time             `json:"finalized_at,omitempty"`
	RevertedAt     *time.Time             `json:"reverted_at,omitempty"`
	Challenger     *common.Address        `json:"challenger,omitempty"`
	PenaltyApplied *big.Int               `json:"penalty_applied,omitempty"`
}

// withdrawalHash derives the stable audit key for an accepted withdrawal,
// binding id, account, amount, nonce and the referenced commitment.
func withdrawalHash(id uint64, account common.Address, amount *big.Int, nonce, commitmentSeq uint64) common.Hash {
	var idBuf, nonceBuf, seqBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], id)
	binary.BigEndian.PutUint64(nonceBuf[:], nonce)
	binary.BigEndian.PutUint64(seqBuf[:], commitmentSeq)

	var amountBuf [32]byte
	amount.FillBytes(amountBuf[:])

	return crypto.Keccak256Hash(idBuf[:], account.Bytes(), amountBuf[:], nonceBuf[:], seqBuf[:])
}

// finalizable reports whether the withdrawal may transition to Finalized at
// the given instant. Eligibility is a pure function of (now, deadline,
// status); no timer ever fires a transition.
func (w *Withdrawal) finalizable(now time.Time) error {
	switch w.Status {
	case types.Reverted:
		return ErrWithdrawalReverted
	case types.Finalized:
		return ErrAlreadyFinalized
	}
	if now.Before(w.Deadline) {
		return ErrChallengeWindowOpen
	}
	return nil
}

// challengeable reports whether a fraud proof may still be submitted at the
// given instant.
func (w *Withdrawal) challengeable(now time.Time) error {
	if w.Status == types.Reverted {
		return ErrAlreadyReverted
	}
	if w.Status != types.Challengeable || !now.Before(w.Deadline) {
		return ErrNotChallengeable
	}
	return nil
}

// clone returns a copy safe to hand to callers after the engine mutex is
// released.
func (w *Withdrawal) clone() *Withdrawal {
	cp := *w
	cp.Amount = new(big.Int).Set(w.Amount)
	if w.FinalizedAt != nil {
		t := *w.FinalizedAt
		cp.FinalizedAt = &t
	}
	if w.RevertedAt != nil {
		t := *w.RevertedAt
		cp.RevertedAt = &t
	}
	if w.Challenger != nil {
		a := *w.Challenger
		cp.Challenger = &a
	}
	if w.PenaltyApplied != nil {
		cp.PenaltyApplied = new(big.Int).Set(w.PenaltyApplied)
	}
	return &cp
}
