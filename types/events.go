package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind identifies the ledger events collaborators may consume.
type EventKind string

const (
	EventDeposited           EventKind = "DEPOSITED"
	EventWithdrawalRequested EventKind = "WITHDRAWAL_REQUESTED"
	EventWithdrawalReverted  EventKind = "WITHDRAWAL_REVERTED"
	EventWithdrawalFinalized EventKind = "WITHDRAWAL_FINALIZED"
	EventCommitmentPublished EventKind = "COMMITMENT_PUBLISHED"
)

// Event is a single entry in the engine's append-only event feed. Monitoring,
// reporting and the recorder consume events; none of them mutate ledger state.
// Sequence is strictly increasing per engine instance, but the feed drops
// events rather than block ledger operations when its buffer is full, so a
// slow consumer can observe sequence gaps.
type Event struct {
	Sequence uint64    `json:"sequence"`
	Kind     EventKind `json:"kind"`
	Time     time.Time `json:"time"`

	Account common.Address `json:"account,omitempty"`
	Amount  *big.Int       `json:"amount,omitempty"`

	// Withdrawal fields, set for the WITHDRAWAL_* kinds.
	WithdrawalID   uint64      `json:"withdrawal_id,omitempty"`
	WithdrawalHash common.Hash `json:"withdrawal_hash,omitempty"`
	Nonce          uint64      `json:"nonce,omitempty"`
	Deadline       time.Time   `json:"deadline,omitempty"`

	// Commitment fields, set for COMMITMENT_PUBLISHED and WITHDRAWAL_REQUESTED.
	CommitmentSeq  uint64      `json:"commitment_seq,omitempty"`
	CommitmentRoot common.Hash `json:"commitment_root,omitempty"`
}
