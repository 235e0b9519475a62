package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/ll-withdrawal-engine/merkle"
)

// EvidenceKind tags the fraud-proof variants. Keeping the evidence a closed
// set of variants rather than an open blob makes validation exhaustive and
// testable per variant.
type EvidenceKind string

const (
	// EvidenceNonInclusion proves the withdrawal's claimed leaf was never
	// committed: it exhibits the leaf actually occupying the claimed slot of
	// the referenced commitment.
	EvidenceNonInclusion EvidenceKind = "NON_INCLUSION"

	// EvidenceConflictingNonce proves the same (account, nonce) pair backs a
	// different committed withdrawal, i.e. the requester authorized two
	// spends of one nonce.
	EvidenceConflictingNonce EvidenceKind = "CONFLICTING_NONCE"
)

// Evidence is a fraud proof against a challengeable withdrawal.
type Evidence struct {
	Kind       EvidenceKind   `json:"kind"`
	Challenger common.Address `json:"challenger"`

	// Leaf is the committed leaf the challenger exhibits: for non-inclusion,
	// the true occupant of the disputed slot; for a conflicting nonce, the
	// other spend of the same nonce.
	Leaf merkle.Leaf `json:"leaf"`

	// Proof binds Leaf to a commitment root.
	Proof merkle.Proof `json:"proof"`

	// CommitmentSeq is the commitment Proof verifies against. Non-inclusion
	// evidence must reference the withdrawal's own commitment; conflicting
	// nonce evidence may reference any published commitment.
	CommitmentSeq uint64 `json:"commitment_seq"`
}

// validateEvidence checks evidence against a challengeable withdrawal.
// It returns whether the evidence proves malicious intent (and therefore
// draws a penalty) or an error describing why the evidence was rejected.
// Pure with respect to engine state: callers pass the resolved root.
func validateEvidence(v merkle.Verifier, w *Withdrawal, root common.Hash, ev Evidence) (penalty bool, err error) {
	requested := merkle.Leaf{Account: w.Account, Amount: w.Amount, Nonce: w.Nonce}

	switch ev.Kind {
	case EvidenceNonInclusion:
		// Must dispute the exact slot the withdrawal claimed.
		if ev.CommitmentSeq != w.CommitmentSeq || ev.Proof.Index != w.ProofIndex {
			return false, ErrInvalidEvidence
		}
		if ev.Leaf.Equal(requested) {
			return false, ErrInvalidEvidence
		}
		if !v.Verify(root, ev.Leaf, ev.Proof) {
			return false, ErrInvalidEvidence
		}
		return false, nil

	case EvidenceConflictingNonce:
		if ev.Leaf.Account != w.Account || ev.Leaf.Nonce != w.Nonce {
			return false, ErrInvalidEvidence
		}
		if ev.Leaf.Equal(requested) {
			return false, ErrInvalidEvidence
		}
		if !v.Verify(root, ev.Leaf, ev.Proof) {
			return false, ErrInvalidEvidence
		}
		// Two committed spends of one nonce cannot happen by accident.
		return true, nil

	default:
		return false, ErrInvalidEvidence
	}
}
