package engine

import (
	"errors"
	"fmt"
)

// Validation errors. The caller can recover by correcting its input; no state
// was mutated.
var (
	ErrReplayedNonce       = errors.New("engine: claimed nonce does not match account nonce")
	ErrInvalidProof        = errors.New("engine: membership proof rejected")
	ErrInsufficientBalance = errors.New("engine: insufficient balance")
	ErrNotChallengeable    = errors.New("engine: withdrawal is not challengeable")
	ErrInvalidEvidence     = errors.New("engine: fraud evidence rejected")
	ErrNonPositiveAmount   = errors.New("engine: amount must be positive")
)

// State-conflict errors. The operation does not apply to the withdrawal's
// current lifecycle state; the caller should re-query.
var (
	ErrChallengeWindowOpen = errors.New("engine: challenge window still open")
	ErrAlreadyFinalized    = errors.New("engine: withdrawal already finalized")
	ErrWithdrawalReverted  = errors.New("engine: withdrawal was reverted")

	// ErrAlreadyReverted is the not-challengeable case where a fraud proof
	// targets a withdrawal that was already reverted; it matches
	// ErrNotChallengeable under errors.Is.
	ErrAlreadyReverted = fmt.Errorf("%w: already reverted", ErrNotChallengeable)
)

// Resource errors. DailyLimitExceeded clears when the volume bucket rolls
// over; Reentrant indicates a bug or an attack and must never be retried
// blindly.
var (
	ErrDailyLimitExceeded = errors.New("engine: daily release limit exceeded")
	ErrReentrant          = errors.New("engine: reentrant call rejected")
)

// Lookup errors.
var (
	ErrUnknownWithdrawal = errors.New("engine: withdrawal not found")
	ErrUnknownCommitment = errors.New("engine: commitment not found")
)
