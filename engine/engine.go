// Package engine implements the withdrawal protocol core: the balance
// ledger and nonce registry, the withdrawal state machine with its challenge
// window, fraud-proof handling, reentrancy-guarded value release, atomic
// batch withdrawal, and the daily volume circuit breaker.
//
// Every public operation is atomic-or-failed: it either completes fully under
// the engine mutex or returns a specific error with no state mutated. The one
// external effect, the value release, happens strictly after all state
// mutations and inside the reentrancy guard.
package engine

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/ll-withdrawal-engine/merkle"
	"github.com/lightlink-network/ll-withdrawal-engine/types"
)

const globalGuardKey = "__global__"

// Releaser performs the external value release on the primary ledger once a
// withdrawal finalizes. Implementations may call back into the engine; any
// guarded operation on the same key will fail with ErrReentrant.
type Releaser interface {
	Release(account common.Address, amount *big.Int) error
}

// ReleaserFunc adapts a function to the Releaser interface.
type ReleaserFunc func(account common.Address, amount *big.Int) error

func (f ReleaserFunc) Release(account common.Address, amount *big.Int) error {
	return f(account, amount)
}

type EngineOpts struct {
	// ChallengePeriod is the window during which a fraud proof can revert an
	// accepted withdrawal. It must be set well above clock drift and
	// commitment publication latency.
	ChallengePeriod time.Duration

	// InstantThreshold exempts withdrawals strictly below it from the
	// challenge window. Zero or nil means every withdrawal waits the full
	// period.
	InstantThreshold *big.Int

	// DailyLimit caps finalized volume per UTC day. Zero or nil disables the
	// circuit breaker.
	DailyLimit *big.Int

	// PenaltyBps is the fraction of the withdrawal amount, in basis points,
	// debited from a requester proven malicious. Capped at 10000.
	PenaltyBps uint64

	// GlobalGuard serializes all releases under one key instead of
	// per-account keys.
	GlobalGuard bool

	// EventBuffer sizes the event feed channel. Defaults to 1024.
	EventBuffer int

	Verifier merkle.Verifier
	Releaser Releaser
	Logger   *slog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Engine owns all mutable protocol state. Components outside this package
// interact with balances and withdrawals exclusively through its methods.
type Engine struct {
	mu   sync.Mutex
	opts EngineOpts

	ledger      *ledger
	withdrawals map[uint64]*Withdrawal
	byHash      map[common.Hash]uint64
	nextID      uint64

	commitments   map[uint64]common.Hash
	commitmentSeq uint64

	guard   *guard
	breaker *breaker

	verifier merkle.Verifier
	releaser Releaser
	logger   *slog.Logger
	now      func() time.Time

	events   chan types.Event
	eventSeq uint64
}

func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.ChallengePeriod <= 0 {
		return nil, fmt.Errorf("engine: challenge period must be positive, got %s", opts.ChallengePeriod)
	}
	if opts.Verifier == nil {
		opts.Verifier = merkle.KeccakVerifier{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 1024
	}
	if opts.PenaltyBps > 10_000 {
		return nil, fmt.Errorf("engine: penalty %d bps exceeds 10000", opts.PenaltyBps)
	}

	return &Engine{
		opts:        opts,
		ledger:      newLedger(),
		withdrawals: make(map[uint64]*Withdrawal),
		byHash:      make(map[common.Hash]uint64),
		commitments: make(map[uint64]common.Hash),
		guard:       newGuard(),
		breaker:     newBreaker(opts.DailyLimit),
		verifier:    opts.Verifier,
		releaser:    opts.Releaser,
		logger:      opts.Logger,
		now:         opts.Now,
		events:      make(chan types.Event, opts.EventBuffer),
	}, nil
}

// Events returns the engine's append-only event feed. Collaborators consume
// events; they never mutate ledger state.
func (e *Engine) Events() <-chan types.Event {
	return e.events
}

// PublishCommitment stores a new state commitment root under the next
// sequence number. Commitments are immutable once published.
func (e *Engine) PublishCommitment(root common.Hash) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.commitmentSeq++
	seq := e.commitmentSeq
	e.commitments[seq] = root

	e.emit(types.Event{
		Kind:           types.EventCommitmentPublished,
		CommitmentSeq:  seq,
		CommitmentRoot: root,
	})
	e.logger.Info("commitment published", "seq", seq, "root", root.Hex())
	return seq
}

// Commitment returns the root published at the given sequence number.
func (e *Engine) Commitment(seq uint64) (common.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	root, ok := e.commitments[seq]
	if !ok {
		return common.Hash{}, ErrUnknownCommitment
	}
	return root, nil
}

// Deposit credits the account unconditionally and emits a deposit record.
func (e *Engine) Deposit(addr common.Address, amount *big.Int) (Account, error) {
	if amount == nil || amount.Sign() <= 0 {
		return Account{}, ErrNonPositiveAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.ledger.deposit(addr, amount)
	e.emit(types.Event{
		Kind:    types.EventDeposited,
		Account: addr,
		Amount:  new(big.Int).Set(amount),
	})
	return e.ledger.snapshot(addr), nil
}

// InitiateWithdrawal validates a withdrawal request and, on success, debits
// the account, advances its nonce and enters the withdrawal into the
// challenge window. Validation order is fixed: replay check, proof check,
// then debit; a failure at any step leaves state untouched.
func (e *Engine) InitiateWithdrawal(req WithdrawalRequest) (*Withdrawal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, err := e.acceptWithdrawal(req)
	if err != nil {
		return nil, err
	}
	return w.clone(), nil
}

// acceptWithdrawal is the shared admission path for single and batch
// withdrawals. Caller holds e.mu.
func (e *Engine) acceptWithdrawal(req WithdrawalRequest) (*Withdrawal, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, ErrNonPositiveAmount
	}
	if err := e.ledger.checkNonce(req.Account, req.Nonce); err != nil {
		return nil, err
	}
	root, ok := e.commitments[req.CommitmentSeq]
	if !ok {
		// An unknown commitment reference can never carry a valid proof.
		return nil, ErrInvalidProof
	}
	if !e.verifier.Verify(root, req.leaf(), req.Proof) {
		return nil, ErrInvalidProof
	}
	if err := e.ledger.debitForWithdrawal(req.Account, req.Amount, req.Nonce); err != nil {
		return nil, err
	}

	now := e.now()
	e.nextID++
	w := &Withdrawal{
		ID:            e.nextID,
		Hash:          withdrawalHash(e.nextID, req.Account, req.Amount, req.Nonce, req.CommitmentSeq),
		Account:       req.Account,
		Amount:        new(big.Int).Set(req.Amount),
		Nonce:         req.Nonce,
		CommitmentSeq: req.CommitmentSeq,
		ProofIndex:    req.Proof.Index,
		Status:        types.Challengeable,
		CreatedAt:     now,
		Deadline:      now.Add(e.challengePeriodFor(req.Amount)),
	}
	e.withdrawals[w.ID] = w
	e.byHash[w.Hash] = w.ID

	e.emit(types.Event{
		Kind:           types.EventWithdrawalRequested,
		Account:        w.Account,
		Amount:         new(big.Int).Set(w.Amount),
		WithdrawalID:   w.ID,
		WithdrawalHash: w.Hash,
		Nonce:          w.Nonce,
		Deadline:       w.Deadline,
		CommitmentSeq:  w.CommitmentSeq,
	})
	e.logger.Info("withdrawal requested",
		"id", w.ID,
		"account", w.Account.Hex(),
		"amount", w.Amount.String(),
		"deadline", w.Deadline)
	return w, nil
}

// challengePeriodFor returns the challenge window for an amount. Amounts
// below the instant threshold trade the window for latency; the trade-off is
// configured per deployment.
func (e *Engine) challengePeriodFor(amount *big.Int) time.Duration {
	if e.opts.InstantThreshold != nil && e.opts.InstantThreshold.Sign() > 0 &&
		amount.Cmp(e.opts.InstantThreshold) < 0 {
		return 0
	}
	return e.opts.ChallengePeriod
}

// SubmitFraudProof validates evidence against a challengeable withdrawal.
// On success the withdrawal is reverted, the account re-credited and, if the
// evidence proves malicious intent, a penalty debited from the requester.
func (e *Engine) SubmitFraudProof(id uint64, ev Evidence) (*Withdrawal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.withdrawals[id]
	if !ok {
		return nil, ErrUnknownWithdrawal
	}

	now := e.now()
	if err := w.challengeable(now); err != nil {
		return nil, err
	}

	root, ok := e.commitments[ev.CommitmentSeq]
	if !ok {
		return nil, ErrInvalidEvidence
	}
	penalize, err := validateEvidence(e.verifier, w, root, ev)
	if err != nil {
		return nil, err
	}

	w.Status = types.Reverted
	w.RevertedAt = &now
	challenger := ev.Challenger
	w.Challenger = &challenger
	e.ledger.creditOnRevert(w.Account, w.Amount)

	if penalize && e.opts.PenaltyBps > 0 {
		penalty := new(big.Int).Mul(w.Amount, new(big.Int).SetUint64(e.opts.PenaltyBps))
		penalty.Div(penalty, big.NewInt(10_000))
		w.PenaltyApplied = e.ledger.penalize(w.Account, penalty)
	}

	e.emit(types.Event{
		Kind:           types.EventWithdrawalReverted,
		Account:        w.Account,
		Amount:         new(big.Int).Set(w.Amount),
		WithdrawalID:   w.ID,
		WithdrawalHash: w.Hash,
	})
	e.logger.Info("withdrawal reverted",
		"id", w.ID,
		"account", w.Account.Hex(),
		"challenger", ev.Challenger.Hex(),
		"evidence", string(ev.Kind))
	return w.clone(), nil
}

// FinalizeWithdrawal releases a withdrawal's value externally once its
// challenge window has elapsed with no accepted fraud proof. The status flip
// and volume accounting commit before the release runs, and the release runs
// inside the reentrancy guard, so a callback reentering the engine observes
// consistent state and any guarded operation on the same key fails with
// ErrReentrant.
func (e *Engine) FinalizeWithdrawal(id uint64) (*big.Int, error) {
	e.mu.Lock()
	w, ok := e.withdrawals[id]
	if !ok {
		e.mu.Unlock()
		return nil, ErrUnknownWithdrawal
	}
	key := e.guardKey(w.Account)
	e.mu.Unlock()

	var released *big.Int
	err := e.guard.do(key, func() error {
		e.mu.Lock()
		now := e.now()
		if err := w.finalizable(now); err != nil {
			e.mu.Unlock()
			return err
		}
		if err := e.breaker.allow(now, w.Amount); err != nil {
			e.mu.Unlock()
			return err
		}

		w.Status = types.Finalized
		w.FinalizedAt = &now
		e.breaker.add(now, w.Amount)
		amount := new(big.Int).Set(w.Amount)
		account := w.Account
		e.mu.Unlock()

		if e.releaser != nil {
			if err := e.releaser.Release(account, amount); err != nil {
				// Back out so the failed release leaves no state change.
				e.mu.Lock()
				w.Status = types.Challengeable
				w.FinalizedAt = nil
				e.breaker.subtract(now, amount)
				e.mu.Unlock()
				return fmt.Errorf("failed to release withdrawal %d: %w", id, err)
			}
		}

		e.mu.Lock()
		e.emit(types.Event{
			Kind:           types.EventWithdrawalFinalized,
			Account:        account,
			Amount:         new(big.Int).Set(amount),
			WithdrawalID:   w.ID,
			WithdrawalHash: w.Hash,
		})
		e.mu.Unlock()

		released = amount
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("withdrawal finalized", "id", id, "amount", released.String())
	return released, nil
}

func (e *Engine) guardKey(addr common.Address) string {
	if e.opts.GlobalGuard {
		return globalGuardKey
	}
	return addr.Hex()
}

// GetWithdrawal returns a snapshot of the withdrawal with the given id.
func (e *Engine) GetWithdrawal(id uint64) (*Withdrawal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.withdrawals[id]
	if !ok {
		return nil, ErrUnknownWithdrawal
	}
	return w.clone(), nil
}

// GetWithdrawalByHash returns a snapshot of the withdrawal with the given
// audit hash.
func (e *Engine) GetWithdrawalByHash(hash common.Hash) (*Withdrawal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := e.byHash[hash]
	if !ok {
		return nil, ErrUnknownWithdrawal
	}
	return e.withdrawals[id].clone(), nil
}

// GetAccount returns a snapshot of the account's balance and nonce.
func (e *Engine) GetAccount(addr common.Address) Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.snapshot(addr)
}

// DailyVolume returns the volume finalized in the current UTC-day bucket.
func (e *Engine) DailyVolume() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.breaker.volume(e.now())
}

// emit appends to the event feed. Caller holds e.mu. A full feed drops the
// event with a warning rather than blocking ledger operations.
func (e *Engine) emit(ev types.Event) {
	e.eventSeq++
	ev.Sequence = e.eventSeq
	if ev.Time.IsZero() {
		ev.Time = e.now()
	}

	select {
	case e.events <- ev:
	default:
		e.logger.Warn("event feed full, dropping event",
			"sequence", ev.Sequence,
			"kind", string(ev.Kind))
	}
}
