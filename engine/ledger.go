package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Account is a read-only snapshot of one account's ledger entry.
type Account struct {
	Address common.Address `json:"address"`
	Balance *big.Int       `json:"balance"`
	Nonce   uint64         `json:"nonce"`
}

// account is the mutable ledger entry. Balance never goes negative and the
// nonce never decreases; both are mutated only through the ledger methods
// below, always under the engine mutex.
type account struct {
	balance *big.Int
	nonce   uint64
}

// ledger maps accounts to available balance on the secondary ledger plus the
// per-account replay nonce. Debit and nonce advance are a single compound
// operation so no interleaving can observe one without the other.
type ledger struct {
	accounts map[common.Address]*account
}

func newLedger() *ledger {
	return &ledger{accounts: make(map[common.Address]*account)}
}

func (l *ledger) get(addr common.Address) *account {
	acct, ok := l.accounts[addr]
	if !ok {
		acct = &account{balance: new(big.Int)}
		l.accounts[addr] = acct
	}
	return acct
}

// snapshot returns a defensive copy safe to hand to callers.
func (l *ledger) snapshot(addr common.Address) Account {
	acct := l.get(addr)
	return Account{
		Address: addr,
		Balance: new(big.Int).Set(acct.balance),
		Nonce:   acct.nonce,
	}
}

// deposit credits unconditionally.
func (l *ledger) deposit(addr common.Address, amount *big.Int) {
	acct := l.get(addr)
	acct.balance.Add(acct.balance, amount)
}

// checkNonce fails with ErrReplayedNonce unless claimed equals the account's
// current nonce. It does not advance; advancement happens atomically with the
// debit in debitForWithdrawal.
func (l *ledger) checkNonce(addr common.Address, claimed uint64) error {
	if l.get(addr).nonce != claimed {
		return ErrReplayedNonce
	}
	return nil
}

// debitForWithdrawal decrements the balance and advances the nonce as one
// step. Either both happen or neither does.
func (l *ledger) debitForWithdrawal(addr common.Address, amount *big.Int, claimed uint64) error {
	acct := l.get(addr)
	if acct.nonce != claimed {
		return ErrReplayedNonce
	}
	if acct.balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	acct.balance.Sub(acct.balance, amount)
	acct.nonce = claimed + 1
	return nil
}

// creditOnRevert re-credits an account after a successful fraud proof.
// Idempotency per withdrawal is enforced by the caller via the withdrawal
// status check.
func (l *ledger) creditOnRevert(addr common.Address, amount *big.Int) {
	acct := l.get(addr)
	acct.balance.Add(acct.balance, amount)
}

// penalize debits up to amount from the account, capped at the available
// balance, and returns the amount actually taken.
func (l *ledger) penalize(addr common.Address, amount *big.Int) *big.Int {
	acct := l.get(addr)
	applied := new(big.Int).Set(amount)
	if acct.balance.Cmp(applied) < 0 {
		applied.Set(acct.balance)
	}
	acct.balance.Sub(acct.balance, applied)
	return applied
}
