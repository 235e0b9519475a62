package types

// WithdrawalStatus represents the different states a withdrawal can be in
type WithdrawalStatus string

const (
	// Requested - Withdrawal request has been received but not yet validated.
	// Acceptance (nonce check, proof check, debit) moves it straight to
	// Challengeable, so this status is never observable after initiation.
	Requested WithdrawalStatus = "REQUESTED"

	// Challengeable - Withdrawal is accepted and undergoing the challenge period
	Challengeable WithdrawalStatus = "CHALLENGEABLE"

	// Finalized - Withdrawal passed the challenge period and value was released
	Finalized WithdrawalStatus = "FINALIZED"

	// Reverted - Withdrawal was proven fraudulent and the account re-credited
	Reverted WithdrawalStatus = "REVERTED"
)
