package models

// WithdrawalReverted records an accepted fraud proof against a withdrawal.
type WithdrawalReverted struct {
	WithdrawalHash string `json:"withdrawal_hash" bson:"withdrawal_hash"`
	WithdrawalID   uint64 `json:"withdrawal_id" bson:"withdrawal_id"`
	Amount         string `json:"amount" bson:"amount"`
	Timestamp      uint64 `json:"timestamp" bson:"timestamp"`
	Sequence       uint64 `json:"sequence" bson:"sequence"`
}
