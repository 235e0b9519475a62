package models

// WithdrawalFinalized records the release of a finalized withdrawal. It is
// stored in a separate collection keyed by withdrawal hash so late or
// replayed event delivery upserts rather than duplicates.
type WithdrawalFinalized struct {
	WithdrawalHash string `json:"withdrawal_hash" bson:"withdrawal_hash"`
	WithdrawalID   uint64 `json:"withdrawal_id" bson:"withdrawal_id"`
	Amount         string `json:"amount" bson:"amount"`
	Timestamp      uint64 `json:"timestamp" bson:"timestamp"`
	Sequence       uint64 `json:"sequence" bson:"sequence"`
}
