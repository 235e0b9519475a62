package models

// Transaction represents either a deposit or withdrawal with all related information
type Transaction struct {
	Type           string               `json:"type" bson:"type"` // "deposit" or "withdrawal"
	Account        string               `json:"account" bson:"account"`
	Amount         string               `json:"amount" bson:"amount"`
	Timestamp      uint64               `json:"timestamp" bson:"timestamp"`
	Sequence       uint64               `json:"sequence" bson:"sequence"`
	WithdrawalID   uint64               `json:"withdrawal_id,omitempty" bson:"withdrawal_id,omitempty"`
	WithdrawalHash string               `json:"withdrawal_hash,omitempty" bson:"withdrawal_hash,omitempty"`
	Nonce          uint64               `json:"nonce,omitempty" bson:"nonce,omitempty"`
	CommitmentSeq  uint64               `json:"commitment_seq,omitempty" bson:"commitment_seq,omitempty"`
	Deadline       uint64               `json:"deadline,omitempty" bson:"deadline,omitempty"`
	Status         string               `json:"status,omitempty" bson:"status,omitempty"`
	FinalizeTx     *WithdrawalFinalized `json:"finalize_tx,omitempty" bson:"finalize_tx,omitempty"`
	RevertTx       *WithdrawalReverted  `json:"revert_tx,omitempty" bson:"revert_tx,omitempty"`
}
