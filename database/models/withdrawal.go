package models

type Withdrawal struct {
	WithdrawalID   uint64 `json:"withdrawal_id" bson:"withdrawal_id"`
	WithdrawalHash string `json:"withdrawal_hash" bson:"withdrawal_hash"`
	Account        string `json:"account" bson:"account"`
	Amount         string `json:"amount" bson:"amount"`
	Nonce          uint64 `json:"nonce" bson:"nonce"`
	CommitmentSeq  uint64 `json:"commitment_seq" bson:"commitment_seq"`
	Timestamp      uint64 `json:"timestamp" bson:"timestamp"`
	Deadline       uint64 `json:"deadline" bson:"deadline"`
	Status         string `json:"status" bson:"status"`
	Sequence       uint64 `json:"sequence" bson:"sequence"`
}
