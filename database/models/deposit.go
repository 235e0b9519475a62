package models

type Deposit struct {
	Sequence  uint64 `json:"sequence" bson:"sequence"`
	Account   string `json:"account" bson:"account"`
	Amount    string `json:"amount" bson:"amount"`
	Timestamp uint64 `json:"timestamp" bson:"timestamp"`
}
