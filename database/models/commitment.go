package models

type Commitment struct {
	CommitmentSeq uint64 `json:"commitment_seq" bson:"commitment_seq"`
	Root          string `json:"root" bson:"root"`
	Timestamp     uint64 `json:"timestamp" bson:"timestamp"`
}
