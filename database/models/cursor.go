package models

// Cursor tracks the last applied event sequence for a consumer stream. It is
// used to avoid re-applying events the recorder already persisted when the
// service is restarted.
type Cursor struct {
	Stream   string `json:"stream" bson:"stream"`
	Sequence uint64 `json:"sequence" bson:"sequence"`
}
