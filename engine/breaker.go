package engine

import (
	"math/big"
	"time"
)

const bucketSeconds = 24 * 60 * 60

// breaker caps the aggregate value released per UTC day, independent of
// per-request validity. Buckets are keyed by the clock, so a bucket with zero
// activity still expires on schedule; nothing is event-triggered.
type breaker struct {
	limit   *big.Int // nil means unlimited
	buckets map[int64]*big.Int
}

func newBreaker(limit *big.Int) *breaker {
	b := &breaker{buckets: make(map[int64]*big.Int)}
	if limit != nil && limit.Sign() > 0 {
		b.limit = new(big.Int).Set(limit)
	}
	return b
}

func bucketKey(now time.Time) int64 {
	return now.UTC().Unix() / bucketSeconds
}

// allow fails with ErrDailyLimitExceeded if releasing amount would push the
// current bucket past the ceiling.
func (b *breaker) allow(now time.Time, amount *big.Int) error {
	if b.limit == nil {
		return nil
	}
	total := new(big.Int).Add(b.volume(now), amount)
	if total.Cmp(b.limit) > 0 {
		return ErrDailyLimitExceeded
	}
	return nil
}

// add records released volume in the current bucket and drops expired ones.
func (b *breaker) add(now time.Time, amount *big.Int) {
	key := bucketKey(now)
	total, ok := b.buckets[key]
	if !ok {
		total = new(big.Int)
		b.buckets[key] = total
	}
	total.Add(total, amount)

	for k := range b.buckets {
		if k < key {
			delete(b.buckets, k)
		}
	}
}

// subtract backs released volume out of the current bucket, used when an
// external release fails after the bucket was charged.
func (b *breaker) subtract(now time.Time, amount *big.Int) {
	if total, ok := b.buckets[bucketKey(now)]; ok {
		total.Sub(total, amount)
		if total.Sign() < 0 {
			total.SetInt64(0)
		}
	}
}

// volume returns the total released in the bucket containing now.
func (b *breaker) volume(now time.Time) *big.Int {
	if total, ok := b.buckets[bucketKey(now)]; ok {
		return new(big.Int).Set(total)
	}
	return new(big.Int)
}
