// Package merkle implements the commitment scheme withdrawals are proven
// against: a keccak-256 binary hash tree over deterministic leaf encodings of
// (account, amount, nonce). A commitment root is published per state batch and
// a logarithmic inclusion proof binds one leaf to it.
package merkle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// leafSize is the fixed encoded leaf length: 20-byte account,
	// 32-byte big-endian amount, 8-byte big-endian nonce.
	leafSize = common.AddressLength + 32 + 8

	// maxProofDepth bounds the accepted proof length. A tree with 2^64
	// leaves is unrepresentable, so anything deeper is malformed.
	maxProofDepth = 64
)

var ErrMalformedLeaf = errors.New("merkle: malformed leaf encoding")

// Leaf is the committed record of a single withdrawal authorization.
type Leaf struct {
	Account common.Address
	Amount  *big.Int
	Nonce   uint64
}

// Encode returns the canonical fixed-width encoding of the leaf.
// The amount is encoded as an unsigned 256-bit big-endian integer.
func (l Leaf) Encode() []byte {
	buf := make([]byte, leafSize)
	copy(buf[:common.AddressLength], l.Account.Bytes())
	if l.Amount != nil {
		l.Amount.FillBytes(buf[common.AddressLength : common.AddressLength+32])
	}
	binary.BigEndian.PutUint64(buf[common.AddressLength+32:], l.Nonce)
	return buf
}

// Hash returns the keccak-256 hash of the canonical leaf encoding.
func (l Leaf) Hash() common.Hash {
	return crypto.Keccak256Hash(l.Encode())
}

// Equal reports whether two leaves encode identically.
func (l Leaf) Equal(other Leaf) bool {
	return l.Hash() == other.Hash()
}

// DecodeLeaf parses a canonical leaf encoding.
func DecodeLeaf(data []byte) (Leaf, error) {
	if len(data) != leafSize {
		return Leaf{}, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedLeaf, len(data), leafSize)
	}
	var leaf Leaf
	leaf.Account = common.BytesToAddress(data[:common.AddressLength])
	leaf.Amount = new(big.Int).SetBytes(data[common.AddressLength : common.AddressLength+32])
	leaf.Nonce = binary.BigEndian.Uint64(data[common.AddressLength+32:])
	return leaf, nil
}

// Proof is an inclusion proof: the leaf position and the sibling hashes from
// the leaf layer up to (but excluding) the root.
type Proof struct {
	Index    uint64        `json:"index"`
	Siblings []common.Hash `json:"siblings"`
}

// Verifier checks that a leaf is a member of a published commitment.
// Implementations must be pure and fail closed: a malformed proof returns
// false, never an error or panic.
type Verifier interface {
	Verify(root common.Hash, leaf Leaf, proof Proof) bool
}

// KeccakVerifier verifies proofs against keccak-256 binary hash trees built
// by Tree. It is the scheme deployed commitments use; the interface exists so
// deployments can swap in a different membership-proof system.
type KeccakVerifier struct{}

// Verify recomputes the root by folding the leaf hash with each sibling in
// order. The proof index selects the side at every level: an odd index means
// the running hash is the right child.
func (KeccakVerifier) Verify(root common.Hash, leaf Leaf, proof Proof) bool {
	// The leaf encoding holds a 256-bit amount; anything outside that range
	// cannot have been committed.
	if leaf.Amount == nil || leaf.Amount.Sign() < 0 || leaf.Amount.BitLen() > 256 {
		return false
	}
	if len(proof.Siblings) > maxProofDepth {
		return false
	}
	// The index must be addressable within a tree of the proof's depth.
	if len(proof.Siblings) < maxProofDepth && proof.Index>>uint(len(proof.Siblings)) != 0 {
		return false
	}

	node := leaf.Hash()
	index := proof.Index
	for _, sibling := range proof.Siblings {
		if index&1 == 1 {
			node = hashPair(sibling, node)
		} else {
			node = hashPair(node, sibling)
		}
		index >>= 1
	}
	return node == root
}

func hashPair(left, right common.Hash) common.Hash {
	return crypto.Keccak256Hash(left.Bytes(), right.Bytes())
}
