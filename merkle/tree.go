package merkle

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrEmptyTree       = errors.New("merkle: tree has no leaves")
	ErrIndexOutOfRange = errors.New("merkle: leaf index out of range")
)

// Tree is a keccak-256 binary hash tree over a batch of leaves. Odd layers
// are padded by duplicating the final node. Trees are built by the party
// publishing a commitment; the engine itself only ever verifies proofs.
type Tree struct {
	// layers[0] is the leaf hash layer, layers[len-1] holds the root.
	layers [][]common.Hash
	count  uint64
}

// NewTree builds the tree for the given leaves.
func NewTree(leaves []Leaf) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}

	layer := make([]common.Hash, len(leaves))
	for i, leaf := range leaves {
		layer[i] = leaf.Hash()
	}

	layers := [][]common.Hash{layer}
	for len(layer) > 1 {
		if len(layer)%2 == 1 {
			layer = append(layer, layer[len(layer)-1])
		}
		next := make([]common.Hash, len(layer)/2)
		for i := range next {
			next[i] = hashPair(layer[2*i], layer[2*i+1])
		}
		layers = append(layers, next)
		layer = next
	}

	return &Tree{layers: layers, count: uint64(len(leaves))}, nil
}

// Root returns the commitment root.
func (t *Tree) Root() common.Hash {
	return t.layers[len(t.layers)-1][0]
}

// Prove returns the inclusion proof for the leaf at the given index.
func (t *Tree) Prove(index uint64) (Proof, error) {
	if index >= t.count {
		return Proof{}, fmt.Errorf("%w: index %d, %d leaves", ErrIndexOutOfRange, index, t.count)
	}

	proof := Proof{Index: index}
	idx := index
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := idx ^ 1
		if sibling >= uint64(len(layer)) {
			// Odd layer padded with its own last node.
			sibling = idx
		}
		proof.Siblings = append(proof.Siblings, layer[sibling])
		idx >>= 1
	}
	return proof, nil
}
