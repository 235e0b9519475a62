package merkle

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func testLeaves(n int) []Leaf {
	leaves := make([]Leaf, n)
	for i := range leaves {
		leaves[i] = Leaf{
			Account: common.BytesToAddress([]byte{byte(i + 1)}),
			Amount:  big.NewInt(int64(100 * (i + 1))),
			Nonce:   uint64(i),
		}
	}
	return leaves
}

func TestTreeProofRoundtrip(t *testing.T) {
	v := KeccakVerifier{}

	// Odd and even leaf counts hit the duplicate-padding path differently.
	for n := 1; n <= 9; n++ {
		leaves := testLeaves(n)
		tree, err := NewTree(leaves)
		require.NoError(t, err)

		for i, leaf := range leaves {
			proof, err := tree.Prove(uint64(i))
			require.NoError(t, err)
			require.True(t, v.Verify(tree.Root(), leaf, proof),
				"leaf %d of %d must verify", i, n)
		}
	}
}

func TestVerifyRejections(t *testing.T) {
	v := KeccakVerifier{}
	leaves := testLeaves(4)
	tree, err := NewTree(leaves)
	require.NoError(t, err)
	root := tree.Root()

	proof, err := tree.Prove(2)
	require.NoError(t, err)

	t.Run("wrong leaf", func(t *testing.T) {
		other := leaves[2]
		other.Amount = big.NewInt(999)
		require.False(t, v.Verify(root, other, proof))
	})

	t.Run("wrong index", func(t *testing.T) {
		bad := proof
		bad.Index = 3
		require.False(t, v.Verify(root, leaves[2], bad))
	})

	t.Run("tampered sibling", func(t *testing.T) {
		bad := Proof{Index: proof.Index, Siblings: append([]common.Hash{}, proof.Siblings...)}
		bad.Siblings[0] = common.HexToHash("0xff")
		require.False(t, v.Verify(root, leaves[2], bad))
	})

	t.Run("truncated proof", func(t *testing.T) {
		bad := Proof{Index: proof.Index, Siblings: proof.Siblings[:1]}
		require.False(t, v.Verify(root, leaves[2], bad))
	})

	t.Run("wrong root", func(t *testing.T) {
		require.False(t, v.Verify(common.HexToHash("0x01"), leaves[2], proof))
	})

	t.Run("index not addressable at proof depth", func(t *testing.T) {
		bad := Proof{Index: 4, Siblings: proof.Siblings}
		require.False(t, v.Verify(root, leaves[2], bad))
	})

	t.Run("oversized proof", func(t *testing.T) {
		bad := Proof{Index: 0, Siblings: make([]common.Hash, maxProofDepth+1)}
		require.False(t, v.Verify(root, leaves[0], bad))
	})

	t.Run("nil amount fails closed", func(t *testing.T) {
		require.False(t, v.Verify(root, Leaf{Account: leaves[2].Account}, proof))
	})

	t.Run("negative amount fails closed", func(t *testing.T) {
		leaf := leaves[2]
		leaf.Amount = big.NewInt(-1)
		require.False(t, v.Verify(root, leaf, proof))
	})

	t.Run("amount wider than 256 bits fails closed", func(t *testing.T) {
		leaf := leaves[2]
		leaf.Amount = new(big.Int).Lsh(big.NewInt(1), 256)
		require.False(t, v.Verify(root, leaf, proof))
	})
}

func TestTreeErrors(t *testing.T) {
	_, err := NewTree(nil)
	require.ErrorIs(t, err, ErrEmptyTree)

	tree, err := NewTree(testLeaves(3))
	require.NoError(t, err)

	_, err = tree.Prove(3)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestSingleLeafTree(t *testing.T) {
	leaf := testLeaves(1)[0]
	tree, err := NewTree([]Leaf{leaf})
	require.NoError(t, err)
	require.Equal(t, leaf.Hash(), tree.Root())

	proof, err := tree.Prove(0)
	require.NoError(t, err)
	require.Empty(t, proof.Siblings)
	require.True(t, KeccakVerifier{}.Verify(tree.Root(), leaf, proof))
}

func TestLeafEncoding(t *testing.T) {
	leaf := Leaf{
		Account: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Amount:  new(big.Int).Lsh(big.NewInt(1), 200), // exercises the high bytes
		Nonce:   42,
	}

	encoded := leaf.Encode()
	require.Len(t, encoded, leafSize)

	decoded, err := DecodeLeaf(encoded)
	require.NoError(t, err)
	require.True(t, leaf.Equal(decoded))
	require.Equal(t, leaf.Account, decoded.Account)
	require.Zero(t, leaf.Amount.Cmp(decoded.Amount))
	require.Equal(t, leaf.Nonce, decoded.Nonce)

	_, err = DecodeLeaf(encoded[:10])
	require.ErrorIs(t, err, ErrMalformedLeaf)

	t.Run("nil amount encodes as zero", func(t *testing.T) {
		bare := Leaf{Account: leaf.Account, Nonce: 42}
		decoded, err := DecodeLeaf(bare.Encode())
		require.NoError(t, err)
		require.Zero(t, decoded.Amount.Sign())
	})

	t.Run("distinct leaves hash distinctly", func(t *testing.T) {
		other := leaf
		other.Nonce = 43
		require.False(t, leaf.Equal(other))
	})
}
