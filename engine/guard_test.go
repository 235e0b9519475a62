package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuard(t *testing.T) {
	g := newGuard()

	t.Run("nested entry on the same key fails", func(t *testing.T) {
		var inner error
		err := g.do("a", func() error {
			inner = g.do("a", func() error { return nil })
			return nil
		})
		require.NoError(t, err)
		require.ErrorIs(t, inner, ErrReentrant)
	})

	t.Run("different keys do not interfere", func(t *testing.T) {
		var inner error
		err := g.do("a", func() error {
			inner = g.do("b", func() error { return nil })
			return nil
		})
		require.NoError(t, err)
		require.NoError(t, inner)
	})

	t.Run("key is released after an error", func(t *testing.T) {
		err := g.do("a", func() error { return ErrInvalidProof })
		require.ErrorIs(t, err, ErrInvalidProof)

		err = g.do("a", func() error { return nil })
		require.NoError(t, err)
	})

	t.Run("key is released after a panic", func(t *testing.T) {
		require.Panics(t, func() {
			_ = g.do("a", func() error { panic("release blew up") })
		})

		err := g.do("a", func() error { return nil })
		require.NoError(t, err)
	})
}
