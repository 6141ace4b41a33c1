package speedtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	for _, size := range []int{1, 251, 252, 10_000, 100_000, 1_000_000} {
		p, err := Generate(size)
		require.NoError(t, err)
		assert.Len(t, p, size)
		assert.NotContains(t, p, byte(0))

		q, err := Generate(size)
		require.NoError(t, err)
		assert.Equal(t, p, q)
	}
}

func TestGenerate_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1, -1_000_000} {
		p, err := Generate(size)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.Nil(t, p)
	}
}
