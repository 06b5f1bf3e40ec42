package embedding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVectorEncodingRoundTrip(t *testing.T) {
	vectors := [][]float32{
		{},
		{0},
		{1.5, -2.25, 0.000001},
		{3.4e38, -3.4e38},
	}

	for _, vec := range vectors {
		decoded, err := decodeVector(encodeVector(vec))
		require.NoError(t, err)
		require.Equal(t, vec, decoded)
	}
}

func TestDecodeVectorRejectsMisalignedInput(t *testing.T) {
	_, err := decodeVector([]byte{1, 2, 3})
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed vector encoding")
}
