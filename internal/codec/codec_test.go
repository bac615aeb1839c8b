package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type rec struct {
	Position int    `json:"position"`
	Text     string `json:"text"`
}

func TestSealedCodec(t *testing.T) {
	c := SealedCodec{}

	data, err := c.Marshal(rec{Position: 3, Text: "logos"})
	require.NoError(t, err)

	var out rec
	require.NoError(t, c.Unmarshal(data, &out))
	require.Equal(t, rec{Position: 3, Text: "logos"}, out)

	t.Run("tampered", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[len(bad)-2] ^= 0xff
		require.ErrorIs(t, c.Unmarshal(bad, &out), ErrChecksum)
	})

	t.Run("short", func(t *testing.T) {
		require.ErrorIs(t, c.Unmarshal([]byte{1, 2}, &out), ErrChecksum)
	})
}
