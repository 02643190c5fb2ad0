package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDeterministic(t *testing.T) {
	a, err := Encode("9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")
	require.NoError(t, err)
	b, err := Encode("9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// first 8 hex chars, base 16
	assert.Equal(t, int64(0x9b1deb4d), a)
}

func TestEncodeStripsSeparators(t *testing.T) {
	withDashes, err := Encode("d9428888-122b-11e1-b85c-61cd3cbb3210")
	require.NoError(t, err)
	withoutDashes, err := Encode("d9428888122b11e1b85c61cd3cbb3210")
	require.NoError(t, err)
	braced, err := Encode("{d9428888-122b-11e1-b85c-61cd3cbb3210}")
	require.NoError(t, err)

	assert.Equal(t, withDashes, withoutDashes)
	assert.Equal(t, withDashes, braced)
}

func TestEncodeRejectsNonHex(t *testing.T) {
	_, err := Encode("not-a-catalog-id")
	assert.Error(t, err)

	_, err = Encode("")
	assert.Error(t, err)
}

func TestEncodeRejectsShortIdentifiers(t *testing.T) {
	_, err := Encode("abc-123")
	assert.Error(t, err)
}

func TestDecodeRoundTrip(t *testing.T) {
	ids := []string{
		"9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d",
		"d9428888-122b-11e1-b85c-61cd3cbb3210",
		"16fd2706-8baf-433b-82eb-8c7fada847da",
	}

	for _, id := range ids {
		enc, err := Encode(id)
		require.NoError(t, err)

		got, ok := Decode(enc, ids)
		require.True(t, ok, "decode miss for %s", id)
		assert.Equal(t, id, got)
	}
}

func TestDecodeNotFound(t *testing.T) {
	ids := []string{"9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"}

	_, ok := Decode(0x12345678, ids)
	assert.False(t, ok)

	_, ok = Decode(1, nil)
	assert.False(t, ok)
}

func TestDecodeSkipsMalformedEntries(t *testing.T) {
	ids := []string{"garbage", "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"}

	got, ok := Decode(0x9b1deb4d, ids)
	require.True(t, ok)
	assert.Equal(t, "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", got)
}
