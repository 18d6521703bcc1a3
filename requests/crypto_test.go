package requests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderCipherSealsOnlySensitiveHeaders(t *testing.T) {
	c, err := newHeaderCipher([]byte("a sufficiently long master secret"))
	require.NoError(t, err)

	headers := map[string][]string{
		"Authorization": {"Bearer secret-token"},
		"X-Trace-Id":    {"abc-123"},
	}

	sealed, err := c.sealSensitive(headers)
	require.NoError(t, err)

	assert.Equal(t, headers["X-Trace-Id"], sealed["X-Trace-Id"], "non-sensitive headers pass through untouched")
	assert.NotEqual(t, headers["Authorization"][0], sealed["Authorization"][0], "sensitive header must be sealed")

	opened, err := c.openSensitive(sealed)
	require.NoError(t, err)
	assert.Equal(t, headers, opened)
}

func TestHeaderCipherOpenPassesThroughUnsealedValues(t *testing.T) {
	c, err := newHeaderCipher([]byte("another master secret"))
	require.NoError(t, err)

	// Rows written before encryption was enabled carry plaintext values.
	opened, err := c.openSensitive(map[string][]string{"Cookie": {"session=abc"}})
	require.NoError(t, err)
	assert.Equal(t, "session=abc", opened["Cookie"][0])
}

func TestNewHeaderCipherRejectsEmptyKey(t *testing.T) {
	_, err := newHeaderCipher(nil)
	assert.Error(t, err)
}
