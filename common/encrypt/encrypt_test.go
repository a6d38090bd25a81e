package encrypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	plain := `{"secret_key":"sk_test_123"}`
	sealed, err := Seal(plain, "passphrase")
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))
	assert.NotContains(t, sealed, "sk_test_123")

	opened, err := Open(sealed, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, plain, opened)

	_, err = Open(sealed, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestSealWithoutPassphrase(t *testing.T) {
	sealed, err := Seal("plain", "")
	require.NoError(t, err)
	assert.Equal(t, "plain", sealed)

	opened, err := Open("plain", "anything")
	require.NoError(t, err)
	assert.Equal(t, "plain", opened)
}

func TestSealIsIdempotent(t *testing.T) {
	sealed, err := Seal("value", "k")
	require.NoError(t, err)
	again, err := Seal(sealed, "k")
	require.NoError(t, err)
	assert.Equal(t, sealed, again)
}
