package sign

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigests(t *testing.T) {
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", MD5Hex("abc"))
	assert.Equal(t, "900150983CD24FB0D6963F7D28E17F72", UpperMD5("abc"))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", SHA256Hex("abc"))
	// RFC 4231 test case 2
	assert.Equal(t,
		"5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843",
		HMACSHA256Hex([]byte("what do ya want for nothing?"), "Jefe"))
	assert.Equal(t,
		"164b7a7bfcf819e2e395fbe73b56e0a387bd64222e831fd610270cd7ea2505549758bf75c05a994a6d034f65f8f0e6fdcaeab1a34d4a6b4b636e070a38bce737",
		HMACSHA512Hex([]byte("what do ya want for nothing?"), "Jefe"))
	// RFC 2202 test case 2
	assert.Equal(t, "effcdf6ae5eb2fa2d27416d5f184df9c259a7c79",
		HMACSHA1Hex([]byte("what do ya want for nothing?"), "Jefe"))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("ABCDEF", "abcdef"))
	assert.True(t, Equal(" abc ", "abc"))
	assert.False(t, Equal("abc", "abd"))
	assert.False(t, Equal("", ""))
	assert.True(t, EqualExact("abc", "abc"))
	assert.False(t, EqualExact("abc", "ABC"))
}

func TestJoinAndSort(t *testing.T) {
	values := map[string]string{"b": "2", "A": "1", "c": "3"}
	assert.Equal(t, "1:2:3", JoinFields(values, []string{"A", "b", "c"}, ":"))
	assert.Equal(t, []string{"A", "b", "c"}, SortedKeys(values, true))
	assert.Equal(t, []string{"A", "b", "c"}, SortedKeys(values, false))
	assert.Equal(t, "1::3", JoinFields(values, []string{"A", "missing", "c"}, ":"))
}

func TestVerifyRSASHA256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemKey := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	payload := []byte("1700000000\nnonce\n{\"a\":1}\n")
	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	require.NoError(t, err)
	signature := base64.StdEncoding.EncodeToString(sig)

	for _, encoded := range []string{pemKey, base64.StdEncoding.EncodeToString(der)} {
		pub, err := ParseRSAPublicKey(encoded)
		require.NoError(t, err)
		assert.True(t, VerifyRSASHA256(pub, payload, signature))
		assert.False(t, VerifyRSASHA256(pub, []byte("tampered"), signature))
	}

	_, err = ParseRSAPublicKey("not a key")
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}
