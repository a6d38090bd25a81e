package common

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOTPRoundTrip(t *testing.T) {
	secret, qrcode, err := GenerateTOTPSecret("alice")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.True(t, strings.HasPrefix(qrcode, "data:image/png;base64,"))

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	assert.True(t, VerifyTOTPCode(secret, code))
	assert.False(t, VerifyTOTPCode(secret, "000000x"))
	assert.False(t, VerifyTOTPCode("", code))
}

func TestVerificationCode(t *testing.T) {
	RegisterVerificationCodeWithKey("a@example.com", "123456", EmailVerificationPurpose)
	assert.True(t, VerifyCodeWithKey("a@example.com", "123456", EmailVerificationPurpose))
	assert.False(t, VerifyCodeWithKey("a@example.com", "123456", PasswordResetPurpose))
	assert.False(t, VerifyCodeWithKey("a@example.com", "", EmailVerificationPurpose))

	DeleteKey("a@example.com", EmailVerificationPurpose)
	assert.False(t, VerifyCodeWithKey("a@example.com", "123456", EmailVerificationPurpose))
}

func TestPasswordHash(t *testing.T) {
	hash, err := Password2Hash("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, ValidatePasswordAndHash("s3cret-pass", hash))
	assert.False(t, ValidatePasswordAndHash("wrong", hash))
}
