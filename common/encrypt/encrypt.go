package encrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

// Prefix 标记已加密的字段，未加密的历史数据按明文读取
const Prefix = "enc:v1:"

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

func deriveKey(passphrase string) []byte {
	sum := sha256.Sum256([]byte(passphrase))
	return sum[:]
}

// Seal 使用 AES-GCM 加密，passphrase 为空时原样返回
func Seal(plaintext, passphrase string) (string, error) {
	if passphrase == "" || plaintext == "" || IsSealed(plaintext) {
		return plaintext, nil
	}
	block, err := aes.NewCipher(deriveKey(passphrase))
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open 解密 Seal 的结果；非加密内容原样返回
func Open(value, passphrase string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if passphrase == "" {
		return "", errors.New("encrypted value but no gateway_secret configured")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	block, err := aes.NewCipher(deriveKey(passphrase))
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", ErrInvalidCiphertext
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plain), nil
}

func IsSealed(value string) bool {
	return strings.HasPrefix(value, Prefix)
}
