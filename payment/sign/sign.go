// Package sign 收集各支付渠道用到的签名算法，均为无副作用的纯函数
package sign

import (
	"crypto"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"hash"
	"sort"
	"strings"
)

var ErrInvalidPublicKey = errors.New("invalid public key")

func hexDigest(h hash.Hash, data []byte) string {
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func MD5Hex(data string) string {
	return hexDigest(md5.New(), []byte(data))
}

func UpperMD5(data string) string {
	return strings.ToUpper(MD5Hex(data))
}

func SHA256Hex(data string) string {
	return hexDigest(sha256.New(), []byte(data))
}

func UpperSHA256(data string) string {
	return strings.ToUpper(SHA256Hex(data))
}

func HMACSHA1Hex(data []byte, key string) string {
	return hexDigest(hmac.New(sha1.New, []byte(key)), data)
}

func HMACSHA256Hex(data []byte, key string) string {
	return hexDigest(hmac.New(sha256.New, []byte(key)), data)
}

func HMACSHA512Hex(data []byte, key string) string {
	return hexDigest(hmac.New(sha512.New, []byte(key)), data)
}

// Equal 常量时间比较，忽略大小写与首尾空白
func Equal(expected, received string) bool {
	expected = strings.ToLower(strings.TrimSpace(expected))
	received = strings.ToLower(strings.TrimSpace(received))
	if expected == "" || received == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}

// EqualExact 常量时间比较，区分大小写
func EqualExact(expected, received string) bool {
	if expected == "" || received == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}

// JoinFields 按给定顺序取值并用分隔符拼接
func JoinFields(values map[string]string, keys []string, sep string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = values[k]
	}
	return strings.Join(parts, sep)
}

// SortedKeys 返回按字母序排列的键，caseInsensitive 为 true 时忽略大小写
func SortedKeys(values map[string]string, caseInsensitive bool) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if caseInsensitive {
			return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// ParseRSAPublicKey 支持 PEM 或裸 base64 DER（PKIX 或 PKCS1）
func ParseRSAPublicKey(key string) (*rsa.PublicKey, error) {
	key = strings.TrimSpace(key)
	var der []byte
	if block, _ := pem.Decode([]byte(key)); block != nil {
		der = block.Bytes
	} else {
		decoded, err := base64.StdEncoding.DecodeString(key)
		if err != nil {
			return nil, ErrInvalidPublicKey
		}
		der = decoded
	}
	if pub, err := x509.ParsePKIXPublicKey(der); err == nil {
		if rsaPub, ok := pub.(*rsa.PublicKey); ok {
			return rsaPub, nil
		}
		return nil, ErrInvalidPublicKey
	}
	pub, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	return pub, nil
}

// VerifyRSASHA256 校验 base64 编码的 RSA-SHA256 (PKCS#1 v1.5) 签名
func VerifyRSASHA256(pub *rsa.PublicKey, payload []byte, signature string) bool {
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil || pub == nil {
		return false
	}
	digest := sha256.Sum256(payload)
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil
}
