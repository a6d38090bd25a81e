package common

import (
	"blackcnote/common/config"
	"blackcnote/common/utils"

	"github.com/pquerna/otp/totp"
)

// GenerateTOTPSecret 生成新的 TOTP 密钥，并返回供认证器扫描的二维码
func GenerateTOTPSecret(accountName string) (secret string, qrcode string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      config.SystemName,
		AccountName: accountName,
	})
	if err != nil {
		return "", "", err
	}
	qrcode, err = utils.QRCodeDataURI(key.URL(), 200)
	if err != nil {
		return "", "", err
	}
	return key.Secret(), qrcode, nil
}

func VerifyTOTPCode(secret, code string) bool {
	if secret == "" || code == "" {
		return false
	}
	return totp.Validate(code, secret)
}
