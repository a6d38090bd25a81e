package utils

import (
	"encoding/base64"

	"github.com/skip2/go-qrcode"
)

// QRCodeDataURI 生成 PNG 二维码的 data URI，供前端直接展示
func QRCodeDataURI(content string, size int) (string, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
