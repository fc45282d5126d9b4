package utils

import qrcode "github.com/skip2/go-qrcode"

// QRCodePNG 生成 PNG 二维码（海报/移动端扫码接告警）
func QRCodePNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}
