package system

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// MaxQRBytes is the largest payload a QR code holds at medium recovery.
const MaxQRBytes = 2331

// WriteQR encodes content as a PNG QR code of size pixels at path.
func WriteQR(content, path string, size int) error {
	if len(content) > MaxQRBytes {
		return fmt.Errorf("содержимое слишком велико для QR-кода: %d байт (максимум %d)", len(content), MaxQRBytes)
	}
	if size <= 0 {
		size = 512
	}
	return qrcode.WriteFile(content, qrcode.Medium, size, path)
}
