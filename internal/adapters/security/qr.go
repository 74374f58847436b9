package security

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QREncoder renders table ordering URLs as PNG images.
type QREncoder struct {
	level qrcode.RecoveryLevel
}

// NewQREncoder uses medium error correction.
func NewQREncoder() *QREncoder {
	return &QREncoder{level: qrcode.Medium}
}

func (e *QREncoder) EncodePNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr content is empty")
	}
	if size < 64 {
		size = 64
	}
	if size > 2048 {
		size = 2048
	}
	return qrcode.Encode(content, e.level, size)
}
