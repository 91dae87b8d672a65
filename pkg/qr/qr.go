package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// EncodePNG renders data as a PNG QR image. size <= 0 uses DefaultSize.
func EncodePNG(data string, size int) ([]byte, error) {
	if data == "" {
		return nil, fmt.Errorf("qr payload is empty")
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(data, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
