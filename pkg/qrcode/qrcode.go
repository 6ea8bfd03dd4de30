// Package qrcode renders ticket codes as scannable PNG images.
package qrcode

import (
	"errors"
	"fmt"
	"strings"

	qr "github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// PNG renders content as a medium error-correction QR code of size×size pixels.
func PNG(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("qr content is required")
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qr.Encode(content, qr.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
