// Package qrlink builds the shareable try-on links sellers print on physical
// tags, and their QR code renderings.
package qrlink

import (
	"encoding/base64"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const pngSize = 300

// TryOnURL is the public page a shopper lands on after scanning a product tag.
func TryOnURL(publicBaseURL, productID string) string {
	return strings.TrimRight(publicBaseURL, "/") + "/tryon/" + productID
}

// PNG renders the try-on link as a QR code image. High error correction keeps
// codes scannable when printed small on garment tags.
func PNG(publicBaseURL, productID string) ([]byte, error) {
	png, err := qrcode.Encode(TryOnURL(publicBaseURL, productID), qrcode.High, pngSize)
	if err != nil {
		return nil, fmt.Errorf("qrlink: encode: %w", err)
	}
	return png, nil
}

// DataURL renders the QR code as an inline data URL for JSON responses.
func DataURL(publicBaseURL, productID string) (string, error) {
	png, err := PNG(publicBaseURL, productID)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
