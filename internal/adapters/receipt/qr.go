package receipt

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 256

// Renderer draws receipt QR codes pointing at the public receipt URL of a booking.
type Renderer struct {
	baseURL string
	size    int
}

func NewRenderer(baseURL string) *Renderer {
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/"), size: DefaultSize}
}

// URL is the link a scanned receipt resolves to.
func (r *Renderer) URL(token uuid.UUID) string {
	return r.baseURL + "/" + token.String()
}

// PNG encodes URL(token) as a QR code image.
func (r *Renderer) PNG(token uuid.UUID) ([]byte, error) {
	png, err := qrcode.Encode(r.URL(token), qrcode.Medium, r.size)
	if err != nil {
		return nil, fmt.Errorf("render receipt qr: %w", err)
	}
	return png, nil
}
