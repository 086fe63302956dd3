// Package badge builds the QR credential printed for each roster member.
package badge

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"regexp"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// Rendering parameters of the printed credential.
const (
	Width  = 300
	Margin = 2
)

var (
	Dark  = color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	Light = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

const dataURLPrefix = "data:image/png;base64,"

// ErrNotDataURL is returned when stored QR data is not a PNG data URL.
var ErrNotDataURL = errors.New("badge: not a png data url")

// Payload is the identity subset encoded into the QR image.
// Field names are the wire format read by the scanner.
type Payload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	EnrollmentNo string `json:"enrollmentNo"`
	Course       string `json:"course"`
	Branch       string `json:"branch"`
	Semester     string `json:"semester"`
	Date         string `json:"date"`
	Time         string `json:"time"`
}

// Text returns the JSON text placed in the QR code.
func (p Payload) Text() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParsePayload decodes the text read from a scanned badge.
func ParsePayload(text string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &p); err != nil {
		return Payload{}, fmt.Errorf("badge: decode payload: %w", err)
	}
	return p, nil
}

// Encode renders p as a Width x Width PNG.
func Encode(p Payload) ([]byte, error) {
	text, err := p.Text()
	if err != nil {
		return nil, err
	}
	q, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("badge: encode qr: %w", err)
	}
	q.DisableBorder = true
	img := paint(q.Bitmap(), Width, Margin)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("badge: write png: %w", err)
	}
	return buf.Bytes(), nil
}

// paint scales the module matrix onto a width x width image with a quiet zone
// of margin modules. The scale may be fractional so the image is exactly width.
func paint(modules [][]bool, width, margin int) *image.Paletted {
	n := len(modules)
	total := n + 2*margin
	img := image.NewPaletted(image.Rect(0, 0, width, width), color.Palette{Light, Dark})
	for y := 0; y < width; y++ {
		my := y*total/width - margin
		for x := 0; x < width; x++ {
			mx := x*total/width - margin
			if my >= 0 && my < n && mx >= 0 && mx < n && modules[my][mx] {
				img.SetColorIndex(x, y, 1)
			}
		}
	}
	return img
}

// DataURL wraps PNG bytes into a data URL.
func DataURL(pngData []byte) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(pngData)
}

// DecodeDataURL is the inverse of DataURL.
func DecodeDataURL(s string) ([]byte, error) {
	if !strings.HasPrefix(s, dataURLPrefix) {
		return nil, ErrNotDataURL
	}
	b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, dataURLPrefix))
	if err != nil {
		return nil, fmt.Errorf("badge: decode data url: %w", err)
	}
	return b, nil
}

var whitespace = regexp.MustCompile(`\s+`)

// Filename is the download name for a person's badge.
func Filename(name string) string {
	return whitespace.ReplaceAllString(name, "_") + "_qr_code.png"
}
