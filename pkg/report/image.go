package report

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// ErrInvalidImage is returned when logo bytes are not a PNG, JPEG or GIF.
var ErrInvalidImage = errors.New("logo is not a valid PNG, JPEG or GIF image")

// Logo is a decoded logo ready to embed.
type Logo struct {
	Data      []byte
	Width     int
	Height    int
	Extension string
}

// DecodeLogo reads the image header to find the logo's format and size.
func DecodeLogo(data []byte) (*Logo, error) {
	if len(data) == 0 {
		return nil, ErrInvalidImage
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrInvalidImage
	}

	ext := "." + format
	if format == "jpeg" {
		ext = ".jpg"
	}
	return &Logo{Data: data, Width: cfg.Width, Height: cfg.Height, Extension: ext}, nil
}

// ContentType is the MIME type for the logo's format.
func (l *Logo) ContentType() string {
	switch l.Extension {
	case ".jpg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	default:
		return "image/png"
	}
}
