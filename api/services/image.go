package services

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/revocity/revocity/api/apperr"
)

// Image is a decoded upload ready to be stored or sent to the AI gateway
type Image struct {
	Data     []byte
	MIMEType string
}

// DataURI renders the image as a base64 data URI for chat completion image parts
func (i *Image) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType, base64.StdEncoding.EncodeToString(i.Data))
}

// Extension returns the file extension matching the detected format
func (i *Image) Extension() string {
	switch i.MIMEType {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "jpg"
	}
}

// DecodeImage accepts raw base64 or a data URI and validates size and format
func DecodeImage(encoded string, maxBytes int) (*Image, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, apperr.Validation("imageBase64", "No image provided")
	}

	if idx := strings.Index(encoded, "base64,"); idx >= 0 {
		encoded = encoded[idx+len("base64,"):]
	}

	// Reject before decoding when the encoded form alone is over the limit
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(encoded)) > maxBytes+3 {
		return nil, apperr.Validation("imageBase64", fmt.Sprintf("Image too large. Maximum size is %dMB", maxBytes/(1024*1024)))
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperr.Validation("imageBase64", "Image is not valid base64")
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, apperr.Validation("imageBase64", fmt.Sprintf("Image too large. Maximum size is %dMB", maxBytes/(1024*1024)))
	}

	mimeType := detectImageFormat(data)
	if mimeType == "" {
		return nil, apperr.Validation("imageBase64", "Unsupported image format. Allowed: jpeg, png, gif, webp")
	}

	return &Image{Data: data, MIMEType: mimeType}, nil
}

// detectImageFormat checks magic bytes for the formats the AI gateway accepts
func detectImageFormat(data []byte) string {
	if len(data) < 8 {
		return ""
	}

	// JPEG
	if data[0] == 0xFF && data[1] == 0xD8 {
		return "image/jpeg"
	}

	// PNG
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 &&
		data[4] == 0x0D && data[5] == 0x0A && data[6] == 0x1A && data[7] == 0x0A {
		return "image/png"
	}

	// WebP
	if len(data) >= 12 &&
		data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}

	// GIF87a / GIF89a
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 &&
		(data[4] == 0x37 || data[4] == 0x39) && data[5] == 0x61 {
		return "image/gif"
	}

	return ""
}
