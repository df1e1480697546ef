package ocr

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const dataURLMarker = "base64,"

// DecodeBase64Image decodes an image sent as base64, with or without a
// "data:image/jpeg;base64," prefix.
func DecodeBase64Image(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if idx := strings.Index(payload, dataURLMarker); idx >= 0 {
		payload = payload[idx+len(dataURLMarker):]
	}
	payload = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, payload)
	if payload == "" {
		return nil, ErrNoImage
	}

	var lastErr error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		data, err := enc.DecodeString(payload)
		if err == nil {
			if len(data) == 0 {
				return nil, ErrNoImage
			}
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidImage, lastErr)
}
