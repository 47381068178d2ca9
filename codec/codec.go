// Package codec frames binary media payloads as transportable text.
package codec

import (
	"encoding/base64"
	"fmt"
)

// Encode converts raw media bytes to their text form for encryption.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode converts the text form back to raw media bytes.
func Decode(text string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("decode media payload: %w", err)
	}
	return data, nil
}
