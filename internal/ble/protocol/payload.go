// Package protocol implements the exchange payload: a single short text
// message carried as the whole value of one characteristic write or
// notification. There is no framing, length prefix or versioning.
package protocol

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// MaxPayloadBytes is the largest attribute value ATT allows.
const MaxPayloadBytes = 512

// ErrInvalidText is returned by Decode for payloads that are not UTF-8.
var ErrInvalidText = errors.New("protocol: payload is not valid UTF-8")

// Encode returns the bytes of text unchanged.
func Encode(text string) []byte {
	return []byte(text)
}

// Decode converts a payload back to text. Invalid UTF-8 is rejected rather
// than replaced so that a corrupted payload can never compare equal to an
// expected message.
func Decode(payload []byte) (string, error) {
	if !utf8.Valid(payload) {
		return "", fmt.Errorf("%w (%d bytes)", ErrInvalidText, len(payload))
	}
	return string(payload), nil
}
