package auth

import (
	"encoding/hex"
	"errors"
)

var errInvalidKeyLength = errors.New("auth: key must decode to 6 bytes")

func decodeHex(keyHex string) ([]byte, error) {
	return hex.DecodeString(keyHex)
}
