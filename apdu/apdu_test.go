package apdu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAuthKey(t *testing.T) {
	key := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	cmd, err := LoadAuthKey(0, key)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x82, 0x00, 0x00, 0x06, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, cmd)

	_, err = LoadAuthKey(2, key)
	assert.Error(t, err)

	_, err = LoadAuthKey(0, key[:5])
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	// S4 from spec.md §8.
	cmd := Authenticate(0x04, KeyTypeA, 0x00)
	assert.Equal(t, []byte{0xFF, 0x86, 0x00, 0x00, 0x05, 0x01, 0x00, 0x04, 0x60, 0x00}, cmd)
}

func TestAuthenticateV201(t *testing.T) {
	cmd := AuthenticateV201(0x04, KeyTypeB, 0x01)
	assert.Equal(t, []byte{0xFF, 0x88, 0x00, 0x04, 0x61, 0x01}, cmd)
}

func TestReadBinaryDefaultsClass(t *testing.T) {
	cmd := ReadBinary(0x0104, 0x10, 0)
	assert.Equal(t, []byte{0xFF, 0xB0, 0x01, 0x04, 0x10}, cmd)
}

func TestReadBinaryCustomClass(t *testing.T) {
	cmd := ReadBinary(0x00, 0x10, 0x80)
	assert.Equal(t, []byte{0x80, 0xB0, 0x00, 0x00, 0x10}, cmd)
}

func TestUpdateBinary(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	cmd := UpdateBinary(0x01, data)
	assert.Equal(t, []byte{0xFF, 0xD6, 0x00, 0x01, 0x04, 1, 2, 3, 4}, cmd)
}

func TestGetUID(t *testing.T) {
	assert.Equal(t, []byte{0xFF, 0xCA, 0x00, 0x00, 0x00}, GetUID())
}

func TestSelectAID(t *testing.T) {
	aid := []byte{0xF0, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	cmd := SelectAID(aid)
	assert.Equal(t, []byte{0x00, 0xA4, 0x04, 0x00, 0x07, 0xF0, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x00}, cmd)
}

func TestValidateSuccess(t *testing.T) {
	// Invariant 1 from spec.md §8: payload is response[0:n-2], status read big-endian.
	payload, status, err := Validate([]byte{0x04, 0xA1, 0xB2, 0xC3, 0x90, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0xA1, 0xB2, 0xC3}, payload)
	assert.Equal(t, StatusSuccess, status)
	assert.True(t, IsSuccess(status))
}

func TestValidateTooShort(t *testing.T) {
	_, _, err := Validate([]byte{0x90})
	assert.Error(t, err)
}

func TestValidateFileNotFound(t *testing.T) {
	_, status, err := Validate([]byte{0x6A, 0x82})
	require.NoError(t, err)
	assert.Equal(t, StatusFileNotFound, status)
	assert.False(t, IsSuccess(status))
}

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "9000", FormatStatus(StatusSuccess))
	assert.Equal(t, "6A82", FormatStatus(StatusFileNotFound))
}
