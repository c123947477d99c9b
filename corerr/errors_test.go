package corerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	e := New(KindTransmit, CodeCardNotConnected, "")
	assert.Equal(t, "Transmit/card_not_connected", e.Error())
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := Failure(KindConnect, "connect failed", cause)
	assert.True(t, errors.Is(e, cause))
	assert.ErrorContains(t, e, "Connect/failure")
}

func TestOperationFailed(t *testing.T) {
	e := OperationFailed(KindAuthentication, "6A82")
	assert.Equal(t, KindAuthentication, e.Kind)
	assert.Equal(t, CodeOperationFailed, e.Code)
	assert.Contains(t, e.Message, "6A82")
}
