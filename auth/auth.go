// Package auth combines keystore and apdu to issue MIFARE authenticate
// commands, including the slot-selection and coalesced-load algorithm of
// spec.md §4.4. It generalizes classic.Classic.Authenticate (which always
// assumes the caller already loaded the right slot) into the full
// "find-or-load-then-authenticate" flow.
package auth

import (
	"github.com/oo-developer/nfccore/apdu"
	"github.com/oo-developer/nfccore/corerr"
	"github.com/oo-developer/nfccore/keystore"
)

// Transmitter is the capability Authenticate needs to issue the
// Authenticate APDU (and, via keystore, the Load Auth Key APDU).
// session.Session satisfies this.
type Transmitter interface {
	Transmit(data []byte) ([]byte, error)
}

// Authenticate issues MIFARE authentication for block using keyType
// (apdu.KeyTypeA or apdu.KeyTypeB) and keyHex (the key as hex, any case).
// If obsolete is true, the V2.01 Authenticate form is used instead of the
// default V2.07 form (spec.md §4.4).
func Authenticate(store *keystore.Store, t Transmitter, block byte, keyType byte, keyHex string, obsolete bool) error {
	key, err := decodeKey(keyHex)
	if err != nil {
		return corerr.New(corerr.KindAuthentication, corerr.CodeInvalidKey, err.Error())
	}

	slot := store.FindKeyNumber(key)
	if slot == -1 {
		slot = store.PickSlot()
		if _, err := store.LoadCoalesced(t, slot, key); err != nil {
			return corerr.Wrap(corerr.KindAuthentication, corerr.CodeUnableToLoadKey, "unable to load authentication key", err)
		}
	}

	var cmd []byte
	if obsolete {
		cmd = apdu.AuthenticateV201(block, keyType, byte(slot))
	} else {
		cmd = apdu.Authenticate(block, keyType, byte(slot))
	}

	resp, err := t.Transmit(cmd)
	if err != nil {
		return corerr.Failure(corerr.KindAuthentication, "authenticate transmit failed", err)
	}
	_, status, err := apdu.Validate(resp)
	if err != nil {
		return corerr.New(corerr.KindAuthentication, corerr.CodeInvalidResponse, err.Error())
	}
	if !apdu.IsSuccess(status) {
		return corerr.OperationFailed(corerr.KindAuthentication, apdu.FormatStatus(status))
	}
	return nil
}

func decodeKey(keyHex string) ([]byte, error) {
	key, err := decodeHex(keyHex)
	if err != nil {
		return nil, err
	}
	if len(key) != 6 {
		return nil, errInvalidKeyLength
	}
	return key, nil
}
