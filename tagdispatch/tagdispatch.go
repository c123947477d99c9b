// Package tagdispatch picks 14443-3 vs 14443-4 processing based on a
// card's ATR and runs the corresponding UID-get or AID-SELECT exchange
// (spec.md §4.5). The 14443-3 path generalizes reader.GetUID; the 14443-4
// path has no teacher precedent (the teacher never selects an AID) and is
// built from the APDU table's SELECT AID row.
package tagdispatch

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/oo-developer/nfccore/apdu"
	"github.com/oo-developer/nfccore/corerr"
)

// Standard is one of the two tag standards this dispatcher distinguishes
// (spec.md §3).
type Standard int

const (
	StandardUnknown Standard = iota
	StandardISO14443_3
	StandardISO14443_4
)

func (s Standard) String() string {
	switch s {
	case StandardISO14443_3:
		return "TAG_ISO_14443_3"
	case StandardISO14443_4:
		return "TAG_ISO_14443_4"
	default:
		return "TAG_UNKNOWN"
	}
}

// Transmitter is the capability the dispatcher needs to issue APDUs.
// session.Session satisfies this.
type Transmitter interface {
	Transmit(data []byte) ([]byte, error)
}

// StandardOf classifies an ATR into a Standard. DefaultStandardOf
// implements spec.md §4.5's deliberately loose heuristic
// (atr[5] == 0x4F); consumers may supply their own via Reader.SetStandardOf
// per spec.md §9's instruction to expose, not "improve", the heuristic.
type StandardOf func(atr []byte) Standard

// DefaultStandardOf is the ATR-byte-5 heuristic from spec.md §4.5/§8
// (invariant 6): atr[5] == 0x4F => ISO_14443_3, else ISO_14443_4. Only
// applies when len(atr) > 5; shorter ATRs yield StandardUnknown.
func DefaultStandardOf(atr []byte) Standard {
	if len(atr) <= 5 {
		return StandardUnknown
	}
	if atr[5] == 0x4F {
		return StandardISO14443_3
	}
	return StandardISO14443_4
}

// AIDSource resolves the AID to SELECT for the 14443-4 path, given the
// card's current snapshot. card is an `any` here (rather than reader.Card)
// to avoid an import cycle between tagdispatch and reader; the reader
// package supplies its own Card value at the call site.
type AIDSource func(card any) ([]byte, error)

// Result is what a successful dispatch produces: either a UID (14443-3)
// or SELECT response data (14443-4).
type Result struct {
	Standard Standard
	UID      string // hex, 14443-3 only
	Data     []byte // SELECT payload with status word stripped, 14443-4 only
}

// uidResponseBudget is the response size budget for Get UID (spec.md §4.5).
const uidResponseBudget = 12

// selectResponseBudget is the response size budget for SELECT AID (spec.md §4.5).
const selectResponseBudget = 40

// DispatchISO14443_3 runs the Get-UID exchange and returns the UID as
// lowercase hex (spec.md §4.5, scenario S1 in spec.md §8).
func DispatchISO14443_3(t Transmitter) (Result, error) {
	resp, err := t.Transmit(apdu.GetUID())
	if err != nil {
		return Result{}, corerr.Failure(corerr.KindGetUID, "get uid transmit failed", err)
	}
	if len(resp) > uidResponseBudget {
		return Result{}, corerr.New(corerr.KindGetUID, corerr.CodeInvalidResponse, "response exceeds budget")
	}
	payload, status, err := apdu.Validate(resp)
	if err != nil {
		return Result{}, corerr.New(corerr.KindGetUID, corerr.CodeInvalidResponse, err.Error())
	}
	if !apdu.IsSuccess(status) {
		return Result{}, corerr.OperationFailed(corerr.KindGetUID, apdu.FormatStatus(status))
	}
	return Result{Standard: StandardISO14443_3, UID: hex.EncodeToString(payload)}, nil
}

// DispatchISO14443_4 resolves aid (literal or, if source is non-nil, via
// source(card)) and runs the SELECT AID exchange (spec.md §4.5,
// scenarios S2/S3 in spec.md §8).
func DispatchISO14443_4(t Transmitter, aid []byte, source AIDSource, card any) (Result, error) {
	resolved := aid
	if source != nil {
		dynamic, err := source(card)
		if err != nil {
			return Result{}, fmt.Errorf("tagdispatch: AID callable failed: %w", err)
		}
		resolved = dynamic
	}
	if len(resolved) == 0 {
		return Result{}, fmt.Errorf("tagdispatch: AID is not configured")
	}

	resp, err := t.Transmit(apdu.SelectAID(resolved))
	if err != nil {
		return Result{}, fmt.Errorf("tagdispatch: select aid transmit failed: %w", err)
	}
	if len(resp) > selectResponseBudget {
		return Result{}, fmt.Errorf("tagdispatch: select aid response exceeds budget")
	}
	payload, status, err := apdu.Validate(resp)
	if err != nil {
		return Result{}, fmt.Errorf("tagdispatch: %w", err)
	}

	switch status {
	case apdu.StatusFileNotFound:
		return Result{}, fmt.Errorf("tagdispatch: tag not compatible (AID %s)", strings.ToUpper(hex.EncodeToString(resolved)))
	case apdu.StatusSuccess:
		return Result{Standard: StandardISO14443_4, Data: payload}, nil
	default:
		return Result{}, fmt.Errorf("tagdispatch: select aid failed with status %s", apdu.FormatStatus(status))
	}
}
