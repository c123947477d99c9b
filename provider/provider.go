// Package provider defines the PC/SC capability this library consumes:
// reader enumeration, status-change subscription, connect/transmit/
// control/disconnect, and the platform constants those operations need.
// spec.md §1 scopes the underlying PC/SC stack as an external collaborator;
// Provider/Card are the seam that keeps it that way so the rest of this
// module never imports github.com/ebfe/scard directly.
package provider

import "time"

// StateFlag mirrors the scard.StateFlag bitmask returned from a status
// change. Only the bits this library inspects are named; others pass
// through untouched.
type StateFlag uint32

const (
	StateUnaware  StateFlag = 0x0000
	StateIgnore   StateFlag = 0x0001
	StateChanged  StateFlag = 0x0002
	StateUnknown  StateFlag = 0x0004
	StateUnavail  StateFlag = 0x0008
	StateEmpty    StateFlag = 0x0010
	StatePresent  StateFlag = 0x0020
	StateAtrmatch StateFlag = 0x0040
	StateExclusiv StateFlag = 0x0080
	StateInuse    StateFlag = 0x0100
	StateMute     StateFlag = 0x0200
)

// ShareMode mirrors scard.ShareMode.
type ShareMode uint32

const (
	ShareExclusive ShareMode = 1
	ShareShared    ShareMode = 2
	ShareDirect    ShareMode = 3
)

// Protocol mirrors scard.Protocol.
type Protocol uint32

const (
	ProtocolUndefined Protocol = 0x0000
	ProtocolT0        Protocol = 0x0001
	ProtocolT1        Protocol = 0x0002
	ProtocolRaw       Protocol = 0x0004
	ProtocolAny                = ProtocolT0 | ProtocolT1
)

// Disposition mirrors scard.Disposition.
type Disposition uint32

const (
	LeaveCard   Disposition = 0
	ResetCard   Disposition = 1
	UnpowerCard Disposition = 2
	EjectCard   Disposition = 3
)

// ReaderState is one entry of a GetStatusChange call: the reader name, the
// state the caller believes is current, and (filled in on return) the
// state the provider observed plus the card's ATR if present.
type ReaderState struct {
	Reader       string
	CurrentState StateFlag
	EventState   StateFlag
	Atr          []byte
}

// Card is a connection to a card obtained through Provider.Connect.
type Card interface {
	// Transmit sends an APDU using the connection's negotiated protocol
	// and returns the raw response (status word included).
	Transmit(cmd []byte) ([]byte, error)
	// Control sends a vendor escape command via ioctl and returns the
	// raw response.
	Control(ioctl uint32, cmd []byte) ([]byte, error)
	// Disconnect ends the connection with the given disposition.
	Disconnect(disposition Disposition) error
}

// Provider is the PC/SC capability: reader enumeration, status-change
// subscription and card connection. A production implementation wraps
// github.com/ebfe/scard (see SCardProvider); tests substitute a fake.
type Provider interface {
	// ListReaders returns the names of all readers currently known to
	// the provider.
	ListReaders() ([]string, error)
	// GetStatusChange blocks until any reader's state changes (or
	// timeout elapses), updating EventState/Atr on each entry in place.
	GetStatusChange(states []ReaderState, timeout time.Duration) error
	// Connect opens a connection to a card on the given reader.
	Connect(reader string, mode ShareMode, protocol Protocol) (Card, error)
	// Close releases the provider's resources (the PC/SC context).
	Close() error
}
