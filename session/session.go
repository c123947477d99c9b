// Package session owns one reader's connection handle and protocol, and
// enforces the card-present precondition on transmit. It generalizes
// hardware.Reader's ctx/card fields and Connect/Close from the teacher
// repo into the spec's connect/disconnect/transmit/control operations
// against a provider.Provider instead of a concrete *scard.Context.
package session

import (
	"runtime"
	"sync"

	"github.com/oo-developer/nfccore/corerr"
	"github.com/oo-developer/nfccore/provider"
)

// ConnectMode is the caller-facing share mode (spec.md §4.2).
type ConnectMode int

const (
	// ModeDirect requests a direct connection to the reader (no card
	// required) — maps to provider.ShareDirect.
	ModeDirect ConnectMode = iota
	// ModeCard requests a shared connection to the card in the reader —
	// maps to provider.ShareShared.
	ModeCard
)

// Connection describes an active PC/SC connection (spec.md §3).
type Connection struct {
	ShareMode ConnectMode
	Protocol  provider.Protocol
}

// Session owns a single reader's Connection. reader.Reader's own
// goroutine drives Connect/Disconnect (spec.md §5), but Transmit is also
// reachable directly from a caller's goroutine via Reader.Transmit (e.g.
// an auth/blockio operation running concurrently with the reader's
// status-poll loop), so card/conn access is mutex-guarded rather than
// assumed single-goroutine.
type Session struct {
	prov   provider.Provider
	reader string

	mu   sync.Mutex
	card *provider.Card
	conn *Connection
}

// New returns a Session bound to the named reader on prov. It holds no
// connection until Connect is called.
func New(prov provider.Provider, reader string) *Session {
	return &Session{prov: prov, reader: reader}
}

// Connect opens a connection in the given mode. DIRECT maps to
// provider.ShareDirect, CARD to provider.ShareShared; protocol defaults
// to ProtocolAny (T0|T1) when zero.
func (s *Session) Connect(mode ConnectMode, protocol provider.Protocol) error {
	var shareMode provider.ShareMode
	switch mode {
	case ModeDirect:
		shareMode = provider.ShareDirect
	case ModeCard:
		shareMode = provider.ShareShared
	default:
		return corerr.New(corerr.KindConnect, corerr.CodeInvalidMode, "unknown connect mode")
	}
	if protocol == provider.ProtocolUndefined {
		protocol = provider.ProtocolAny
	}

	card, err := s.prov.Connect(s.reader, shareMode, protocol)
	if err != nil {
		return corerr.Failure(corerr.KindConnect, "failed to connect to reader", err)
	}

	s.mu.Lock()
	s.card = &card
	s.conn = &Connection{ShareMode: mode, Protocol: protocol}
	s.mu.Unlock()
	return nil
}

// Disconnect closes the active connection, leaving the card powered
// (spec.md §4.2: "leave card" disposition).
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.conn == nil || s.card == nil {
		s.mu.Unlock()
		return corerr.New(corerr.KindDisconnect, corerr.CodeNotConnected, "no active connection")
	}
	card := *s.card
	s.mu.Unlock()

	if err := card.Disconnect(provider.LeaveCard); err != nil {
		return corerr.Failure(corerr.KindDisconnect, "failed to disconnect", err)
	}

	s.mu.Lock()
	s.card = nil
	s.conn = nil
	s.mu.Unlock()
	return nil
}

// Connected reports whether a connection is currently open.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil && s.card != nil
}

// Transmit forwards data to the card, requiring an open connection
// (spec.md §4.2: "card_not_connected" precondition).
func (s *Session) Transmit(data []byte) ([]byte, error) {
	s.mu.Lock()
	if s.card == nil || s.conn == nil {
		s.mu.Unlock()
		return nil, corerr.New(corerr.KindTransmit, corerr.CodeCardNotConnected, "no card connected")
	}
	card := *s.card
	s.mu.Unlock()

	resp, err := card.Transmit(data)
	if err != nil {
		return nil, corerr.Failure(corerr.KindTransmit, "transmit failed", err)
	}
	return resp, nil
}

// Control sends a vendor escape command; it requires only a Connection,
// not a Card (spec.md §4.2).
func (s *Session) Control(data []byte) ([]byte, error) {
	s.mu.Lock()
	if s.card == nil || s.conn == nil {
		s.mu.Unlock()
		return nil, corerr.New(corerr.KindControl, corerr.CodeNotConnected, "no active connection")
	}
	card := *s.card
	s.mu.Unlock()

	resp, err := card.Control(ctlCode(), data)
	if err != nil {
		return nil, corerr.Failure(corerr.KindControl, "control failed", err)
	}
	return resp, nil
}

// ctlCode computes IOCTL_CCID_ESCAPE per spec.md §4.2: on Windows
// (0x31 << 16) | (3500 << 2), equivalently SCARD_CTL_CODE(3500);
// elsewhere SCARD_CTL_CODE(1), i.e. 0x42000000 + 1.
func ctlCode() uint32 {
	if runtime.GOOS == "windows" {
		return scardCtlCode(3500)
	}
	return scardCtlCode(1)
}

func scardCtlCode(code uint32) uint32 {
	if runtime.GOOS == "windows" {
		return (0x31 << 16) | (code << 2)
	}
	return 0x42000000 + code
}
