package provider

import (
	"time"

	"github.com/ebfe/scard"
)

// SCardProvider adapts github.com/ebfe/scard to the Provider interface.
// It is the direct generalization of hardware.Reader's ctx/card fields in
// the teacher repo: same EstablishContext/ListReaders/GetStatusChange/
// Connect calls, now behind an interface boundary.
type SCardProvider struct {
	ctx *scard.Context
}

// NewSCardProvider establishes a PC/SC context and returns a Provider
// backed by it.
func NewSCardProvider() (*SCardProvider, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, err
	}
	return &SCardProvider{ctx: ctx}, nil
}

func (p *SCardProvider) ListReaders() ([]string, error) {
	return p.ctx.ListReaders()
}

func (p *SCardProvider) GetStatusChange(states []ReaderState, timeout time.Duration) error {
	native := make([]scard.ReaderState, len(states))
	for i, s := range states {
		native[i] = scard.ReaderState{
			Reader:       s.Reader,
			CurrentState: scard.StateFlag(s.CurrentState),
		}
	}
	if err := p.ctx.GetStatusChange(native, timeout); err != nil {
		return err
	}
	for i := range native {
		states[i].EventState = StateFlag(native[i].EventState)
		states[i].Atr = native[i].Atr
	}
	return nil
}

func (p *SCardProvider) Connect(reader string, mode ShareMode, protocol Protocol) (Card, error) {
	card, err := p.ctx.Connect(reader, scard.ShareMode(mode), scard.Protocol(protocol))
	if err != nil {
		return nil, err
	}
	return &scardCard{card: card}, nil
}

func (p *SCardProvider) Close() error {
	return p.ctx.Release()
}

type scardCard struct {
	card *scard.Card
}

func (c *scardCard) Transmit(cmd []byte) ([]byte, error) {
	return c.card.Transmit(cmd)
}

func (c *scardCard) Control(ioctl uint32, cmd []byte) ([]byte, error) {
	return c.card.Control(ioctl, cmd)
}

func (c *scardCard) Disconnect(disposition Disposition) error {
	return c.card.Disconnect(scard.Disposition(disposition))
}
