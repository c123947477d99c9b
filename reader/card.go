package reader

import "github.com/oo-developer/nfccore/tagdispatch"

// Card is the transient descriptor that exists from insertion to removal
// (spec.md §3). It is copied by value into every emitted event — the Go
// rendering of the source's `{...this.card}` object spread (spec.md §9) —
// so a consumer mutating a received Card cannot corrupt reader-owned
// state.
type Card struct {
	ATR      []byte
	Standard tagdispatch.Standard
	Type     string
	UID      string
	Data     []byte
}

// snapshot returns a defensive copy of c: every []byte field is copied so
// the returned value shares no backing array with the live Card.
func (c Card) snapshot() Card {
	out := c
	out.ATR = append([]byte(nil), c.ATR...)
	out.Data = append([]byte(nil), c.Data...)
	return out
}

func newCard(atr []byte) Card {
	standard := tagdispatch.StandardUnknown
	if len(atr) > 5 {
		standard = tagdispatch.DefaultStandardOf(atr)
	}
	return Card{
		ATR:      append([]byte(nil), atr...),
		Standard: standard,
		Type:     standard.String(),
	}
}
