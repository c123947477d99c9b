// Package reader implements the per-reader state machine and the
// provider-adapter that constructs one Reader per enumerated PC/SC
// reader (spec.md §4.6/§4.7). It is the one component with no direct
// teacher precedent for its event loop: hardware.Reader.WaitForCard
// blocks once for the first card and returns; Reader generalizes that
// same GetStatusChange polling primitive into a background loop that
// runs for the reader's lifetime, emitting lifecycle events instead of
// returning.
package reader

import (
	"time"

	"github.com/google/uuid"

	"github.com/oo-developer/nfccore/config"
	"github.com/oo-developer/nfccore/internal/corelog"
	"github.com/oo-developer/nfccore/provider"
	"github.com/oo-developer/nfccore/reader/event"
	"github.com/oo-developer/nfccore/session"
	"github.com/oo-developer/nfccore/tagdispatch"
)

// State is one of the five states spec.md §4.6 names.
type State int

const (
	StateIdle State = iota
	StateCardInserted
	StateConnected
	StateProcessing
	StateEnded
)

// statusPollInterval bounds how long a single GetStatusChange call
// blocks before the loop re-checks for a close request, mirroring
// hardware.Reader.WaitForCard's 30-second poll.
const statusPollInterval = 30 * time.Second

// Reader is the per-reader state machine (spec.md §4.6). It owns a
// session.Session and runs the tag dispatcher, and emits lifecycle
// events on a reader/event.Bus. It holds no key slots: callers that
// authenticate pass the Reader (as a Transmitter) together with a
// keystore.Store of their own to auth.Authenticate. Construct via
// manager, not directly.
type Reader struct {
	Name          string
	CorrelationID string

	// VendorExtended reports whether Manager classified this reader's
	// name as an ACR122U/ACR125-family device (spec.md §4.7). It is set
	// once at construction and never changes.
	VendorExtended bool

	prov       provider.Provider
	sess       *session.Session
	cfg        config.ReaderConfig
	log        corelog.Logger
	bus        *event.Bus
	aid        config.AID
	standardOf tagdispatch.StandardOf

	state        State
	card         *Card
	pollInterval time.Duration

	stop chan struct{}
	done chan struct{}
}

func pollIntervalFromConfig(cfg config.ReaderConfig) time.Duration {
	if cfg.StatusPollIntervalMS <= 0 {
		return statusPollInterval
	}
	return time.Duration(cfg.StatusPollIntervalMS) * time.Millisecond
}

func newReader(name string, prov provider.Provider, cfg config.ReaderConfig, bus *event.Bus, log corelog.Logger) *Reader {
	aid, err := cfg.AID()
	if err != nil {
		aid = config.AIDAbsent{}
	}
	id := uuid.New().String()
	r := &Reader{
		Name:           name,
		CorrelationID:  id,
		VendorExtended: IsVendorExtended(name),
		prov:           prov,
		sess:           session.New(prov, name),
		cfg:            cfg,
		log:            log.WithReader(name, id),
		bus:            bus,
		aid:            aid,
		standardOf:     tagdispatch.DefaultStandardOf,
		state:          StateIdle,
		pollInterval:   pollIntervalFromConfig(cfg),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	return r
}

// SetStandardOf overrides the ATR-based standard-selection heuristic
// (spec.md §9: exposed as a pluggable predicate, default unchanged).
func (r *Reader) SetStandardOf(fn tagdispatch.StandardOf) {
	if fn != nil {
		r.standardOf = fn
	}
}

// State returns the reader's current lifecycle state. It is a
// best-effort snapshot: the authoritative state is only ever mutated by
// the reader's own goroutine (spec.md §5), so a concurrent caller may
// observe a state one transition behind.
func (r *Reader) State() State {
	return r.state
}

// On subscribes receiver to one of this reader's named events: "card",
// "card.off", "error", "end" (spec.md §6).
func (r *Reader) On(topic string, receiver any) {
	r.bus.On(topic, receiver)
}

// Transmit forwards an APDU to the connected card, failing fast with
// card_not_connected if the Connection or Card has been cleared
// (spec.md §8 scenario S8).
func (r *Reader) Transmit(data []byte) ([]byte, error) {
	return r.sess.Transmit(data)
}

// run is the reader's dedicated goroutine (spec.md §5: one logical task
// stream per Reader). It loops GetStatusChange, edge-detects EMPTY/
// PRESENT transitions against the previous state, and drives connect/
// disconnect/dispatch — never touched concurrently from any other
// goroutine. A StateUnknown observation (the reader itself disappeared)
// or a stop request both end the loop via the terminal Ended state.
func (r *Reader) run() {
	defer close(r.done)

	states := []provider.ReaderState{{Reader: r.Name, CurrentState: provider.StateUnaware}}

	for {
		select {
		case <-r.stop:
			r.emitEnd()
			return
		default:
		}

		err := r.prov.GetStatusChange(states, r.pollInterval)
		if err != nil {
			r.log.WithError(err).Warnf("status change poll failed")
			r.bus.Post("error", err)
			continue
		}

		newState := states[0].EventState

		// StateUnknown means the resource manager no longer recognizes
		// this reader name — the hardware itself was unplugged, not just
		// a card. That's the reader-removal case spec.md §4.6 names as
		// the terminal Ended transition, distinct from a local Close().
		if newState&provider.StateUnknown != 0 {
			r.handleRemoval()
			r.emitEnd()
			return
		}

		changes := states[0].CurrentState ^ newState

		if changes&provider.StateEmpty != 0 && newState&provider.StateEmpty != 0 {
			r.handleRemoval()
		}
		if changes&provider.StatePresent != 0 && newState&provider.StatePresent != 0 {
			r.handleInsertion(states[0].Atr)
		}

		states[0].CurrentState = states[0].EventState
	}
}

// handleRemoval implements spec.md §4.6's EMPTY edge: emit card.off with
// the previous snapshot (if any), clear the card, disconnect if a
// connection is held.
func (r *Reader) handleRemoval() {
	if r.card != nil {
		r.bus.Post("card.off", r.card.snapshot())
		r.log.Infof("card removed")
	}
	r.card = nil
	if r.sess.Connected() {
		if err := r.sess.Disconnect(); err != nil {
			r.log.WithError(err).Warnf("disconnect on removal failed")
			r.bus.Post("error", err)
		}
	}
	r.state = StateIdle
}

// handleInsertion implements spec.md §4.6's PRESENT edge: build a fresh
// card from the ATR, connect in CARD mode, then either emit card
// immediately (autoProcessing disabled) or run the tag dispatcher.
func (r *Reader) handleInsertion(atr []byte) {
	card := newCard(atr)
	r.card = &card
	r.state = StateCardInserted

	if err := r.sess.Connect(session.ModeCard, provider.ProtocolAny); err != nil {
		r.log.WithError(err).Warnf("auto-connect failed")
		r.bus.Post("error", err)
		r.state = StateIdle
		return
	}
	r.state = StateConnected
	r.log.Infof("card inserted, connected")

	if !r.cfg.AutoProcessingEnabled() {
		r.bus.Post("card", r.card.snapshot())
		return
	}

	r.state = StateProcessing
	r.dispatch()
	r.state = StateConnected
}

// dispatch runs the tag dispatcher appropriate to the card's standard
// (spec.md §4.5), updating the card snapshot and emitting card/error.
func (r *Reader) dispatch() {
	standard := r.standardOf(r.card.ATR)
	r.card.Standard = standard
	r.card.Type = standard.String()

	switch standard {
	case tagdispatch.StandardISO14443_3:
		result, err := tagdispatch.DispatchISO14443_3(r.sess)
		if err != nil {
			r.log.WithError(err).Warnf("dispatch failed")
			r.bus.Post("error", err)
			return
		}
		r.card.UID = result.UID
		r.bus.Post("card", r.card.snapshot())

	default:
		aidSource, literal := r.resolveAID()
		result, err := tagdispatch.DispatchISO14443_4(r.sess, literal, aidSource, r.card.snapshot())
		if err != nil {
			r.log.WithError(err).Warnf("dispatch failed")
			r.bus.Post("error", err)
			return
		}
		r.card.Data = result.Data
		r.bus.Post("card", r.card.snapshot())
	}
}

func (r *Reader) resolveAID() (tagdispatch.AIDSource, []byte) {
	switch aid := r.aid.(type) {
	case config.AIDLiteral:
		return nil, aid
	case config.AIDDynamicFunc:
		return func(card any) ([]byte, error) { return aid(card) }, nil
	default:
		return nil, nil
	}
}

// emitEnd fires the terminal "end" event exactly once (spec.md §4.6).
func (r *Reader) emitEnd() {
	r.state = StateEnded
	r.bus.Post("end", nil)
	r.log.Infof("reader ended")
}

// Close stops the reader's goroutine and blocks until it exits.
func (r *Reader) Close() {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
	<-r.done
}
