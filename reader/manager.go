package reader

import (
	"strings"
	"sync"

	"github.com/oo-developer/nfccore/config"
	"github.com/oo-developer/nfccore/internal/corelog"
	"github.com/oo-developer/nfccore/provider"
	"github.com/oo-developer/nfccore/reader/event"
)

// Manager is the Provider Adapter (spec.md §4.7): it owns the
// provider.Provider, enumerates readers, classifies each by a
// case-insensitive substring match on its name, and constructs + emits
// one Reader per slot. It generalizes hardware.NewReader's
// scard.EstablishContext()+ctx.ListReaders() from "take the first reader,
// always" into "enumerate all, emit one Reader each".
type Manager struct {
	prov provider.Provider
	cfg  config.ReaderConfig
	log  corelog.Logger
	bus  *event.Bus

	mu      sync.Mutex
	readers map[string]*Reader
}

// vendorSubstrings are the case-insensitive name fragments spec.md §4.7
// classifies as vendor-extended readers (ACR122U/ACR125 family).
var vendorSubstrings = []string{"acr122", "acr125"}

// NewManager constructs a Manager over prov, emitting lifecycle events on
// bus and logging via log.
func NewManager(prov provider.Provider, cfg config.ReaderConfig, bus *event.Bus, log corelog.Logger) *Manager {
	return &Manager{
		prov:    prov,
		cfg:     cfg,
		log:     log,
		bus:     bus,
		readers: make(map[string]*Reader),
	}
}

// IsVendorExtended reports whether name matches one of the recognized
// vendor substrings (spec.md §4.7).
func IsVendorExtended(name string) bool {
	lower := strings.ToLower(name)
	for _, frag := range vendorSubstrings {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// Start enumerates readers from the provider, constructs a Reader for
// each, starts its state-machine goroutine, and emits each on the
// top-level "reader" event; enumeration failures are forwarded on
// "error" (spec.md §4.7).
func (m *Manager) Start() error {
	names, err := m.prov.ListReaders()
	if err != nil {
		m.bus.Post("error", err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range names {
		if _, exists := m.readers[name]; exists {
			continue
		}
		r := newReader(name, m.prov, m.cfg, m.bus, m.log)
		m.readers[name] = r
		go r.run()
		m.bus.Post("reader", r)
	}
	return nil
}

// Readers returns the currently constructed readers, keyed by name.
func (m *Manager) Readers() map[string]*Reader {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*Reader, len(m.readers))
	for k, v := range m.readers {
		out[k] = v
	}
	return out
}

// Close stops every constructed reader and releases the provider.
func (m *Manager) Close() error {
	m.mu.Lock()
	readers := make([]*Reader, 0, len(m.readers))
	for _, r := range m.readers {
		readers = append(readers, r)
	}
	m.mu.Unlock()

	for _, r := range readers {
		r.Close()
	}
	return m.prov.Close()
}
