package auth

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oo-developer/nfccore/apdu"
	"github.com/oo-developer/nfccore/corerr"
	"github.com/oo-developer/nfccore/keystore"
)

type fakeCard struct {
	mu       sync.Mutex
	commands [][]byte
	delay    chan struct{}
	// started, if set, is closed the first time a Load Auth Key (0x82)
	// command blocks on delay — the signal a caller needs to know the
	// pending-load entry is registered before racing a second goroutine
	// against it.
	started     chan struct{}
	startedOnce sync.Once
}

func (f *fakeCard) Transmit(data []byte) ([]byte, error) {
	f.mu.Lock()
	f.commands = append(f.commands, append([]byte(nil), data...))
	f.mu.Unlock()
	if f.delay != nil && data[1] == 0x82 {
		if f.started != nil {
			f.startedOnce.Do(func() { close(f.started) })
		}
		<-f.delay
	}
	return []byte{0x90, 0x00}, nil
}

func (f *fakeCard) count(ins byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.commands {
		if c[1] == ins {
			n++
		}
	}
	return n
}

// S4 from spec.md §8.
func TestScenarioS4LoadThenAuthenticate(t *testing.T) {
	store := keystore.New()
	card := &fakeCard{}

	require.NoError(t, authLoad(t, store, card))

	err := Authenticate(store, card, 0x04, apdu.KeyTypeA, "FFFFFFFFFFFF", false)
	require.NoError(t, err)

	assert.Equal(t, [][]byte{
		{0xFF, 0x86, 0x00, 0x00, 0x05, 0x01, 0x00, 0x04, 0x60, 0x00},
	}, lastCommandsByIns(card, 0x86))
}

func authLoad(t *testing.T, store *keystore.Store, card *fakeCard) error {
	t.Helper()
	_, err := store.Load(card, 0, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	return err
}

func lastCommandsByIns(card *fakeCard, ins byte) [][]byte {
	card.mu.Lock()
	defer card.mu.Unlock()
	var out [][]byte
	for _, c := range card.commands {
		if c[1] == ins {
			out = append(out, c)
		}
	}
	return out
}

func TestAuthenticateAutoLoadsMissingKey(t *testing.T) {
	store := keystore.New()
	card := &fakeCard{}
	err := Authenticate(store, card, 0x04, apdu.KeyTypeA, "AABBCCDDEEFF", false)
	require.NoError(t, err)
	assert.Equal(t, 1, card.count(0x82)) // Load Auth Key
	assert.Equal(t, 1, card.count(0x86)) // Authenticate
}

func TestAuthenticateObsoleteForm(t *testing.T) {
	store := keystore.New()
	card := &fakeCard{}
	err := Authenticate(store, card, 0x04, apdu.KeyTypeB, "AABBCCDDEEFF", true)
	require.NoError(t, err)
	assert.Equal(t, 1, card.count(0x88))
	assert.Equal(t, 0, card.count(0x86))
}

func TestAuthenticateInvalidKey(t *testing.T) {
	store := keystore.New()
	card := &fakeCard{}
	err := Authenticate(store, card, 0x04, apdu.KeyTypeA, "zz", false)
	require.Error(t, err)
	var cerr *corerr.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, corerr.CodeInvalidKey, cerr.Code)
}

// Invariant 4 from spec.md §8: two concurrent authenticate calls for the
// same uncached key coalesce into one load and observe the same slot.
//
// The first goroutine's Load Auth Key transmit blocks on delay; it only
// reaches that point after registering the pending-load entry in
// keystore.Store, so waiting on started before launching the second
// goroutine guarantees the second call joins the existing pending load
// instead of racing to start its own — no sleep-based timing needed.
func TestAuthenticateCoalescesConcurrentLoads(t *testing.T) {
	store := keystore.New()
	card := &fakeCard{delay: make(chan struct{}), started: make(chan struct{})}

	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = Authenticate(store, card, 0x04, apdu.KeyTypeA, "AABBCCDDEEFF", false)
	}()

	<-card.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[1] = Authenticate(store, card, 0x05, apdu.KeyTypeA, "AABBCCDDEEFF", false)
	}()

	close(card.delay)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 1, card.count(0x82))
	assert.Equal(t, 2, card.count(0x86))
}

func TestAuthenticateStatusFailure(t *testing.T) {
	store := keystore.New()
	card := &failingCard{}
	err := Authenticate(store, card, 0x04, apdu.KeyTypeA, "AABBCCDDEEFF", false)
	require.Error(t, err)
	var cerr *corerr.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, corerr.CodeOperationFailed, cerr.Code)
}

type failingCard struct{}

func (failingCard) Transmit(data []byte) ([]byte, error) {
	if data[1] == 0x82 {
		return []byte{0x90, 0x00}, nil
	}
	return []byte{0x63, 0x00}, nil
}
