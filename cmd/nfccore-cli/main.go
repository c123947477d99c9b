// Command nfccore-cli is a sample consumer of the nfccore library: list
// PC/SC readers, subscribe to reader events, and on card insertion run a
// MIFARE Classic authenticate/read demo (it writes nothing to the card).
// It generalizes the
// teacher's linear main.go (list readers, WaitForCard, Connect, GetUID,
// authenticate, read, write, dump) into an event-driven consumer of
// reader.Manager, and replaces the teacher's hard-coded key constant with
// interactive masked entry grounded on barnettlynn-nfctools/keyswap's use
// of golang.org/x/term for a terminal UI.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/oo-developer/nfccore/auth"
	"github.com/oo-developer/nfccore/blockio"
	"github.com/oo-developer/nfccore/config"
	"github.com/oo-developer/nfccore/internal/corelog"
	"github.com/oo-developer/nfccore/keystore"
	"github.com/oo-developer/nfccore/provider"
	"github.com/oo-developer/nfccore/reader"
	"github.com/oo-developer/nfccore/reader/event"
)

func main() {
	configPath := flag.String("config", "", "path to a ReaderConfig YAML file (optional)")
	blockFlag := flag.Uint("block", 4, "MIFARE block number to authenticate and read")
	flag.Parse()

	log := corelog.New()

	cfg := config.ReaderConfig{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	prov, err := provider.NewSCardProvider()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] failed to establish PC/SC context: %v\n", err)
		os.Exit(1)
	}

	bus := event.New(nil)
	manager := reader.NewManager(prov, cfg, bus, log)
	ioOpts := blockio.Options{BlockSize: cfg.BlockSize, PacketSize: cfg.PacketSize}

	readerCh := bus.Register("reader")
	errCh := bus.Register("error")

	if err := manager.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] failed to start manager: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	fmt.Println("[OK] Waiting for readers...")

	select {
	case ev := <-readerCh:
		r := ev.Data.(*reader.Reader)
		fmt.Printf("[OK] Reader online: %s\n", r.Name)
		runDemo(r, byte(*blockFlag), ioOpts)
	case err := <-errCh:
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}
}

// runDemo waits for the first card event on r, then authenticates block
// with the entered key A and reads one block's worth of bytes from it,
// gated behind an actual card-present event instead of a blocking
// WaitForCard call. It does not write to the card.
func runDemo(r *reader.Reader, block byte, ioOpts blockio.Options) {
	cardCh := make(event.Channel, 1)
	r.On("card", cardCh)

	fmt.Println("[OK] Waiting for card...")
	ev := <-cardCh
	card := ev.Data.(reader.Card)
	fmt.Printf("[OK] Card present: type=%s uid=%s\n", card.Type, card.UID)

	keyHex, err := promptForKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] failed to read key: %v\n", err)
		return
	}

	store := keystore.New()

	fmt.Printf("[OK] Authenticating block %d...\n", block)
	if err := auth.Authenticate(store, r, block, 0x60, keyHex, false); err != nil {
		fmt.Printf("[ERROR] authentication failed: %v\n", err)
		return
	}

	readLen := ioOpts.BlockSize
	if readLen <= 0 {
		readLen = blockio.DefaultBlockSize
	}
	data, err := blockio.Read(r, int(block), readLen, ioOpts)
	if err != nil {
		fmt.Printf("[ERROR] read failed: %v\n", err)
		return
	}
	fmt.Printf("[OK] Block %d data: %s\n", block, hex.EncodeToString(data))
}

// promptForKey reads a 6-byte MIFARE key as hex from the terminal with
// input masked, the way keyswap's terminal UI avoids echoing secrets.
func promptForKey() (string, error) {
	fmt.Print("Enter MIFARE key (12 hex chars): ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
