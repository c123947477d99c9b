// Package config declares the process-wide Reader configuration
// (spec.md §3 "AID configuration", §6 "Configuration on Reader") and its
// YAML-loadable form. Grounded on glennswest-ipmiserial/config/config.go's
// YAML-tagged struct style and barnettlynn-nfctools/sdmconfig's use of
// gopkg.in/yaml.v3 for on-disk settings.
package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AID is the tagged union spec.md §3 describes: absent, a literal byte
// string, or a dynamic provider callable. ParseAID(nil) and an empty
// ReaderConfig.AIDHex both yield AIDAbsent.
type AID interface {
	isAID()
}

// AIDAbsent means no AID is configured (the 14443-4 dispatch path fails
// with a configuration error until one is set).
type AIDAbsent struct{}

func (AIDAbsent) isAID() {}

// AIDLiteral is a fixed AID byte string.
type AIDLiteral []byte

func (AIDLiteral) isAID() {}

// AIDDynamicFunc resolves the AID at dispatch time from the current card
// snapshot. card is `any` here for the same reason as
// tagdispatch.AIDSource: avoiding an import cycle with the reader package.
type AIDDynamicFunc func(card any) ([]byte, error)

func (AIDDynamicFunc) isAID() {}

// ParseAID validates and converts a raw configuration value into an AID,
// per spec.md §3: "hex strings are decoded on assignment; anything else
// is rejected with a configuration error."
func ParseAID(value any) (AID, error) {
	switch v := value.(type) {
	case nil:
		return AIDAbsent{}, nil
	case string:
		decoded, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("config: aid hex string invalid: %w", err)
		}
		return AIDLiteral(decoded), nil
	case []byte:
		return AIDLiteral(v), nil
	case func(any) ([]byte, error):
		return AIDDynamicFunc(v), nil
	case AIDDynamicFunc:
		return v, nil
	default:
		return nil, fmt.Errorf("config: aid must be a hex string, []byte, or func(card) ([]byte, error); got %T", value)
	}
}

// KeyPreset is a named default MIFARE key pair, the shape of
// classic.DefaultKeys lifted into data instead of a hard-coded Go map, so
// it can be overridden from YAML (e.g. a site's own "house" key).
type KeyPreset struct {
	Name  string `yaml:"name"`
	KeyA  string `yaml:"key_a"` // hex
	KeyB  string `yaml:"key_b"` // hex
	Usage string `yaml:"usage"`
}

// DefaultKeyPresets mirrors classic.DefaultKeys verbatim (same names,
// keys, and usage strings), just expressed as data instead of a package
// variable of byte slices.
var DefaultKeyPresets = []KeyPreset{
	{Name: "factory", KeyA: "FFFFFFFFFFFF", KeyB: "FFFFFFFFFFFF", Usage: "Factory Default"},
	{Name: "access_hid", KeyA: "A0A1A2A3A4A5", KeyB: "B0B1B2B3B4B5", Usage: "HID Access Control"},
	{Name: "zero", KeyA: "000000000000", KeyB: "000000000000", Usage: "Hotel/Student Cards"},
	{Name: "chinese", KeyA: "D3F7D3F7D3F7", KeyB: "D3F7D3F7D3F7", Usage: "Chinese Door Locks"},
	{Name: "mifare_std", KeyA: "1A982C7E459A", KeyB: "D3F7D3F7D3F7", Usage: "MIFARE Standard"},
	{Name: "nfc", KeyA: "000000000000", KeyB: "FFFFFFFFFFFF", Usage: "NFC Forum"},
	{Name: "sony", KeyA: "1234ABCDEF12", KeyB: "34ABCDEF1234", Usage: "Sony/FeliCa"},
}

// ReaderConfig is the declarative, YAML-loadable configuration for a
// Reader: the spec.md §6 knobs (autoProcessing, aid) plus the ambient
// block geometry and key presets a production deployment pins down.
type ReaderConfig struct {
	// AutoProcessing: default true (spec.md §6).
	AutoProcessing *bool  `yaml:"auto_processing"`
	AIDHex         string `yaml:"aid"`

	BlockSize  int `yaml:"block_size"`
	PacketSize int `yaml:"packet_size"`

	// StatusPollIntervalMS bounds how long a single GetStatusChange call
	// may block before the reader's status loop re-checks for shutdown;
	// zero means the package default (30s, matching hardware.Reader's
	// WaitForCard poll). Production deployments leave this unset; tests
	// lower it so a reader's Close doesn't wait out a real poll.
	StatusPollIntervalMS int `yaml:"status_poll_interval_ms"`

	KeyPresets []KeyPreset `yaml:"key_presets"`
}

// AutoProcessingEnabled returns the configured value, defaulting to true
// when unset (spec.md §6).
func (c ReaderConfig) AutoProcessingEnabled() bool {
	if c.AutoProcessing == nil {
		return true
	}
	return *c.AutoProcessing
}

// AID resolves the configured AID via ParseAID.
func (c ReaderConfig) AID() (AID, error) {
	if c.AIDHex == "" {
		return AIDAbsent{}, nil
	}
	return ParseAID(c.AIDHex)
}

// Load reads and parses a ReaderConfig from a YAML file.
func Load(path string) (ReaderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ReaderConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg ReaderConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ReaderConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.KeyPresets == nil {
		cfg.KeyPresets = DefaultKeyPresets
	}
	return cfg, nil
}
