package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAIDNil(t *testing.T) {
	aid, err := ParseAID(nil)
	require.NoError(t, err)
	assert.Equal(t, AIDAbsent{}, aid)
}

func TestParseAIDHexString(t *testing.T) {
	aid, err := ParseAID("F0010203040506")
	require.NoError(t, err)
	assert.Equal(t, AIDLiteral{0xF0, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06}, aid)
}

func TestParseAIDInvalidHex(t *testing.T) {
	_, err := ParseAID("not-hex")
	assert.Error(t, err)
}

func TestParseAIDBytes(t *testing.T) {
	aid, err := ParseAID([]byte{0xAA, 0xBB})
	require.NoError(t, err)
	assert.Equal(t, AIDLiteral{0xAA, 0xBB}, aid)
}

func TestParseAIDCallable(t *testing.T) {
	fn := func(card any) ([]byte, error) { return []byte{0x01}, nil }
	aid, err := ParseAID(fn)
	require.NoError(t, err)
	dynamic, ok := aid.(AIDDynamicFunc)
	require.True(t, ok)
	data, err := dynamic(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, data)
}

func TestParseAIDRejectsUnsupportedType(t *testing.T) {
	_, err := ParseAID(42)
	assert.Error(t, err)
}

func TestReaderConfigAutoProcessingDefaultsTrue(t *testing.T) {
	cfg := ReaderConfig{}
	assert.True(t, cfg.AutoProcessingEnabled())

	disabled := false
	cfg.AutoProcessing = &disabled
	assert.False(t, cfg.AutoProcessingEnabled())
}

func TestReaderConfigAIDEmptyIsAbsent(t *testing.T) {
	cfg := ReaderConfig{}
	aid, err := cfg.AID()
	require.NoError(t, err)
	assert.Equal(t, AIDAbsent{}, aid)
}

func TestLoadAppliesDefaultKeyPresets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reader.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auto_processing: false\naid: \"AABB\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.AutoProcessingEnabled())
	assert.Equal(t, DefaultKeyPresets, cfg.KeyPresets)

	aid, err := cfg.AID()
	require.NoError(t, err)
	assert.Equal(t, AIDLiteral{0xAA, 0xBB}, aid)
}

func TestLoadHonoursExplicitKeyPresets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reader.yaml")
	yamlContent := "key_presets:\n  - name: house\n    key_a: \"112233445566\"\n    key_b: \"665544332211\"\n    usage: \"House Key\"\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.KeyPresets, 1)
	assert.Equal(t, "house", cfg.KeyPresets[0].Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/reader.yaml")
	assert.Error(t, err)
}
