// Package blockio chunks block-level reads and writes across block
// boundaries, launching sub-requests concurrently and reassembling
// results in request order (spec.md §4.3). It generalizes
// classic.Classic.ReadBlock/WriteBlock (one fixed 16-byte block at a
// time, synchronous) into the paged, concurrent engine the spec
// describes.
package blockio

import (
	"sync"

	"github.com/oo-developer/nfccore/apdu"
	"github.com/oo-developer/nfccore/corerr"
)

// Transmitter is the minimal capability blockio needs: send an APDU, get
// the raw response back. session.Session satisfies this.
type Transmitter interface {
	Transmit(data []byte) ([]byte, error)
}

// Defaults, MIFARE-Classic-shaped (spec.md §9, Open Question 3): callers
// targeting other tag families pass their own geometry explicitly.
const (
	DefaultBlockSize  = 4
	DefaultPacketSize = 16
)

// Options configures a Read or Write call. Zero values fall back to the
// package defaults (BlockSize/PacketSize) or 0xFF (ReadClass).
type Options struct {
	BlockSize  int
	PacketSize int
	ReadClass  byte
}

func (o Options) normalized() Options {
	if o.BlockSize <= 0 {
		o.BlockSize = DefaultBlockSize
	}
	if o.PacketSize <= 0 {
		o.PacketSize = DefaultPacketSize
	}
	return o
}

// Read reads length bytes starting at block, splitting into
// ceil(length/packetSize) concurrent sub-reads when length exceeds
// packetSize (spec.md §4.3, invariant 2 in spec.md §8).
func Read(t Transmitter, block int, length int, opts Options) ([]byte, error) {
	opts = opts.normalized()

	if length <= opts.PacketSize {
		return readOne(t, block, length, opts.ReadClass)
	}

	n := (length + opts.PacketSize - 1) / opts.PacketSize
	results := make([][]byte, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			offset := i * opts.PacketSize
			subBlock := block + offset/opts.BlockSize
			subLen := opts.PacketSize
			if remaining := length - offset; remaining < subLen {
				subLen = remaining
			}
			data, err := readOne(t, subBlock, subLen, opts.ReadClass)
			results[i] = data
			errs[i] = err
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := make([]byte, 0, length)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func readOne(t Transmitter, block int, length int, readClass byte) ([]byte, error) {
	cmd := apdu.ReadBinary(uint16(block), byte(length), readClass)
	resp, err := t.Transmit(cmd)
	if err != nil {
		return nil, corerr.Failure(corerr.KindRead, "read failed", err)
	}
	payload, status, err := apdu.Validate(resp)
	if err != nil {
		return nil, corerr.New(corerr.KindRead, corerr.CodeInvalidResponse, err.Error())
	}
	if !apdu.IsSuccess(status) {
		return nil, corerr.OperationFailed(corerr.KindRead, apdu.FormatStatus(status))
	}
	return payload, nil
}

// Write writes data starting at block, requiring len(data) to be a
// positive multiple of blockSize; splits into len(data)/blockSize
// concurrent single-block writes when data spans more than one block
// (spec.md §4.3, invariant 3 in spec.md §8).
func Write(t Transmitter, block int, data []byte, opts Options) (bool, error) {
	opts = opts.normalized()

	if len(data) < opts.BlockSize || len(data)%opts.BlockSize != 0 {
		return false, corerr.New(corerr.KindWrite, corerr.CodeInvalidDataLength, "data length must be a positive multiple of block size")
	}

	if len(data) == opts.BlockSize {
		return writeOne(t, block, data)
	}

	n := len(data) / opts.BlockSize
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			chunk := data[i*opts.BlockSize : (i+1)*opts.BlockSize]
			_, err := writeOne(t, block+i, chunk)
			errs[i] = err
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

func writeOne(t Transmitter, block int, data []byte) (bool, error) {
	cmd := apdu.UpdateBinary(byte(block), data)
	resp, err := t.Transmit(cmd)
	if err != nil {
		return false, corerr.Failure(corerr.KindWrite, "write failed", err)
	}
	_, status, err := apdu.Validate(resp)
	if err != nil {
		return false, corerr.New(corerr.KindWrite, corerr.CodeInvalidResponse, err.Error())
	}
	if !apdu.IsSuccess(status) {
		return false, corerr.OperationFailed(corerr.KindWrite, apdu.FormatStatus(status))
	}
	return true, nil
}
