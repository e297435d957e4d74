// Package checkpoint persists model parameters as a binary state dict
// with an integrity checksum.
//
// File layout (integers little endian):
//
//	magic    uint32 (0x44475431, "DGT1")
//	count    uint32 — number of parameters
//	per parameter:
//	    nameLen uint32, name bytes
//	    ndims   uint32, dims as uint32 each
//	    data    float32 values, row-major
//	checksum [32]byte — SHA-256 over everything before it
package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/digitnet-ml/digitnet/internal/nn"
)

const magic uint32 = 0x44475431 // "DGT1"

// ErrChecksumMismatch is returned by Load when the stored checksum does
// not match the file contents.
var ErrChecksumMismatch = errors.New("checkpoint: checksum mismatch")

// Save writes the parameters to path, replacing any existing file.
func Save(path string, params []*nn.Parameter) error {
	var buf bytes.Buffer

	writeU32 := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		buf.Write(b[:])
	}

	writeU32(magic)
	writeU32(uint32(len(params)))

	for _, p := range params {
		name := p.Name()
		writeU32(uint32(len(name)))
		buf.WriteString(name)

		shape := p.Value().Shape()
		writeU32(uint32(len(shape)))
		for _, dim := range shape {
			writeU32(uint32(dim))
		}

		for _, v := range p.Value().Data() {
			writeU32(math.Float32bits(v))
		}
	}

	sum := sha256.Sum256(buf.Bytes())
	buf.Write(sum[:])

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("checkpoint: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("checkpoint: rename: %w", err)
	}
	return nil
}

// Load reads a checkpoint from path into the given parameters.
//
// Parameters are matched by name; every stored entry must correspond to
// a parameter with an identical shape, and every parameter must be
// present in the file.
func Load(path string, params []*nn.Parameter) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("checkpoint: read %s: %w", path, err)
	}
	if len(raw) < sha256.Size+8 {
		return fmt.Errorf("checkpoint: %s truncated", path)
	}

	body := raw[:len(raw)-sha256.Size]
	var stored [sha256.Size]byte
	copy(stored[:], raw[len(raw)-sha256.Size:])
	if sha256.Sum256(body) != stored {
		return ErrChecksumMismatch
	}

	r := bytes.NewReader(body)
	readU32 := func() (uint32, error) {
		var b [4]byte
		if _, err := r.Read(b[:]); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint32(b[:]), nil
	}

	m, err := readU32()
	if err != nil {
		return fmt.Errorf("checkpoint: read magic: %w", err)
	}
	if m != magic {
		return fmt.Errorf("checkpoint: bad magic %#x", m)
	}

	count, err := readU32()
	if err != nil {
		return fmt.Errorf("checkpoint: read count: %w", err)
	}

	byName := make(map[string]*nn.Parameter, len(params))
	for _, p := range params {
		byName[p.Name()] = p
	}

	loaded := 0
	for i := uint32(0); i < count; i++ {
		nameLen, err := readU32()
		if err != nil {
			return fmt.Errorf("checkpoint: entry %d: %w", i, err)
		}
		nameBytes := make([]byte, nameLen)
		if _, err := r.Read(nameBytes); err != nil {
			return fmt.Errorf("checkpoint: entry %d name: %w", i, err)
		}
		name := string(nameBytes)

		ndims, err := readU32()
		if err != nil {
			return fmt.Errorf("checkpoint: entry %s dims: %w", name, err)
		}
		numel := 1
		dims := make([]int, ndims)
		for d := range dims {
			v, err := readU32()
			if err != nil {
				return fmt.Errorf("checkpoint: entry %s dims: %w", name, err)
			}
			dims[d] = int(v)
			numel *= int(v)
		}

		p, ok := byName[name]
		if !ok {
			return fmt.Errorf("checkpoint: unexpected parameter %q", name)
		}
		shape := p.Value().Shape()
		if len(shape) != len(dims) {
			return fmt.Errorf("checkpoint: %s rank mismatch: file %v, model %v", name, dims, shape)
		}
		for d := range dims {
			if dims[d] != shape[d] {
				return fmt.Errorf("checkpoint: %s shape mismatch: file %v, model %v", name, dims, shape)
			}
		}

		data := p.Value().Data()
		for j := 0; j < numel; j++ {
			bits, err := readU32()
			if err != nil {
				return fmt.Errorf("checkpoint: entry %s data: %w", name, err)
			}
			data[j] = math.Float32frombits(bits)
		}
		loaded++
	}

	if loaded != len(params) {
		return fmt.Errorf("checkpoint: file has %d parameters, model has %d", loaded, len(params))
	}
	return nil
}
