package qtable

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/blackjack"
)

// ErrBadFormat is returned when decoding bytes that are not a table.
var ErrBadFormat = errors.New("qtable: bad format")

// #region binary-format
// Binary layout, little-endian:
//
//	"QTB1" | uint32 count | count × (int32 total, int32 ace, int32 upcard, float64 hit, float64 stand)
//
// Records are written in sorted key order so equal tables encode identically.
var magic = [4]byte{'Q', 'T', 'B', '1'}

const recordSize = 3*4 + blackjack.NumActions*8

// MarshalBinary encodes the table.
func (t *Table) MarshalBinary() ([]byte, error) {
	states := t.States()
	buf := make([]byte, 8+len(states)*recordSize)
	copy(buf, magic[:])
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(states)))

	off := 8
	for _, s := range states {
		v := t.entries[s]
		for _, k := range s.Array() {
			if k < math.MinInt32 || k > math.MaxInt32 {
				return nil, fmt.Errorf("encode state %v: key out of range", s)
			}
			binary.LittleEndian.PutUint32(buf[off:], uint32(int32(k)))
			off += 4
		}
		for _, x := range v {
			binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(x))
			off += 8
		}
	}
	return buf, nil
}

// UnmarshalBinary replaces the table contents with the decoded bytes.
func (t *Table) UnmarshalBinary(b []byte) error {
	if len(b) < 8 || !bytes.Equal(b[:4], magic[:]) {
		return fmt.Errorf("%w: missing header", ErrBadFormat)
	}
	n := int(binary.LittleEndian.Uint32(b[4:]))
	if len(b) != 8+n*recordSize {
		return fmt.Errorf("%w: %d records need %d bytes, have %d", ErrBadFormat, n, 8+n*recordSize, len(b))
	}

	entries := make(map[blackjack.State]*Values, n)
	off := 8
	for i := 0; i < n; i++ {
		var key [3]int
		for j := range key {
			key[j] = int(int32(binary.LittleEndian.Uint32(b[off:])))
			off += 4
		}
		var v Values
		for j := range v {
			v[j] = math.Float64frombits(binary.LittleEndian.Uint64(b[off:]))
			off += 8
		}
		s := blackjack.State{PlayerTotal: key[0], UsableAce: key[1], DealerUpcard: key[2]}
		if _, dup := entries[s]; dup {
			return fmt.Errorf("%w: duplicate state %v", ErrBadFormat, s)
		}
		entries[s] = &v
	}
	t.entries = entries
	return nil
}

// #endregion binary-format

// #region files
// WriteFile encodes t to path.
func WriteFile(path string, t *Table) error {
	b, err := t.MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write table %s: %w", path, err)
	}
	return nil
}

// ReadFile decodes a table written by WriteFile.
func ReadFile(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", path, err)
	}
	t := &Table{}
	if err := t.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("decode table %s: %w", path, err)
	}
	return t, nil
}

// #endregion files
