/*package nlistio reads and writes neighbor list dumps.

A dump starts with a magic number and a version number, followed by a
fixed-width header and three compressed blocks: the tag of each particle, the
number of neighbors of each particle, and the neighbor tags of every particle
concatenated together. Each uint32 array is split into four byte columns and
every column is compressed with zstd separately, which lets the mostly-zero
high bytes compress to almost nothing.*/
package nlistio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/DataDog/zstd"

	"github.com/phil-mansfield/nlist/lib/nlist"
)

const (
	// MagicNumber is the first four bytes of every dump.
	MagicNumber = 0x6e6c6973
	// ReverseMagicNumber is the magic number if read with the opposite byte
	// order.
	ReverseMagicNumber = 0x73696c6e
	Version            = 1

	zstdLevel = 1
)

var (
	// ErrMagic is returned when a file doesn't start with MagicNumber.
	ErrMagic = errors.New("not a neighbor list dump")
	// ErrVersion is returned when a file was written by a newer version.
	ErrVersion = errors.New("unsupported dump version")
	// ErrCorrupt is returned when the blocks of a file don't agree with its
	// header.
	ErrCorrupt = errors.New("corrupt neighbor list dump")
)

// Header is the fixed-width header of a dump.
type Header struct {
	Timestep uint64
	// N is the number of particles and NPairs the number of stored
	// neighbor entries.
	N, NPairs int64
	NTypes   int64
	RBuff    float64
}

// Write writes snap to w using the byte order order.
func Write(w io.Writer, snap *nlist.Snapshot, order binary.ByteOrder) error {
	if len(snap.Tags) != len(snap.Counts) {
		return fmt.Errorf("%w: %d tags but %d counts",
			ErrCorrupt, len(snap.Tags), len(snap.Counts))
	}

	hd := Header{
		Timestep: snap.Timestep,
		N:        int64(len(snap.Tags)),
		NPairs:   int64(len(snap.Neighbors)),
		NTypes:   int64(snap.NTypes),
		RBuff:    snap.RBuff,
	}

	if err := binary.Write(w, order, uint32(MagicNumber)); err != nil {
		return err
	}
	if err := binary.Write(w, order, uint32(Version)); err != nil {
		return err
	}
	if err := binary.Write(w, order, &hd); err != nil {
		return err
	}

	b, buf := []byte{}, []byte{}
	var err error
	for _, x := range [][]uint32{snap.Tags, snap.Counts, snap.Neighbors} {
		b, buf, err = writeColumns(w, order, x, b, buf)
		if err != nil {
			return err
		}
	}
	return nil
}

// Read reads a dump written by Write. The byte order is detected from the
// magic number.
func Read(r io.Reader) (*nlist.Snapshot, *Header, error) {
	order, err := checkFile(r)
	if err != nil {
		return nil, nil, err
	}

	hd := &Header{}
	if err := binary.Read(r, order, hd); err != nil {
		return nil, nil, err
	}
	if hd.N < 0 || hd.NPairs < 0 {
		return nil, nil, fmt.Errorf("%w: header has N = %d, NPairs = %d",
			ErrCorrupt, hd.N, hd.NPairs)
	}

	snap := &nlist.Snapshot{
		Timestep:  hd.Timestep,
		NTypes:    int(hd.NTypes),
		RBuff:     hd.RBuff,
		Tags:      make([]uint32, hd.N),
		Counts:    make([]uint32, hd.N),
		Neighbors: make([]uint32, hd.NPairs),
	}

	b, buf := []byte{}, []byte{}
	for _, x := range [][]uint32{snap.Tags, snap.Counts, snap.Neighbors} {
		b, buf, err = readColumns(r, order, x, b, buf)
		if err != nil {
			return nil, nil, err
		}
	}

	sum := int64(0)
	for _, n := range snap.Counts {
		sum += int64(n)
	}
	if sum != hd.NPairs {
		return nil, nil, fmt.Errorf("%w: counts sum to %d, but header has "+
			"NPairs = %d", ErrCorrupt, sum, hd.NPairs)
	}

	return snap, hd, nil
}

// WriteFile writes snap to the file fname in little-endian order.
func WriteFile(fname string, snap *nlist.Snapshot) error {
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	wr := bufio.NewWriter(f)

	if err := Write(wr, snap, binary.LittleEndian); err != nil {
		f.Close()
		return err
	}
	if err := wr.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads the dump stored in fname.
func ReadFile(fname string) (*nlist.Snapshot, *Header, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	snap, hd, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", fname, err)
	}
	return snap, hd, nil
}

// writeColumns writes x as four length-prefixed zstd blocks, one per byte
// column. b and buf are scratch space and are returned, possibly grown, so
// they can be passed to the next call.
func writeColumns(
	w io.Writer, order binary.ByteOrder, x []uint32, b, buf []byte,
) ([]byte, []byte, error) {
	b = resizeBytes(b, len(x))

	for col := 0; col < 4; col++ {
		for i := range x {
			b[i] = byte(x[i] >> (8 * uint(col)))
		}

		var err error
		buf, err = zstd.CompressLevel(buf[:cap(buf)], b, zstdLevel)
		if err != nil {
			return b, buf, err
		}

		if err := binary.Write(w, order, int64(len(buf))); err != nil {
			return b, buf, err
		}
		if _, err := w.Write(buf); err != nil {
			return b, buf, err
		}
	}

	return b, buf, nil
}

// readColumns is the inverse of writeColumns. len(x) must already be set.
func readColumns(
	r io.Reader, order binary.ByteOrder, x []uint32, b, buf []byte,
) ([]byte, []byte, error) {
	for i := range x {
		x[i] = 0
	}

	for col := 0; col < 4; col++ {
		nBuf := int64(0)
		if err := binary.Read(r, order, &nBuf); err != nil {
			return b, buf, err
		} else if nBuf < 0 {
			return b, buf, fmt.Errorf("%w: block of length %d", ErrCorrupt, nBuf)
		}

		buf = resizeBytes(buf, int(nBuf))
		if _, err := io.ReadFull(r, buf); err != nil {
			return b, buf, err
		}

		var err error
		b, err = zstd.Decompress(b[:cap(b)], buf)
		if err != nil {
			return b, buf, err
		} else if len(b) != len(x) {
			return b, buf, fmt.Errorf("%w: expected a block of %d bytes, "+
				"got %d", ErrCorrupt, len(x), len(b))
		}

		for i := range x {
			x[i] |= uint32(b[i]) << (8 * uint(col))
		}
	}

	return b, buf, nil
}

// checkFile reads the magic number and version and returns the byte order
// of the file.
func checkFile(r io.Reader) (binary.ByteOrder, error) {
	var magicNumber, version uint32

	order := binary.ByteOrder(binary.LittleEndian)
	if err := binary.Read(r, order, &magicNumber); err != nil {
		return nil, err
	}

	switch magicNumber {
	case MagicNumber:
	case ReverseMagicNumber:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: files begin with %x or %x, but this "+
			"one begins with %x", ErrMagic, MagicNumber, ReverseMagicNumber,
			magicNumber)
	}

	if err := binary.Read(r, order, &version); err != nil {
		return nil, err
	}
	if version > Version {
		return nil, fmt.Errorf("%w: the file has version %d, but this "+
			"reader only understands versions up to %d", ErrVersion, version,
			Version)
	}

	return order, nil
}

func resizeBytes(b []byte, n int) []byte {
	if cap(b) >= n {
		return b[:n]
	}
	return make([]byte, n)
}
