// Package filebuf implements the little endian binary buffer used to
// persist hull models. Every entity writes its fields in a fixed order and
// reads them back in the same order; fields introduced by later file
// versions are gated on the buffer's Version.
package filebuf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/chewxy/math32"
	"github.com/soypat/shipcad"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrShortBuffer is returned when a load runs past the end of the data.
	ErrShortBuffer = errors.New("filebuf: short buffer")
	// ErrBadFloat is returned when a stored float is NaN or infinite.
	ErrBadFloat = errors.New("filebuf: inf/NaN float")
)

// fileID is written before the version number by WriteHeader.
const fileID = "FREE!ship"

// Buffer is a growable byte buffer with a read cursor.
// The zero value is an empty buffer at the current file version.
type Buffer struct {
	data    []byte
	pos     int
	Version shipcad.Version
}

// New returns a buffer that reads from data.
func New(data []byte, v shipcad.Version) *Buffer {
	return &Buffer{data: data, Version: v}
}

// Bytes returns the written data.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the number of bytes in the buffer.
func (b *Buffer) Len() int { return len(b.data) }

// Pos returns the read cursor.
func (b *Buffer) Pos() int { return b.pos }

// Reset moves the read cursor to the start of the data.
func (b *Buffer) Reset() { b.pos = 0 }

// Reader returns a buffer that reads the data written to b, at b's version.
func (b *Buffer) Reader() *Buffer {
	return &Buffer{data: b.data, Version: b.version()}
}

func (b *Buffer) version() shipcad.Version {
	if b.Version == 0 {
		return shipcad.CurrentVersion
	}
	return b.Version
}

// AtLeast reports whether fields introduced in version v are present.
func (b *Buffer) AtLeast(v shipcad.Version) bool {
	return b.version() >= v
}

// WriteTo writes the buffer contents to w.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.data)
	return int64(n), err
}

// ReadFrom replaces the buffer contents with everything read from r
// and rewinds the cursor.
func (b *Buffer) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	b.data = data
	b.pos = 0
	return int64(len(data)), err
}

func (b *Buffer) next(n int) ([]byte, error) {
	if b.pos+n > len(b.data) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d of %d", ErrShortBuffer, n, b.pos, len(b.data))
	}
	s := b.data[b.pos : b.pos+n]
	b.pos += n
	return s, nil
}

// AddBool appends a one byte bool.
func (b *Buffer) AddBool(v bool) {
	var c byte
	if v {
		c = 1
	}
	b.data = append(b.data, c)
}

// LoadBool reads a one byte bool.
func (b *Buffer) LoadBool() (bool, error) {
	s, err := b.next(1)
	if err != nil {
		return false, err
	}
	return s[0] != 0, nil
}

// AddInt appends a 4 byte signed integer.
func (b *Buffer) AddInt(v int) {
	b.data = binary.LittleEndian.AppendUint32(b.data, uint32(int32(v)))
}

// LoadInt reads a 4 byte signed integer.
func (b *Buffer) LoadInt() (int, error) {
	s, err := b.next(4)
	if err != nil {
		return 0, err
	}
	return int(int32(binary.LittleEndian.Uint32(s))), nil
}

// AddUint appends a 4 byte unsigned integer.
func (b *Buffer) AddUint(v uint32) {
	b.data = binary.LittleEndian.AppendUint32(b.data, v)
}

// LoadUint reads a 4 byte unsigned integer.
func (b *Buffer) LoadUint() (uint32, error) {
	s, err := b.next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(s), nil
}

// AddFloat appends v as a 4 byte IEEE float. Precision beyond float32 is lost.
func (b *Buffer) AddFloat(v float64) {
	b.data = binary.LittleEndian.AppendUint32(b.data, math32.Float32bits(float32(v)))
}

// LoadFloat reads a 4 byte IEEE float.
func (b *Buffer) LoadFloat() (float64, error) {
	s, err := b.next(4)
	if err != nil {
		return 0, err
	}
	f := math32.Float32frombits(binary.LittleEndian.Uint32(s))
	if math32.IsNaN(f) || math32.IsInf(f, 0) {
		return 0, fmt.Errorf("%w at offset %d", ErrBadFloat, b.pos-4)
	}
	return float64(f), nil
}

// AddVec appends three floats.
func (b *Buffer) AddVec(v r3.Vec) {
	b.AddFloat(v.X)
	b.AddFloat(v.Y)
	b.AddFloat(v.Z)
}

// LoadVec reads three floats.
func (b *Buffer) LoadVec() (v r3.Vec, err error) {
	if v.X, err = b.LoadFloat(); err != nil {
		return v, err
	}
	if v.Y, err = b.LoadFloat(); err != nil {
		return v, err
	}
	v.Z, err = b.LoadFloat()
	return v, err
}

// AddString appends a 4 byte length followed by the UTF-8 bytes of s.
func (b *Buffer) AddString(s string) {
	b.AddInt(len(s))
	b.data = append(b.data, s...)
}

// LoadString reads a length prefixed string.
func (b *Buffer) LoadString() (string, error) {
	n, err := b.LoadInt()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("filebuf: negative string length %d", n)
	}
	s, err := b.next(n)
	if err != nil {
		return "", err
	}
	return string(s), nil
}

// AddBytes appends a 4 byte length followed by p.
func (b *Buffer) AddBytes(p []byte) {
	b.AddInt(len(p))
	b.data = append(b.data, p...)
}

// LoadBytes reads a length prefixed byte slice. The result is a copy.
func (b *Buffer) LoadBytes() ([]byte, error) {
	n, err := b.LoadInt()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("filebuf: negative block length %d", n)
	}
	p, err := b.next(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), p...), nil
}

// AddColor appends c packed as 0x00BBGGRR.
func (b *Buffer) AddColor(c color.RGBA) {
	b.AddUint(uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16)
}

// LoadColor reads a colour packed as 0x00BBGGRR. Alpha is always opaque.
func (b *Buffer) LoadColor() (color.RGBA, error) {
	u, err := b.LoadUint()
	if err != nil {
		return color.RGBA{}, err
	}
	return color.RGBA{R: uint8(u), G: uint8(u >> 8), B: uint8(u >> 16), A: 255}, nil
}

// AddPlane appends the four plane coefficients.
func (b *Buffer) AddPlane(p shipcad.Plane) {
	b.AddFloat(p.A)
	b.AddFloat(p.B)
	b.AddFloat(p.C)
	b.AddFloat(p.D)
}

// LoadPlane reads four plane coefficients.
func (b *Buffer) LoadPlane() (p shipcad.Plane, err error) {
	for _, f := range []*float64{&p.A, &p.B, &p.C, &p.D} {
		if *f, err = b.LoadFloat(); err != nil {
			return p, err
		}
	}
	return p, nil
}

// WriteHeader appends the file identifier and the buffer's version.
func (b *Buffer) WriteHeader() {
	b.AddString(fileID)
	b.AddInt(int(b.version()))
}

// ReadHeader reads the file identifier and sets the buffer's version
// to the version stored in the file.
func (b *Buffer) ReadHeader() error {
	id, err := b.LoadString()
	if err != nil {
		return err
	}
	if id != fileID {
		return fmt.Errorf("filebuf: not a hull file, got identifier %q", id)
	}
	v, err := b.LoadInt()
	if err != nil {
		return err
	}
	ver := shipcad.Version(v)
	if !ver.Valid() {
		return fmt.Errorf("filebuf: unsupported file version %d", v)
	}
	b.Version = ver
	return nil
}
