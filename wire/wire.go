// Package wire implements the low-level primitive codec used by the
// native protocol: varints, length-prefixed strings, and fixed-width
// little-endian integers and floats. It never buffers itself; callers
// provide an io.Reader/io.Writer that may be buffered internally (see
// package chnet).
package wire

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const maxVarintBytes = 10 // ceil(64/7)

var (
	// ErrVarintTooLong is returned when a varint exceeds 10 bytes
	// without terminating, meaning it encodes more than 64 bits.
	ErrVarintTooLong = errors.New("wire: varint exceeds 64 bits")
	// ErrNegativeLength is returned when a length-prefixed read would
	// require a negative or nonsensical length.
	ErrNegativeLength = errors.New("wire: negative length prefix")
)

// Reader is the minimal surface the primitive codec needs from a byte
// source. *bufio.Reader, which chnet.Conn.Reader returns, satisfies it.
type Reader interface {
	io.Reader
	io.ByteReader
}

// ReadVarint reads a 7-bit little-endian varint, continuation bit in
// the MSB of each byte, up to 10 bytes (64 bits).
func ReadVarint(r io.ByteReader) (uint64, error) {
	var x uint64
	for i := 0; i < maxVarintBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if i == maxVarintBytes-1 && b > 1 {
			return 0, ErrVarintTooLong
		}
		x |= uint64(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return x, nil
		}
	}
	return 0, ErrVarintTooLong
}

// WriteVarint writes x as a 7-bit little-endian varint.
func WriteVarint(w io.Writer, x uint64) error {
	var buf [maxVarintBytes]byte
	n := 0
	for {
		b := byte(x & 0x7f)
		x >>= 7
		if x != 0 {
			b |= 0x80
		}
		buf[n] = b
		n++
		if x == 0 {
			break
		}
	}
	_, err := w.Write(buf[:n])
	return err
}

// ReadString reads a varint length prefix followed by that many raw
// bytes. No UTF-8 validation is performed.
func ReadString(r Reader) (string, error) {
	n, err := ReadVarint(r)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// WriteString writes s as a varint length prefix followed by its raw
// bytes. An empty string writes a single zero byte.
func WriteString(w io.Writer, s string) error {
	if err := WriteVarint(w, uint64(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	_, err := io.WriteString(w, s)
	return err
}

// ReadBytes reads exactly n raw bytes.
func ReadBytes(r io.Reader, n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeLength
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteBytes writes buf verbatim.
func WriteBytes(w io.Writer, buf []byte) error {
	_, err := w.Write(buf)
	return err
}

// ReadBool reads a single byte and reports it as a bool (nonzero = true).
func ReadBool(r io.ByteReader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// WriteBool writes v as a single 0/1 byte.
func WriteBool(w io.Writer, v bool) error {
	b := byte(0)
	if v {
		b = 1
	}
	_, err := w.Write([]byte{b})
	return err
}

// Fixed-width little-endian primitive reads. Go has no native 128-bit
// integer type, so Int128/UInt128/Int256 are represented as raw
// little-endian byte slices throughout the column layer; these helpers
// handle the machine-native widths used for everything else.

func ReadU8(r Reader) (uint8, error) {
	b, err := r.ReadByte()
	return b, err
}

func WriteU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func ReadI8(r Reader) (int8, error) {
	b, err := r.ReadByte()
	return int8(b), err
}

func WriteI8(w io.Writer, v int8) error {
	_, err := w.Write([]byte{byte(v)})
	return err
}

func ReadU16(r Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func WriteU16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func ReadI16(r Reader) (int16, error) {
	v, err := ReadU16(r)
	return int16(v), err
}

func WriteI16(w io.Writer, v int16) error {
	return WriteU16(w, uint16(v))
}

func ReadU32(r Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func WriteU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func ReadI32(r Reader) (int32, error) {
	v, err := ReadU32(r)
	return int32(v), err
}

func WriteI32(w io.Writer, v int32) error {
	return WriteU32(w, uint32(v))
}

func ReadU64(r Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func WriteU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func ReadI64(r Reader) (int64, error) {
	v, err := ReadU64(r)
	return int64(v), err
}

func WriteI64(w io.Writer, v int64) error {
	return WriteU64(w, uint64(v))
}

func ReadF32(r Reader) (float32, error) {
	v, err := ReadU32(r)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func WriteF32(w io.Writer, v float32) error {
	return WriteU32(w, math.Float32bits(v))
}

func ReadF64(r Reader) (float64, error) {
	v, err := ReadU64(r)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func WriteF64(w io.Writer, v float64) error {
	return WriteU64(w, math.Float64bits(v))
}

// ReadWidth reads n raw little-endian bytes representing a wide
// integer (Int128/UInt128/Int256/UInt256). The bytes are returned
// as-is, least-significant byte first.
func ReadWidth(r io.Reader, n int) ([]byte, error) {
	return ReadBytes(r, n)
}

// WriteWidth writes buf verbatim; callers are responsible for ensuring
// buf is exactly the expected width and little-endian.
func WriteWidth(w io.Writer, buf []byte) error {
	return WriteBytes(w, buf)
}
