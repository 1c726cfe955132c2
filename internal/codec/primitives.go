// Package codec implements the Classic wire format: big-endian primitives,
// fixed 64-byte strings, and opcode-prefixed fixed-payload packet frames.
package codec

import (
	"encoding/binary"
	"io"
	"strings"
)

// ProtocolVersion is the only version this server accepts during Identification.
const ProtocolVersion byte = 0x07

// StringLength is the fixed wire width of every Classic string field.
const StringLength = 64

// ReadByte reads a single unsigned byte.
func ReadByte(r io.Reader) (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(r, buf[:])
	return buf[0], err
}

// WriteByte writes a single unsigned byte.
func WriteByte(w io.Writer, v byte) error {
	_, err := w.Write([]byte{v})
	return err
}

// ReadSByte reads a signed byte (two's complement).
func ReadSByte(r io.Reader) (int8, error) {
	b, err := ReadByte(r)
	return int8(b), err
}

// WriteSByte writes a signed byte.
func WriteSByte(w io.Writer, v int8) error {
	return WriteByte(w, byte(v))
}

// ReadShort reads a big-endian signed 16-bit integer.
func ReadShort(r io.Reader) (int16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(buf[:])), nil
}

// WriteShort writes a big-endian signed 16-bit integer.
func WriteShort(w io.Writer, v int16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(v))
	_, err := w.Write(buf[:])
	return err
}

// ReadBool reads a wire boolean, any nonzero byte is true.
func ReadBool(r io.Reader) (bool, error) {
	b, err := ReadByte(r)
	return b != 0, err
}

// WriteBool writes a wire boolean.
func WriteBool(w io.Writer, v bool) error {
	if v {
		return WriteByte(w, 1)
	}
	return WriteByte(w, 0)
}

// ReadString reads the fixed 64-byte Classic string field. Trailing padding
// spaces are NOT trimmed here (callers trim display names explicitly per
// spec); invalid UTF-8 byte sequences are scrubbed to the replacement
// character, since the wire bytes are arbitrary client-supplied data, not
// guaranteed-valid UTF-8.
func ReadString(r io.Reader) (string, error) {
	var buf [StringLength]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(buf[:]), "�"), nil
}

// WriteString right-pads s with ASCII spaces to 64 bytes, truncating any
// input longer than 64 bytes. It never emits a length prefix.
func WriteString(w io.Writer, s string) error {
	var buf [StringLength]byte
	for i := range buf {
		buf[i] = ' '
	}
	copy(buf[:], s)
	_, err := w.Write(buf[:])
	return err
}
