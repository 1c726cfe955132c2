// Package nbt implements the tagged hierarchical binary tree used by the
// canonical persisted world format ("ClassicWorld"). Every value on disk is
// self-describing: a one-byte kind tag precedes its payload.
package nbt

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Kind identifies the type of a Tag's payload.
type Kind byte

const (
	KindEnd       Kind = 0x00
	KindByte      Kind = 0x01
	KindShort     Kind = 0x02
	KindInt       Kind = 0x03
	KindLong      Kind = 0x04
	KindFloat     Kind = 0x05
	KindDouble    Kind = 0x06
	KindByteArray Kind = 0x07
	KindString    Kind = 0x08
	KindList      Kind = 0x09
	KindCompound  Kind = 0x0A
)

// Tag is one node of the tree. Exactly one of the typed fields is populated,
// selected by Kind — mirroring the tagged-union shape the format itself has.
type Tag struct {
	Kind Kind

	Byte      int8
	Short     int16
	Int       int32
	Long      int64
	Float     float32
	Double    float64
	ByteArray []byte
	String    string
	List      []Tag
	ListKind  Kind
	Compound  map[string]Tag
	// CompoundOrder preserves the order entries were inserted, since
	// map[string]Tag does not. Entries not present here are skipped on write.
	CompoundOrder []string
}

// NewCompound returns an empty Compound tag ready to receive entries via Put.
func NewCompound() Tag {
	return Tag{Kind: KindCompound, Compound: map[string]Tag{}}
}

// Put inserts or replaces a named entry in a Compound tag, recording
// insertion order for deterministic writes.
func (t *Tag) Put(name string, v Tag) {
	if t.Compound == nil {
		t.Compound = map[string]Tag{}
	}
	if _, exists := t.Compound[name]; !exists {
		t.CompoundOrder = append(t.CompoundOrder, name)
	}
	t.Compound[name] = v
}

// Get looks up a named entry in a Compound tag.
func (t Tag) Get(name string) (Tag, bool) {
	v, ok := t.Compound[name]
	return v, ok
}

func byteTag(v int8) Tag   { return Tag{Kind: KindByte, Byte: v} }
func shortTag(v int16) Tag { return Tag{Kind: KindShort, Short: v} }
func byteArrayTag(v []byte) Tag {
	return Tag{Kind: KindByteArray, ByteArray: v}
}

// ByteTag, ShortTag, ByteArrayTag are exported constructors for the kinds the
// persisted world format actually uses.
func ByteTag(v int8) Tag        { return byteTag(v) }
func ShortTag(v int16) Tag      { return shortTag(v) }
func ByteArrayTag(v []byte) Tag { return byteArrayTag(v) }

// Write serializes a named top-level Tag: kind byte, name, payload.
func Write(w io.Writer, name string, t Tag) error {
	if err := writeByte(w, byte(t.Kind)); err != nil {
		return err
	}
	if err := writeString(w, name); err != nil {
		return err
	}
	return writePayload(w, t)
}

// Read deserializes a named top-level Tag. It rejects any document whose
// root kind is not Compound (0x0A), per format invariant.
func Read(r io.Reader) (name string, t Tag, err error) {
	kindByte, err := readByte(r)
	if err != nil {
		return "", Tag{}, err
	}
	kind := Kind(kindByte)
	if kind != KindCompound {
		return "", Tag{}, fmt.Errorf("nbt: top-level tag kind %#x is not Compound", kindByte)
	}
	name, err = readString(r)
	if err != nil {
		return "", Tag{}, err
	}
	t, err = readPayload(r, kind)
	if err != nil {
		return "", Tag{}, err
	}
	return name, t, nil
}

func writePayload(w io.Writer, t Tag) error {
	switch t.Kind {
	case KindEnd:
		return nil
	case KindByte:
		return writeByte(w, byte(t.Byte))
	case KindShort:
		return writeShort(w, t.Short)
	case KindInt:
		return writeInt(w, t.Int)
	case KindLong:
		return writeLong(w, t.Long)
	case KindFloat:
		return writeFloat(w, t.Float)
	case KindDouble:
		return writeDouble(w, t.Double)
	case KindByteArray:
		if err := writeInt(w, int32(len(t.ByteArray))); err != nil {
			return err
		}
		_, err := w.Write(t.ByteArray)
		return err
	case KindString:
		return writeString(w, t.String)
	case KindList:
		if err := writeByte(w, byte(t.ListKind)); err != nil {
			return err
		}
		if err := writeInt(w, int32(len(t.List))); err != nil {
			return err
		}
		for _, el := range t.List {
			if err := writePayload(w, el); err != nil {
				return err
			}
		}
		return nil
	case KindCompound:
		for _, name := range t.CompoundOrder {
			entry, ok := t.Compound[name]
			if !ok {
				continue
			}
			if err := writeByte(w, byte(entry.Kind)); err != nil {
				return err
			}
			if err := writeString(w, name); err != nil {
				return err
			}
			if err := writePayload(w, entry); err != nil {
				return err
			}
		}
		return writeByte(w, byte(KindEnd))
	default:
		return fmt.Errorf("nbt: unknown kind %#x", byte(t.Kind))
	}
}

func readPayload(r io.Reader, kind Kind) (Tag, error) {
	switch kind {
	case KindEnd:
		return Tag{Kind: KindEnd}, nil
	case KindByte:
		b, err := readByte(r)
		return byteTag(int8(b)), err
	case KindShort:
		v, err := readShort(r)
		return shortTag(v), err
	case KindInt:
		v, err := readInt(r)
		return Tag{Kind: KindInt, Int: v}, err
	case KindLong:
		v, err := readLong(r)
		return Tag{Kind: KindLong, Long: v}, err
	case KindFloat:
		v, err := readFloat(r)
		return Tag{Kind: KindFloat, Float: v}, err
	case KindDouble:
		v, err := readDouble(r)
		return Tag{Kind: KindDouble, Double: v}, err
	case KindByteArray:
		n, err := readInt(r)
		if err != nil {
			return Tag{}, err
		}
		if n < 0 {
			return Tag{}, fmt.Errorf("nbt: negative ByteArray length %d", n)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return Tag{}, err
		}
		return byteArrayTag(buf), nil
	case KindString:
		s, err := readString(r)
		return Tag{Kind: KindString, String: s}, err
	case KindList:
		elKindByte, err := readByte(r)
		if err != nil {
			return Tag{}, err
		}
		elKind := Kind(elKindByte)
		n, err := readInt(r)
		if err != nil {
			return Tag{}, err
		}
		if n < 0 {
			return Tag{}, fmt.Errorf("nbt: negative List count %d", n)
		}
		elems := make([]Tag, 0, n)
		for i := int32(0); i < n; i++ {
			el, err := readPayload(r, elKind)
			if err != nil {
				return Tag{}, err
			}
			elems = append(elems, el)
		}
		return Tag{Kind: KindList, ListKind: elKind, List: elems}, nil
	case KindCompound:
		t := NewCompound()
		for {
			entryKindByte, err := readByte(r)
			if err != nil {
				return Tag{}, err
			}
			entryKind := Kind(entryKindByte)
			if entryKind == KindEnd {
				return t, nil
			}
			name, err := readString(r)
			if err != nil {
				return Tag{}, err
			}
			value, err := readPayload(r, entryKind)
			if err != nil {
				return Tag{}, err
			}
			t.Put(name, value)
		}
	default:
		return Tag{}, fmt.Errorf("nbt: unknown kind %#x", byte(kind))
	}
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(r, buf[:])
	return buf[0], err
}

func writeByte(w io.Writer, v byte) error {
	_, err := w.Write([]byte{v})
	return err
}

func readShort(r io.Reader) (int16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(buf[:])), nil
}

func writeShort(w io.Writer, v int16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(v))
	_, err := w.Write(buf[:])
	return err
}

func readInt(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

func writeInt(w io.Writer, v int32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	_, err := w.Write(buf[:])
	return err
}

func readLong(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

func writeLong(w io.Writer, v int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}

func readFloat(r io.Reader) (float32, error) {
	v, err := readInt(r)
	return math.Float32frombits(uint32(v)), err
}

func writeFloat(w io.Writer, v float32) error {
	return writeInt(w, int32(math.Float32bits(v)))
}

func readDouble(r io.Reader) (float64, error) {
	v, err := readLong(r)
	return math.Float64frombits(uint64(v)), err
}

func writeDouble(w io.Writer, v float64) error {
	return writeLong(w, int64(math.Float64bits(v)))
}

func readString(r io.Reader) (string, error) {
	n, err := readShort(r)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("nbt: negative string length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeString(w io.Writer, s string) error {
	b := []byte(s)
	if err := writeShort(w, int16(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}
