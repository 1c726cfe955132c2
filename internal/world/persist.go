package world

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/voxelmp/coreserver/internal/codec"
	"github.com/voxelmp/coreserver/internal/nbt"
)

// SaveSimple writes the "simple" gzip format: short W, short H, short L,
// then the raw block bytes, all inside a single gzip stream.
func (w *World) SaveSimple(out io.Writer) error {
	gz := gzip.NewWriter(out)
	var hdr [6]byte
	binary.BigEndian.PutUint16(hdr[0:2], uint16(w.Width))
	binary.BigEndian.PutUint16(hdr[2:4], uint16(w.Height))
	binary.BigEndian.PutUint16(hdr[4:6], uint16(w.Length))
	if _, err := gz.Write(hdr[:]); err != nil {
		gz.Close()
		return err
	}
	if _, err := gz.Write(w.Blocks); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

// LoadSimple reads the "simple" gzip format produced by SaveSimple.
func LoadSimple(in io.Reader) (*World, error) {
	gz, err := gzip.NewReader(in)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	var hdr [6]byte
	if _, err := io.ReadFull(gz, hdr[:]); err != nil {
		return nil, err
	}
	width := int16(binary.BigEndian.Uint16(hdr[0:2]))
	height := int16(binary.BigEndian.Uint16(hdr[2:4]))
	length := int16(binary.BigEndian.Uint16(hdr[4:6]))

	want := int(width) * int(height) * int(length)
	blocks := make([]byte, want)
	if _, err := io.ReadFull(gz, blocks); err != nil {
		return nil, err
	}
	return &World{
		Width:  width,
		Height: height,
		Length: length,
		Blocks: blocks,
		Spawn:  Spawn{X: width / 2, Y: height / 2, Z: length / 2},
	}, nil
}

// Save writes the canonical tagged-binary ("ClassicWorld") format, gzip
// compressed.
func (w *World) Save(out io.Writer) error {
	gz := gzip.NewWriter(out)
	name, doc := w.ToTagged()
	if err := nbt.Write(gz, name, doc); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

// Load reads the canonical tagged-binary ("ClassicWorld") format.
func Load(in io.Reader) (*World, error) {
	gz, err := gzip.NewReader(in)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	name, doc, err := nbt.Read(gz)
	if err != nil {
		return nil, err
	}
	if name != "ClassicWorld" {
		return nil, fmt.Errorf("world: unexpected tagged document name %q", name)
	}
	return FromTagged(doc)
}

// gzippedBlob gzip-compresses a 4-byte big-endian block count followed by the
// raw block bytes, exactly as SendTo's chunking step requires.
func (w *World) gzippedBlob() ([]byte, error) {
	var out bytes.Buffer
	gz := gzip.NewWriter(&out)
	var sizeBuf [4]byte
	binary.BigEndian.PutUint32(sizeBuf[:], uint32(len(w.Blocks)))
	if _, err := gz.Write(sizeBuf[:]); err != nil {
		return nil, err
	}
	if _, err := gz.Write(w.Blocks); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// SendTo streams this world to writer as LevelInit, one or more LevelChunk
// frames (each carrying at most 1024 compressed bytes, zero-padded to that
// width), and a final LevelFinal carrying W, H, L.
func (w *World) SendTo(writer io.Writer) error {
	if err := codec.WriteFrame(writer, codec.EncodeLevelInit()); err != nil {
		return err
	}

	blob, err := w.gzippedBlob()
	if err != nil {
		return err
	}

	total := len(blob)
	sent := 0
	for sent < total || total == 0 {
		end := sent + codec.LevelChunkPayload
		if end > total {
			end = total
		}
		chunk := blob[sent:end]
		sent = end
		percent := byte(0)
		if total > 0 {
			percent = byte(100 * sent / total)
		}
		if err := codec.WriteFrame(writer, codec.EncodeLevelChunk(chunk, percent)); err != nil {
			return err
		}
		if total == 0 {
			break
		}
	}

	return codec.WriteFrame(writer, codec.EncodeLevelFinal(w.Width, w.Height, w.Length))
}
