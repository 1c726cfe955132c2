package world

import (
	"bytes"
	"testing"
)

func TestFlatMapGeneration(t *testing.T) {
	w := New(8, 8, 8)
	half := w.Height / 2
	for y := int16(0); y < w.Height; y++ {
		for z := int16(0); z < w.Length; z++ {
			for x := int16(0); x < w.Width; x++ {
				got := w.GetBlock(x, y, z)
				switch {
				case y >= half:
					if got != BlockAir {
						t.Fatalf("(%d,%d,%d) = %#x, want air above half-height", x, y, z, got)
					}
				case y == half-1:
					if got != BlockGrass {
						t.Fatalf("(%d,%d,%d) = %#x, want grass at top of fill", x, y, z, got)
					}
				default:
					if got != BlockDirt {
						t.Fatalf("(%d,%d,%d) = %#x, want dirt below top of fill", x, y, z, got)
					}
				}
			}
		}
	}
}

func TestBlockAccessorIdempotence(t *testing.T) {
	w := New(4, 4, 4)
	w.SetBlock(1, 1, 1, 0x04)
	if got := w.GetBlock(1, 1, 1); got != 0x04 {
		t.Errorf("GetBlock after SetBlock = %#x, want 0x04", got)
	}

	// out-of-range set is a no-op, not a panic
	w.SetBlock(-1, 0, 0, 0x09)
	w.SetBlock(100, 0, 0, 0x09)

	if got := w.GetBlock(-1, 0, 0); got != BlockAir {
		t.Errorf("GetBlock(out of range) = %#x, want air", got)
	}
	if got := w.GetBlock(100, 0, 0); got != BlockAir {
		t.Errorf("GetBlock(out of range) = %#x, want air", got)
	}
}

func TestSpawningCenterMultipliesBy32(t *testing.T) {
	w := New(64, 32, 64)
	x, y, z := w.SpawningCenter()
	if x != w.Spawn.X*32 || y != w.Spawn.Y*32 || z != w.Spawn.Z*32 {
		t.Errorf("SpawningCenter = (%d,%d,%d), want cells*32", x, y, z)
	}
}

func TestTaggedSaveLoadRoundTrip(t *testing.T) {
	w := New(64, 32, 64)
	w.SetBlock(3, 3, 3, 0x07)

	var buf bytes.Buffer
	if err := w.Save(&buf); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got.Width != w.Width || got.Height != w.Height || got.Length != w.Length {
		t.Errorf("dims = (%d,%d,%d), want (%d,%d,%d)", got.Width, got.Height, got.Length, w.Width, w.Height, w.Length)
	}
	if got.Spawn != w.Spawn {
		t.Errorf("spawn = %+v, want %+v", got.Spawn, w.Spawn)
	}
	if !bytes.Equal(got.Blocks, w.Blocks) {
		t.Errorf("blocks did not round trip")
	}
}

func TestSimpleSaveLoadRoundTrip(t *testing.T) {
	w := New(16, 16, 16)
	var buf bytes.Buffer
	if err := w.SaveSimple(&buf); err != nil {
		t.Fatalf("SaveSimple error: %v", err)
	}
	got, err := LoadSimple(&buf)
	if err != nil {
		t.Fatalf("LoadSimple error: %v", err)
	}
	if got.Width != w.Width || got.Height != w.Height || got.Length != w.Length {
		t.Errorf("dims mismatch after simple round trip")
	}
	if !bytes.Equal(got.Blocks, w.Blocks) {
		t.Errorf("blocks mismatch after simple round trip")
	}
}

func TestSendToReproducesGzipBytes(t *testing.T) {
	w := New(32, 16, 32)
	want, err := w.gzippedBlob()
	if err != nil {
		t.Fatalf("gzippedBlob error: %v", err)
	}

	var buf bytes.Buffer
	if err := w.SendTo(&buf); err != nil {
		t.Fatalf("SendTo error: %v", err)
	}

	reassembled, chunks := reassembleChunks(t, buf.Bytes())
	if !bytes.Equal(reassembled, want) {
		t.Fatalf("reassembled chunk data does not match gzip blob (len %d vs %d)", len(reassembled), len(want))
	}
	if chunks == 0 {
		t.Fatal("expected at least one LevelChunk frame")
	}
}

// reassembleChunks parses the raw byte stream SendTo produced (LevelInit,
// N x LevelChunk, LevelFinal) and concatenates each chunk's data[:len] prefix.
func reassembleChunks(t *testing.T, stream []byte) ([]byte, int) {
	t.Helper()
	var out bytes.Buffer
	i := 0
	// LevelInit: opcode only
	if stream[i] != 0x02 {
		t.Fatalf("expected LevelInit opcode at start, got %#x", stream[i])
	}
	i++
	chunks := 0
	for {
		op := stream[i]
		if op == 0x04 {
			break
		}
		if op != 0x03 {
			t.Fatalf("expected LevelChunk opcode, got %#x", op)
		}
		i++
		length := int(stream[i])<<8 | int(stream[i+1])
		i += 2
		data := stream[i : i+1024]
		i += 1024
		i++ // percent byte
		out.Write(data[:length])
		chunks++
	}
	return out.Bytes(), chunks
}
