// Package world implements the in-memory voxel grid: flat-map generation,
// coordinate mapping, and both persisted formats (simple gzip and the
// canonical tagged-binary "ClassicWorld" document).
package world

import (
	"fmt"

	"github.com/voxelmp/coreserver/internal/nbt"
)

// Block IDs the generator and set-block handling care about directly; the
// rest of the palette is opaque bytes the server never interprets.
const (
	BlockAir   byte = 0x00
	BlockGrass byte = 0x02
	BlockDirt  byte = 0x03
)

// Spawn is a world-cell position, stored alongside the block grid.
type Spawn struct {
	X, Y, Z int16
}

// World is the exclusively-Server-owned block grid. No method on World takes
// a lock: callers (the tick loop) are required to serialize access, exactly
// as the single-threaded simulation model mandates.
type World struct {
	Width, Height, Length int16
	Blocks                []byte
	Spawn                 Spawn
}

// New allocates a Width*Height*Length all-air grid and runs flat-map
// generation over it, matching the bottom-half-filled default world.
func New(width, height, length int16) *World {
	w := &World{
		Width:  width,
		Height: height,
		Length: length,
		Blocks: make([]byte, int(width)*int(height)*int(length)),
		Spawn:  Spawn{X: width / 2, Y: height / 2, Z: length / 2},
	}
	w.generateFlatMap()
	return w
}

func (w *World) generateFlatMap() {
	half := w.Height / 2
	for y := int16(0); y < half; y++ {
		block := BlockDirt
		if y == half-1 {
			block = BlockGrass
		}
		for z := int16(0); z < w.Length; z++ {
			for x := int16(0); x < w.Width; x++ {
				w.Blocks[w.index(x, y, z)] = block
			}
		}
	}
}

func (w *World) index(x, y, z int16) int {
	return int(x) + int(w.Width)*(int(z)+int(w.Length)*int(y))
}

func (w *World) inRange(x, y, z int16) bool {
	return x >= 0 && x < w.Width && y >= 0 && y < w.Height && z >= 0 && z < w.Length
}

// GetBlock returns the block at (x,y,z), or air if the coordinates are out
// of range. It never panics.
func (w *World) GetBlock(x, y, z int16) byte {
	if !w.inRange(x, y, z) {
		return BlockAir
	}
	return w.Blocks[w.index(x, y, z)]
}

// SetBlock writes the block at (x,y,z). Out-of-range coordinates are a no-op.
func (w *World) SetBlock(x, y, z int16, id byte) {
	if !w.inRange(x, y, z) {
		return
	}
	w.Blocks[w.index(x, y, z)] = id
}

// SpawningCenter converts the world-cell spawn into subpixel (fixed-point)
// units by multiplying each coordinate by 32, the protocol's subpixel factor.
// Callers add their own vertical bias (e.g. the conventional +51) on top.
func (w *World) SpawningCenter() (x, y, z int16) {
	return w.Spawn.X * 32, w.Spawn.Y * 32, w.Spawn.Z * 32
}

// ToTagged builds the canonical "ClassicWorld" tagged-binary document
// describing this world, per §4.3's field table.
func (w *World) ToTagged() (name string, doc nbt.Tag) {
	root := nbt.NewCompound()
	root.Put("FormatVersion", nbt.ByteTag(1))
	root.Put("X", nbt.ShortTag(w.Width))
	root.Put("Y", nbt.ShortTag(w.Height))
	root.Put("Z", nbt.ShortTag(w.Length))
	root.Put("BlockArray", nbt.ByteArrayTag(w.Blocks))

	spawn := nbt.NewCompound()
	spawn.Put("X", nbt.ShortTag(w.Spawn.X))
	spawn.Put("Y", nbt.ShortTag(w.Spawn.Y))
	spawn.Put("Z", nbt.ShortTag(w.Spawn.Z))
	root.Put("Spawn", spawn)

	return "ClassicWorld", root
}

// FromTagged reconstructs a World from a decoded "ClassicWorld" Compound.
// Unknown sibling fields are accepted and ignored, per spec.
func FromTagged(doc nbt.Tag) (*World, error) {
	if doc.Kind != nbt.KindCompound {
		return nil, fmt.Errorf("world: tagged document root is not a Compound")
	}
	xTag, ok := doc.Get("X")
	if !ok {
		return nil, fmt.Errorf("world: tagged document missing X")
	}
	yTag, ok := doc.Get("Y")
	if !ok {
		return nil, fmt.Errorf("world: tagged document missing Y")
	}
	zTag, ok := doc.Get("Z")
	if !ok {
		return nil, fmt.Errorf("world: tagged document missing Z")
	}
	blocksTag, ok := doc.Get("BlockArray")
	if !ok {
		return nil, fmt.Errorf("world: tagged document missing BlockArray")
	}
	width, height, length := xTag.Short, yTag.Short, zTag.Short
	want := int(width) * int(height) * int(length)
	if len(blocksTag.ByteArray) != want {
		return nil, fmt.Errorf("world: BlockArray length %d does not match W*H*L=%d", len(blocksTag.ByteArray), want)
	}

	w := &World{
		Width:  width,
		Height: height,
		Length: length,
		Blocks: append([]byte(nil), blocksTag.ByteArray...),
		Spawn:  Spawn{X: width / 2, Y: height / 2, Z: length / 2},
	}
	if spawnTag, ok := doc.Get("Spawn"); ok && spawnTag.Kind == nbt.KindCompound {
		if sx, ok := spawnTag.Get("X"); ok {
			w.Spawn.X = sx.Short
		}
		if sy, ok := spawnTag.Get("Y"); ok {
			w.Spawn.Y = sy.Short
		}
		if sz, ok := spawnTag.Get("Z"); ok {
			w.Spawn.Z = sz.Short
		}
	}
	return w, nil
}

// Save/Load/SaveSimple/LoadSimple and the chunked-transmission helper live in
// persist.go, which hosts all gzip/io plumbing for this package.
