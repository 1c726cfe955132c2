package nbt

import (
	"bytes"
	"testing"
)

func TestCompoundRoundTrip(t *testing.T) {
	root := NewCompound()
	root.Put("FormatVersion", ByteTag(1))
	root.Put("X", ShortTag(64))
	root.Put("Y", ShortTag(32))
	root.Put("Z", ShortTag(64))
	root.Put("BlockArray", ByteArrayTag([]byte{0, 3, 2, 0, 3}))

	spawn := NewCompound()
	spawn.Put("X", ShortTag(32))
	spawn.Put("Y", ShortTag(16))
	spawn.Put("Z", ShortTag(32))
	root.Put("Spawn", spawn)

	var buf bytes.Buffer
	if err := Write(&buf, "ClassicWorld", root); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	name, got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if name != "ClassicWorld" {
		t.Errorf("name = %q, want %q", name, "ClassicWorld")
	}

	fv, ok := got.Get("FormatVersion")
	if !ok || fv.Byte != 1 {
		t.Errorf("FormatVersion = %+v, ok=%v", fv, ok)
	}
	x, ok := got.Get("X")
	if !ok || x.Short != 64 {
		t.Errorf("X = %+v, ok=%v", x, ok)
	}
	blocks, ok := got.Get("BlockArray")
	if !ok || !bytes.Equal(blocks.ByteArray, []byte{0, 3, 2, 0, 3}) {
		t.Errorf("BlockArray = %+v, ok=%v", blocks, ok)
	}
	gotSpawn, ok := got.Get("Spawn")
	if !ok || gotSpawn.Kind != KindCompound {
		t.Fatalf("Spawn = %+v, ok=%v", gotSpawn, ok)
	}
	sx, _ := gotSpawn.Get("X")
	if sx.Short != 32 {
		t.Errorf("Spawn.X = %d, want 32", sx.Short)
	}
}

func TestReadRejectsNonCompoundRoot(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(byte(KindByte))
	if _, _, err := Read(&buf); err == nil {
		t.Fatal("expected error reading non-Compound top-level tag")
	}
}

func TestListRoundTrip(t *testing.T) {
	list := Tag{Kind: KindList, ListKind: KindShort, List: []Tag{
		ShortTag(1), ShortTag(2), ShortTag(3),
	}}
	root := NewCompound()
	root.Put("Values", list)

	var buf bytes.Buffer
	if err := Write(&buf, "doc", root); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	_, got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	values, ok := got.Get("Values")
	if !ok || len(values.List) != 3 {
		t.Fatalf("Values = %+v, ok=%v", values, ok)
	}
	for i, want := range []int16{1, 2, 3} {
		if values.List[i].Short != want {
			t.Errorf("Values[%d] = %d, want %d", i, values.List[i].Short, want)
		}
	}
}

func TestUnknownTopLevelFieldsIgnored(t *testing.T) {
	root := NewCompound()
	root.Put("FormatVersion", ByteTag(1))
	root.Put("SomeFutureField", ShortTag(99))

	var buf bytes.Buffer
	Write(&buf, "ClassicWorld", root)
	_, got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if _, ok := got.Get("SomeFutureField"); !ok {
		t.Fatal("expected unknown field to still be present after read (ignored by callers, not by the codec)")
	}
}
