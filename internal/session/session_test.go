package session

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/voxelmp/coreserver/internal/codec"
	"github.com/voxelmp/coreserver/internal/queue"
	"github.com/voxelmp/coreserver/internal/world"
)

func pipe(t *testing.T) (serverSide, clientSide net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	type result struct {
		conn net.Conn
		err  error
	}
	accepted := make(chan result, 1)
	go func() {
		c, err := ln.Accept()
		accepted <- result{c, err}
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	r := <-accepted
	if r.err != nil {
		t.Fatalf("accept: %v", r.err)
	}
	return r.conn, client
}

func newTestSession(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	serverSide, clientSide := pipe(t)
	t.Cleanup(func() {
		serverSide.Close()
		clientSide.Close()
	})
	s := New(serverSide, 64, 50*time.Millisecond)
	return s, clientSide
}

func writeIdentification(t *testing.T, conn net.Conn, version byte, name string) {
	t.Helper()
	f := codec.EncodeIdentification(version, name, "unused-key", 0)
	if err := codec.WriteFrame(conn, f); err != nil {
		t.Fatalf("write identification: %v", err)
	}
}

func TestIdentificationAcceptsMatchingVersion(t *testing.T) {
	s, client := newTestSession(t)
	writeIdentification(t, client, codec.ProtocolVersion, "Alice")

	cfg := Config{ServerName: "Srv", ServerMOTD: "MOTD", SessionByteBudget: 64}
	var q queue.Queue
	w := world.New(16, 16, 16)

	time.Sleep(10 * time.Millisecond) // let the bytes land in the kernel buffer
	if err := s.Tick(cfg, &q, w); err != nil {
		t.Fatalf("Tick error: %v", err)
	}

	if !s.Authed || s.State != StateInGame {
		t.Fatalf("session not authed/in-game after valid Identification: %+v", s)
	}
	if s.Name != "Alice" {
		t.Errorf("Name = %q, want Alice", s.Name)
	}
	if q.Len() != 2 {
		t.Fatalf("queue length = %d, want 2 (spawn + join chat)", q.Len())
	}
}

func TestIdentificationRejectsVersionMismatch(t *testing.T) {
	s, client := newTestSession(t)
	writeIdentification(t, client, codec.ProtocolVersion+1, "Bob")

	cfg := Config{ServerName: "Srv", ServerMOTD: "MOTD", SessionByteBudget: 64}
	var q queue.Queue
	w := world.New(16, 16, 16)

	time.Sleep(10 * time.Millisecond)
	if err := s.Tick(cfg, &q, w); err != nil {
		t.Fatalf("Tick error: %v", err)
	}
	if s.Active {
		t.Fatal("session should be inactive after version mismatch")
	}
}

func TestSanitizeStripsTrailingAmpersand(t *testing.T) {
	got := Sanitize("Hi %red%end&")
	want := "Hi &red&end"
	if got != want {
		t.Errorf("Sanitize = %q, want %q", got, want)
	}
}

func TestSanitizeWithoutTrailingAmpersand(t *testing.T) {
	got := Sanitize("plain text")
	if got != "plain text" {
		t.Errorf("Sanitize = %q, want unchanged", got)
	}
}

func TestClientSetBlockMutatesWorldAndEnqueues(t *testing.T) {
	s, client := newTestSession(t)
	writeIdentification(t, client, codec.ProtocolVersion, "Alice")

	cfg := Config{ServerName: "Srv", ServerMOTD: "MOTD", SessionByteBudget: 64}
	var q queue.Queue
	w := world.New(16, 16, 16)

	time.Sleep(10 * time.Millisecond)
	if err := s.Tick(cfg, &q, w); err != nil {
		t.Fatalf("Tick (identification) error: %v", err)
	}
	q = queue.Queue{} // reset to isolate the set-block effect

	frame := codec.Build(codec.OpClientSetBlock, func(buf *bytes.Buffer) {
		codec.WriteShort(buf, 5)
		codec.WriteShort(buf, 10)
		codec.WriteShort(buf, 7)
		codec.WriteByte(buf, byte(codec.ModePlace))
		codec.WriteByte(buf, 0x04)
	})
	if err := codec.WriteFrame(client, frame); err != nil {
		t.Fatalf("write set-block: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if err := s.Tick(cfg, &q, w); err != nil {
		t.Fatalf("Tick (set-block) error: %v", err)
	}

	if got := w.GetBlock(5, 10, 7); got != 0x04 {
		t.Errorf("world block = %#x, want 0x04", got)
	}
	if q.Len() != 1 {
		t.Fatalf("queue length = %d, want 1", q.Len())
	}
}
