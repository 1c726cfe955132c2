// Package session implements the per-client state machine: connect,
// authenticate, level transfer, in-game packet dispatch, and liveness.
package session

import (
	"bytes"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/voxelmp/coreserver/internal/codec"
	"github.com/voxelmp/coreserver/internal/queue"
	"github.com/voxelmp/coreserver/internal/world"
)

// State is the session's position in its connect→authenticate→in-game
// lifecycle.
type State int

const (
	StateConnecting State = iota
	StateInGame
)

// Config carries the server-identity fields a Session needs to answer
// Identification, plus the per-tick ingress budget.
type Config struct {
	ServerName        string
	ServerMOTD        string
	SessionByteBudget int
}

// Pose is a session's position and facing, in wire units (subpixel position,
// byte yaw/pitch).
type Pose struct {
	X, Y, Z    int16
	Yaw, Pitch byte
}

// operator flag values, per the glossary.
const (
	operatorFlag byte = 0x64
	regularFlag  byte = 0x00
)

// Session is one connected client. It exclusively owns its TCP stream; the
// Server exclusively owns everything else (World, roster, queue), passing
// transient references into Tick.
type Session struct {
	conn net.Conn

	Pid    int8
	Name   string
	Pose   Pose
	Active bool
	Authed bool
	State  State

	CorrelationID uuid.UUID

	limiter *rate.Limiter
	inbox   bytes.Buffer
}

// New creates a pending session for a freshly accepted connection: pid=-1,
// authed=false, active=true. The limiter refills sessionByteBudget tokens
// every tickInterval, so a session that exhausts its budget mid-tick resumes
// processing on the following tick rather than waiting out a real-time
// token-bucket decay.
func New(conn net.Conn, sessionByteBudget int, tickInterval time.Duration) *Session {
	every := tickInterval
	if sessionByteBudget > 0 {
		every = tickInterval / time.Duration(sessionByteBudget)
	}
	return &Session{
		conn:          conn,
		Pid:           -1,
		Active:        true,
		State:         StateConnecting,
		CorrelationID: uuid.New(),
		limiter:       rate.NewLimiter(rate.Every(every), sessionByteBudget),
	}
}

// Conn exposes the underlying connection for tests and Server bookkeeping
// (e.g. closing it once pruned).
func (s *Session) Conn() net.Conn { return s.conn }

// Tick drains all currently pending bytes non-blockingly and processes the
// complete packets buffered so far (including leftovers from prior ticks), up
// to the limiter's budget; packets beyond it stay buffered for a later tick. It
// never blocks: a would-block read outcome simply ends the read loop for
// this tick. Socket errors other than would-block mark the session inactive
// directly (handled here, not propagated); a malformed packet's decode error
// is returned so the caller can log it and mark the session inactive,
// matching the "no resync" error taxonomy.
func (s *Session) Tick(cfg Config, q *queue.Queue, w *world.World) error {
	s.readAvailable()
	if !s.Active {
		return nil
	}
	return s.processBuffered(cfg, q, w)
}

// readAvailable pulls all bytes the kernel currently has ready into s.inbox,
// using a zero (already-elapsed) read deadline as the standard non-blocking
// polling idiom for net.Conn: a read that would otherwise block instead
// returns a timeout error immediately.
func (s *Session) readAvailable() {
	buf := make([]byte, 4096)
	for {
		if err := s.conn.SetReadDeadline(time.Now()); err != nil {
			s.Active = false
			return
		}
		n, err := s.conn.Read(buf)
		if n > 0 {
			s.inbox.Write(buf[:n])
		}
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				// would-block: no more data ready right now, not an error.
				return
			}
			// peer-closed or any other I/O error: session goes inactive.
			s.Active = false
			return
		}
		if n == 0 {
			return
		}
	}
}

// processBuffered decodes and dispatches every complete frame sitting in
// s.inbox, up to the per-tick rate-limit budget, leaving any trailing
// partial frame for the next tick.
func (s *Session) processBuffered(cfg Config, q *queue.Queue, w *world.World) error {
	for s.inbox.Len() > 0 {
		if !s.limiter.Allow() {
			// Budget exhausted for this tick; remaining bytes stay buffered.
			return nil
		}

		data := s.inbox.Bytes()
		op := codec.Opcode(data[0])
		frameLen, known := frameLength(op)
		if !known {
			// Unknown opcode in the Connecting/InGame dispatch tables is
			// ignored per spec, but we cannot know its length to skip it
			// safely — treat as malformed and let the caller disconnect.
			return fmt.Errorf("session: unknown opcode %#x", byte(op))
		}
		if s.inbox.Len() < 1+frameLen {
			// Partial frame; wait for more bytes next tick.
			return nil
		}

		payload := make([]byte, frameLen)
		s.inbox.Next(1) // discard opcode byte already inspected
		s.inbox.Read(payload)

		if err := s.dispatch(cfg, op, payload, q, w); err != nil {
			return err
		}
	}
	return nil
}

func frameLength(op codec.Opcode) (int, bool) {
	switch op {
	case codec.OpIdentification:
		return 1 + codec.StringLength + codec.StringLength + 1, true
	case codec.OpPing:
		return 0, true
	case codec.OpClientSetBlock:
		return 2 + 2 + 2 + 1 + 1, true
	case codec.OpPositionOrientation:
		return 1 + 2 + 2 + 2 + 1 + 1, true
	case codec.OpMessage:
		return 1 + codec.StringLength, true
	default:
		return 0, false
	}
}

func (s *Session) dispatch(cfg Config, op codec.Opcode, payload []byte, q *queue.Queue, w *world.World) error {
	if s.State == StateConnecting {
		if op != codec.OpIdentification {
			// Anything before authentication other than Identification is
			// disconnected with a reason, per the Connecting state's
			// "on invalid input" transition.
			s.Disconnect("Please identify first")
			s.Active = false
			return nil
		}
		return s.handleIdentification(cfg, payload, q, w)
	}

	switch op {
	case codec.OpPing:
		// C<->S: client pong is a liveness no-op server-side.
		return nil
	case codec.OpMessage:
		return s.handleMessage(payload, q)
	case codec.OpPositionOrientation:
		return s.handlePositionOrientation(payload)
	case codec.OpClientSetBlock:
		return s.handleClientSetBlock(payload, q, w)
	default:
		// Known opcodes with no InGame handler (e.g. a repeated
		// Identification) are ignored. Opcodes of unknown length never get
		// here: processBuffered rejects them with an error.
		return nil
	}
}

func (s *Session) handleIdentification(cfg Config, payload []byte, q *queue.Queue, w *world.World) error {
	id, err := codec.DecodeIdentification(payload)
	if err != nil {
		return err
	}
	if id.Version != codec.ProtocolVersion {
		s.Disconnect(fmt.Sprintf("Protocol version mismatch (server is %#x)", codec.ProtocolVersion))
		s.Active = false
		return nil
	}

	s.Name = strings.TrimRight(id.Name, " ")
	s.Authed = true
	s.State = StateInGame

	if err := codec.WriteFrame(s.conn, codec.EncodeIdentification(codec.ProtocolVersion, cfg.ServerName, cfg.ServerMOTD, operatorFlag)); err != nil {
		s.Active = false
		return nil
	}

	if err := w.SendTo(s.conn); err != nil {
		s.Active = false
		return nil
	}

	x, y, z := w.SpawningCenter()
	s.Pose = Pose{X: x, Y: y + 51, Z: z, Yaw: 0, Pitch: 0}
	selfSpawn := codec.EncodeSpawnPlayer(codec.SelfPid, s.Name, s.Pose.X, s.Pose.Y, s.Pose.Z, s.Pose.Yaw, s.Pose.Pitch)
	if err := codec.WriteFrame(s.conn, selfSpawn); err != nil {
		s.Active = false
		return nil
	}

	q.Push(queue.SpawnPlayer(s.Pid))
	q.Push(queue.ChatMessage(s.Name + " joined the game"))
	return nil
}

func (s *Session) handleMessage(payload []byte, q *queue.Queue) error {
	msg, err := codec.DecodeMessage(payload)
	if err != nil {
		return err
	}
	text := Sanitize(strings.TrimRight(msg.Text, " "))
	q.Push(queue.ChatMessage(s.Name + ": " + text))
	return nil
}

// Sanitize applies the Classic chat escape rule: every "%" becomes "&" (the
// color-code escape), then a single trailing "&" is stripped to prevent a
// dangling escape from crashing the client.
func Sanitize(text string) string {
	escaped := strings.ReplaceAll(text, "%", "&")
	return strings.TrimSuffix(escaped, "&")
}

func (s *Session) handlePositionOrientation(payload []byte) error {
	pos, err := codec.DecodePositionOrientation(payload)
	if err != nil {
		return err
	}
	s.Pose = Pose{X: pos.X, Y: pos.Y, Z: pos.Z, Yaw: pos.Yaw, Pitch: pos.Pitch}
	return nil
}

func (s *Session) handleClientSetBlock(payload []byte, q *queue.Queue, w *world.World) error {
	set, err := codec.DecodeClientSetBlock(payload)
	if err != nil {
		return err
	}
	blockType := set.BlockType
	if set.Mode == codec.ModeDestroy {
		blockType = 0x00
	}
	w.SetBlock(set.X, set.Y, set.Z, blockType)
	q.Push(queue.SetBlock(set.X, set.Y, set.Z, blockType))
	return nil
}

// CheckLiveness attempts a best-effort Ping write; any non-would-block error
// marks the session inactive.
func (s *Session) CheckLiveness() {
	if err := s.conn.SetWriteDeadline(time.Now().Add(time.Second)); err != nil {
		s.Active = false
		return
	}
	if err := codec.WriteFrame(s.conn, codec.EncodePing()); err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return
		}
		s.Active = false
	}
}

// Disconnect sends a Kick with reason; any write error is swallowed.
func (s *Session) Disconnect(reason string) {
	_ = codec.WriteFrame(s.conn, codec.EncodeKick(reason))
}

// SpawnFor sends a SpawnPlayer to this session describing other. If w is
// non-nil, the position is overridden with the world's spawning center
// biased +51 subpixel units vertically (the conventional above-ground
// offset), rather than other's current pose.
func (s *Session) SpawnFor(other *Session, w *world.World) {
	pose := other.Pose
	if w != nil {
		x, y, z := w.SpawningCenter()
		pose = Pose{X: x, Y: y + 51, Z: z}
	}
	frame := codec.EncodeSpawnPlayer(other.Pid, other.Name, pose.X, pose.Y, pose.Z, pose.Yaw, pose.Pitch)
	if err := codec.WriteFrame(s.conn, frame); err != nil {
		log.Printf("session %s: spawn_for write failed: %v", s.CorrelationID, err)
	}
}

// BroadcastPosition sends a PositionOrientation to this session describing
// other's current pose.
func (s *Session) BroadcastPosition(other *Session) {
	frame := codec.EncodePositionOrientation(other.Pid, other.Pose.X, other.Pose.Y, other.Pose.Z, other.Pose.Yaw, other.Pose.Pitch)
	_ = codec.WriteFrame(s.conn, frame)
}

// Send writes a pre-built frame to this session, swallowing write errors
// (used by the Server's queue-drain broadcast handlers).
func (s *Session) Send(f codec.Frame) {
	_ = codec.WriteFrame(s.conn, f)
}
