// Package voxserver implements the listener, tick loop, player roster,
// deferred-effect queue drain, and broadcast fan-out described by the
// server component of the specification.
package voxserver

import (
	"context"
	"log"
	"net"
	"time"

	"github.com/voxelmp/coreserver/internal/audit"
	"github.com/voxelmp/coreserver/internal/clock"
	"github.com/voxelmp/coreserver/internal/codec"
	"github.com/voxelmp/coreserver/internal/config"
	"github.com/voxelmp/coreserver/internal/metrics"
	"github.com/voxelmp/coreserver/internal/queue"
	"github.com/voxelmp/coreserver/internal/session"
	"github.com/voxelmp/coreserver/internal/world"
)

// Server owns the listener, the player roster, the deferred-effect queue,
// and the World exclusively. No lock guards any of these: the single
// logical simulation thread invoking Tick is the only thing that ever
// touches them.
type Server struct {
	cfg config.Config

	listener net.Listener
	world    *world.World
	players  []*session.Session
	queue    queue.Queue
	nextPid  int8

	tickInterval time.Duration

	metrics *metrics.Metrics
	audit   *audit.Log // optional, may be nil
	clock   *clock.Clock
}

// New binds the listener (non-blocking) and constructs the World from cfg,
// either by loading an existing tagged-format file or generating a fresh
// flat map.
func New(cfg config.Config, m *metrics.Metrics) (*Server, error) {
	ln, err := net.Listen("tcp", cfg.Server.IP)
	if err != nil {
		return nil, err
	}

	var w *world.World
	switch cfg.World.Gen {
	case config.GenFromFile:
		f, err := openForRead(cfg.World.FromFilePath)
		if err != nil {
			ln.Close()
			return nil, err
		}
		defer f.Close()
		w, err = world.Load(f)
		if err != nil {
			ln.Close()
			return nil, err
		}
	default:
		fm := cfg.World.FlatMap
		if fm == nil {
			fm = &config.FlatMap{Width: 64, Height: 32, Length: 64}
		}
		w = world.New(fm.Width, fm.Height, fm.Length)
	}

	return &Server{
		cfg:          cfg,
		listener:     ln,
		world:        w,
		nextPid:      0,
		tickInterval: time.Duration(cfg.Simulation.ServerTickRateMillis) * time.Millisecond,
		metrics:      m,
		clock:        clock.New(cfg.Simulation.ServerTickRateMillis),
	}, nil
}

// Run drives the fixed-rate tick loop until ctx is cancelled. ctx is only
// ever consulted at the top of the loop, between ticks: cancellation (e.g.
// from a SIGINT/SIGTERM handler) must never touch the roster directly, since
// nothing in Server or Session is safe for concurrent access with a tick in
// flight. On cancellation, Run itself — the one goroutine that owns
// World/roster/queue — autosaves and kicks every player before returning.
func (s *Server) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			err := s.Autosave()
			s.KickPlayers("Server shutting down")
			return err
		default:
		}

		s.clock.Start()
		s.Tick()
		if s.metrics != nil {
			s.metrics.TickMSPT.Set(s.clock.MSPT())
			s.metrics.TickMaxTPS.Set(s.clock.MaxTPS())
		}
		s.clock.FinishTick()
	}
}

// SetAuditLog attaches an optional audit log; nil disables audit writes.
func (s *Server) SetAuditLog(l *audit.Log) {
	s.audit = l
}

// Addr returns the bound listener address, for tests that bind an ephemeral
// port.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close releases the listener and every connected session's socket.
func (s *Server) Close() error {
	for _, p := range s.players {
		p.Conn().Close()
	}
	return s.listener.Close()
}

// Tick runs exactly one pass: accept, prune, per-session ingress, drain
// queue (LIFO), position broadcast. Accepts and reads never wait. Socket
// writes are ordinary blocking writes; for a session they are bounded by the
// one-second write deadline that CheckLiveness sets each tick.
func (s *Server) Tick() {
	s.acceptLoop()
	s.prune()
	s.ingress()
	s.drainQueue()
	s.broadcastPositions()

	if s.metrics != nil {
		s.metrics.PlayersOnline.Set(float64(len(s.players)))
	}
}

func (s *Server) acceptLoop() {
	for {
		if tcpLn, ok := s.listener.(*net.TCPListener); ok {
			tcpLn.SetDeadline(time.Now())
		}
		conn, err := s.listener.Accept()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return
			}
			return
		}
		s.onAccept(conn)
	}
}

func (s *Server) onAccept(conn net.Conn) {
	if len(s.players)+1 > int(s.cfg.Server.MaxPlayers) {
		codec.WriteFrame(conn, codec.EncodeKick("Server is full!"))
		conn.Close()
		return
	}
	pid, ok := s.genPid()
	if !ok {
		codec.WriteFrame(conn, codec.EncodeKick("Server is full!"))
		conn.Close()
		return
	}

	sess := session.New(conn, s.cfg.Simulation.SessionByteBudget, s.tickInterval)
	sess.Pid = pid
	s.players = append(s.players, sess)
}

// genPid scans [0, 127] and returns the first id no live session currently
// holds.
func (s *Server) genPid() (int8, bool) {
	used := make(map[int8]bool, len(s.players))
	for _, p := range s.players {
		used[p.Pid] = true
	}
	for pid := 0; pid <= 127; pid++ {
		if !used[int8(pid)] {
			return int8(pid), true
		}
	}
	return 0, false
}

func (s *Server) prune() {
	live := s.players[:0]
	for _, p := range s.players {
		if p.Active {
			live = append(live, p)
			continue
		}
		p.Conn().Close()
	}
	s.players = live
}

func (s *Server) ingress() {
	cfg := session.Config{
		ServerName:        s.cfg.Server.Name,
		ServerMOTD:        s.cfg.Server.MOTD,
		SessionByteBudget: s.cfg.Simulation.SessionByteBudget,
	}
	for _, p := range s.players {
		p.CheckLiveness()
		if !p.Active {
			s.queue.Push(queue.DespawnPlayer(p.Pid))
			s.queue.Push(queue.ChatMessage(p.Name + " left the game"))
			continue
		}
		if err := p.Tick(cfg, &s.queue, s.world); err != nil {
			log.Printf("session %s (pid %d): malformed packet: %v", p.CorrelationID, p.Pid, err)
			p.Active = false
		}
	}
}

func (s *Server) sessionByPid(pid int8) *session.Session {
	for _, p := range s.players {
		if p.Pid == pid {
			return p
		}
	}
	return nil
}

func (s *Server) drainQueue() {
	s.queue.Drain(func(e queue.Effect) {
		if s.metrics != nil {
			s.metrics.QueueDrained.Inc()
		}
		switch e.Kind {
		case queue.KindSpawnPlayer:
			s.handleSpawnPlayer(e.Pid)
		case queue.KindDespawnPlayer:
			s.handleDespawnPlayer(e.Pid)
		case queue.KindChatMessage:
			s.handleChatMessage(e.Text)
		case queue.KindSetBlock:
			s.handleSetBlock(e)
		}
	})
}

func (s *Server) handleSpawnPlayer(pid int8) {
	newSess := s.sessionByPid(pid)
	if newSess == nil {
		return
	}
	for _, other := range s.players {
		if other.Pid == pid {
			continue
		}
		other.SpawnFor(newSess, s.world)
		newSess.SpawnFor(other, nil)
	}
	s.auditAppend(pid, newSess.Name, audit.EventJoin)
}

func (s *Server) handleDespawnPlayer(pid int8) {
	frame := codec.EncodeDespawnPlayer(pid)
	for _, p := range s.players {
		p.Send(frame)
	}
	name := ""
	if gone := s.sessionByPid(pid); gone != nil {
		name = gone.Name
	}
	s.auditAppend(pid, name, audit.EventLeave)
}

func (s *Server) handleChatMessage(text string) {
	frame := codec.EncodeMessage(codec.ServerChatPid, text)
	for _, p := range s.players {
		p.Send(frame)
	}
}

func (s *Server) handleSetBlock(e queue.Effect) {
	frame := codec.EncodeServerSetBlock(e.X, e.Y, e.Z, e.BlockType)
	for _, p := range s.players {
		p.Send(frame)
	}
}

func (s *Server) broadcastPositions() {
	for _, viewer := range s.players {
		for _, target := range s.players {
			if viewer.Pid == target.Pid {
				continue
			}
			viewer.BroadcastPosition(target)
		}
	}
}

func (s *Server) auditAppend(pid int8, name, kind string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(context.Background(), time.Now().Unix(), pid, name, kind); err != nil {
		log.Printf("audit: append failed: %v", err)
	}
}

// Autosave saves the world to cfg.World.Path if autosave is enabled.
func (s *Server) Autosave() error {
	if !s.cfg.World.Autosave {
		return nil
	}
	return s.SaveWorld()
}

// SaveWorld writes the world to cfg.World.Path in the canonical tagged
// format, regardless of the autosave setting.
func (s *Server) SaveWorld() error {
	f, err := createForWrite(s.cfg.World.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.world.Save(f)
}

// KickPlayers attempts a best-effort Kick on every session (errors
// swallowed), used during shutdown.
func (s *Server) KickPlayers(reason string) {
	for _, p := range s.players {
		p.Disconnect(reason)
	}
}

// PlayerCount reports the current roster size, for metrics and tests.
func (s *Server) PlayerCount() int {
	return len(s.players)
}
