package codec

import (
	"bytes"
	"fmt"
	"io"
)

// Frame is an encoded packet ready to write: one opcode byte followed by its
// fixed payload. Unlike a length-prefixed protocol, the payload length is
// never written on the wire — it is implied entirely by Op.
type Frame struct {
	Op      Opcode
	Payload []byte
}

// Build constructs a Frame by running fn against a scratch buffer, the same
// builder-closure pattern used throughout this codebase for packet assembly.
func Build(op Opcode, fn func(w *bytes.Buffer)) Frame {
	var buf bytes.Buffer
	fn(&buf)
	return Frame{Op: op, Payload: buf.Bytes()}
}

// WriteFrame writes the opcode byte and payload verbatim.
func WriteFrame(w io.Writer, f Frame) error {
	if err := WriteByte(w, byte(f.Op)); err != nil {
		return err
	}
	_, err := w.Write(f.Payload)
	return err
}

// ReadOpcode reads the single leading opcode byte of the next frame.
func ReadOpcode(r io.Reader) (Opcode, error) {
	b, err := ReadByte(r)
	return Opcode(b), err
}

// payloadLen returns the fixed payload length for an opcode, or an error for
// unknown/unsupported opcodes. Only opcodes the server must decode from the
// wire (client→server directions) are included here.
func payloadLen(op Opcode) (int, bool) {
	switch op {
	case OpIdentification:
		return 1 + StringLength + StringLength + 1, true
	case OpPing:
		return 0, true
	case OpClientSetBlock:
		return 2 + 2 + 2 + 1 + 1, true
	case OpPositionOrientation:
		return 1 + 2 + 2 + 2 + 1 + 1, true
	case OpMessage:
		return 1 + StringLength, true
	default:
		return 0, false
	}
}

// ReadInboundFrame reads one opcode + its fixed payload, for opcodes that can
// legally arrive from a client. Unknown opcodes return an error so the caller
// can decide whether to ignore or disconnect.
func ReadInboundFrame(r io.Reader) (Frame, error) {
	op, err := ReadOpcode(r)
	if err != nil {
		return Frame{}, err
	}
	n, ok := payloadLen(op)
	if !ok {
		return Frame{}, fmt.Errorf("codec: opcode %#x has no known inbound payload length", byte(op))
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, err
	}
	return Frame{Op: op, Payload: payload}, nil
}

// Identification is the decoded payload of an Identification frame.
type Identification struct {
	Version byte
	Name    string
	Key     string
	Unused  byte
}

// DecodeIdentification parses an Identification frame payload.
func DecodeIdentification(payload []byte) (Identification, error) {
	r := bytes.NewReader(payload)
	ver, err := ReadByte(r)
	if err != nil {
		return Identification{}, err
	}
	name, err := ReadString(r)
	if err != nil {
		return Identification{}, err
	}
	key, err := ReadString(r)
	if err != nil {
		return Identification{}, err
	}
	unused, err := ReadByte(r)
	if err != nil {
		return Identification{}, err
	}
	return Identification{Version: ver, Name: name, Key: key, Unused: unused}, nil
}

// EncodeIdentification builds an Identification frame (used server→client
// for ServerInfo, and available for symmetry/tests on the client direction).
func EncodeIdentification(version byte, name, motd string, operator byte) Frame {
	return Build(OpIdentification, func(w *bytes.Buffer) {
		WriteByte(w, version)
		WriteString(w, name)
		WriteString(w, motd)
		WriteByte(w, operator)
	})
}

// ClientSetBlock is the decoded payload of a ClientSetBlock frame.
type ClientSetBlock struct {
	X, Y, Z   int16
	Mode      SetBlockMode
	BlockType byte
}

// DecodeClientSetBlock parses a ClientSetBlock frame payload.
func DecodeClientSetBlock(payload []byte) (ClientSetBlock, error) {
	r := bytes.NewReader(payload)
	x, err := ReadShort(r)
	if err != nil {
		return ClientSetBlock{}, err
	}
	y, err := ReadShort(r)
	if err != nil {
		return ClientSetBlock{}, err
	}
	z, err := ReadShort(r)
	if err != nil {
		return ClientSetBlock{}, err
	}
	mode, err := ReadByte(r)
	if err != nil {
		return ClientSetBlock{}, err
	}
	blockType, err := ReadByte(r)
	if err != nil {
		return ClientSetBlock{}, err
	}
	return ClientSetBlock{X: x, Y: y, Z: z, Mode: SetBlockMode(mode), BlockType: blockType}, nil
}

// EncodeServerSetBlock builds a ServerSetBlock frame.
func EncodeServerSetBlock(x, y, z int16, blockType byte) Frame {
	return Build(OpServerSetBlock, func(w *bytes.Buffer) {
		WriteShort(w, x)
		WriteShort(w, y)
		WriteShort(w, z)
		WriteByte(w, blockType)
	})
}

// PositionOrientation is the decoded payload of a PositionOrientation frame.
type PositionOrientation struct {
	Pid        int8
	X, Y, Z    int16
	Yaw, Pitch byte
}

// DecodePositionOrientation parses a PositionOrientation frame payload.
func DecodePositionOrientation(payload []byte) (PositionOrientation, error) {
	r := bytes.NewReader(payload)
	pid, err := ReadSByte(r)
	if err != nil {
		return PositionOrientation{}, err
	}
	x, err := ReadShort(r)
	if err != nil {
		return PositionOrientation{}, err
	}
	y, err := ReadShort(r)
	if err != nil {
		return PositionOrientation{}, err
	}
	z, err := ReadShort(r)
	if err != nil {
		return PositionOrientation{}, err
	}
	yaw, err := ReadByte(r)
	if err != nil {
		return PositionOrientation{}, err
	}
	pitch, err := ReadByte(r)
	if err != nil {
		return PositionOrientation{}, err
	}
	return PositionOrientation{Pid: pid, X: x, Y: y, Z: z, Yaw: yaw, Pitch: pitch}, nil
}

// EncodePositionOrientation builds a PositionOrientation frame describing pid
// at the given pose (server→client direction: broadcasting another player).
func EncodePositionOrientation(pid int8, x, y, z int16, yaw, pitch byte) Frame {
	return Build(OpPositionOrientation, func(w *bytes.Buffer) {
		WriteSByte(w, pid)
		WriteShort(w, x)
		WriteShort(w, y)
		WriteShort(w, z)
		WriteByte(w, yaw)
		WriteByte(w, pitch)
	})
}

// EncodeSpawnPlayer builds a SpawnPlayer frame.
func EncodeSpawnPlayer(pid int8, name string, x, y, z int16, yaw, pitch byte) Frame {
	return Build(OpSpawnPlayer, func(w *bytes.Buffer) {
		WriteSByte(w, pid)
		WriteString(w, name)
		WriteShort(w, x)
		WriteShort(w, y)
		WriteShort(w, z)
		WriteByte(w, yaw)
		WriteByte(w, pitch)
	})
}

// EncodeDespawnPlayer builds a DespawnPlayer frame.
func EncodeDespawnPlayer(pid int8) Frame {
	return Build(OpDespawnPlayer, func(w *bytes.Buffer) {
		WriteSByte(w, pid)
	})
}

// Message is the decoded payload of a Message frame.
type Message struct {
	Pid  int8
	Text string
}

// DecodeMessage parses a Message frame payload.
func DecodeMessage(payload []byte) (Message, error) {
	r := bytes.NewReader(payload)
	pid, err := ReadSByte(r)
	if err != nil {
		return Message{}, err
	}
	text, err := ReadString(r)
	if err != nil {
		return Message{}, err
	}
	return Message{Pid: pid, Text: text}, nil
}

// EncodeMessage builds a Message frame.
func EncodeMessage(pid int8, text string) Frame {
	return Build(OpMessage, func(w *bytes.Buffer) {
		WriteSByte(w, pid)
		WriteString(w, text)
	})
}

// EncodeKick builds a Kick frame.
func EncodeKick(reason string) Frame {
	return Build(OpKick, func(w *bytes.Buffer) {
		WriteString(w, reason)
	})
}

// EncodePing builds an empty-payload Ping frame.
func EncodePing() Frame {
	return Frame{Op: OpPing}
}

// EncodeLevelInit builds an empty-payload LevelInit frame.
func EncodeLevelInit() Frame {
	return Frame{Op: OpLevelInit}
}

// EncodeLevelChunk builds a LevelChunk frame. data must be at most
// LevelChunkPayload bytes; the remainder is zero-padded.
func EncodeLevelChunk(data []byte, percent byte) Frame {
	if len(data) > LevelChunkPayload {
		panic("codec: LevelChunk data exceeds 1024 bytes")
	}
	return Build(OpLevelChunk, func(w *bytes.Buffer) {
		WriteShort(w, int16(len(data)))
		var padded [LevelChunkPayload]byte
		copy(padded[:], data)
		w.Write(padded[:])
		WriteByte(w, percent)
	})
}

// EncodeLevelFinal builds a LevelFinal frame.
func EncodeLevelFinal(w, h, l int16) Frame {
	return Build(OpLevelFinal, func(buf *bytes.Buffer) {
		WriteShort(buf, w)
		WriteShort(buf, h)
		WriteShort(buf, l)
	})
}

// EncodeUpdateUserType builds an UpdateUserType frame.
func EncodeUpdateUserType(userType byte) Frame {
	return Build(OpUpdateUserType, func(w *bytes.Buffer) {
		WriteByte(w, userType)
	})
}
