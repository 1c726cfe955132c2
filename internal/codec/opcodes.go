package codec

// Opcode identifies a Classic packet frame. The payload length for every
// opcode is fixed and known purely from the opcode value.
type Opcode byte

const (
	OpIdentification    Opcode = 0x00
	OpPing              Opcode = 0x01
	OpLevelInit          Opcode = 0x02
	OpLevelChunk         Opcode = 0x03
	OpLevelFinal         Opcode = 0x04
	OpClientSetBlock     Opcode = 0x05
	OpServerSetBlock     Opcode = 0x06
	OpSpawnPlayer        Opcode = 0x07
	OpPositionOrientation Opcode = 0x08
	OpDespawnPlayer      Opcode = 0x0C
	OpMessage            Opcode = 0x0D
	OpKick               Opcode = 0x0E
	OpUpdateUserType     Opcode = 0x0F
)

// LevelChunkPayload is the fixed size of a LevelChunk frame's raw data field.
const LevelChunkPayload = 1024

// SetBlockMode distinguishes a ClientSetBlock destroy from a place.
type SetBlockMode byte

const (
	ModeDestroy SetBlockMode = 0x00
	ModePlace   SetBlockMode = 0x01
)

// SelfPid is the conventional pid clients send in PositionOrientation to mean
// "myself", and the pid the server uses in a SpawnPlayer describing the
// client to itself.
const SelfPid int8 = -1

// ServerChatPid is the pid used for server-originated chat Messages.
const ServerChatPid int8 = 0
