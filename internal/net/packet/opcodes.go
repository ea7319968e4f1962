package packet

// Client opcodes.
const (
	C_OPCODE_LOGIN  byte = 1 // account\0 password\0
	C_OPCODE_WALK   byte = 2 // [D x][D y][C running]
	C_OPCODE_CHAT   byte = 3 // text\0
	C_OPCODE_QUIT   byte = 4
	C_OPCODE_ATTACK byte = 5 // [D npc object id]
	C_OPCODE_BUY    byte = 6 // [D shop id][D item id]
)

// Server opcodes.
const (
	S_OPCODE_LOGIN_RESULT byte = 100 // [C code][D charID][D x][D y][H map]
	S_OPCODE_UPDATE       byte = 101 // per-tick world view, see update.Renderer
	S_OPCODE_MESSAGE      byte = 102 // text\0
)

// Login result codes.
const (
	LoginOK          byte = 0
	LoginBadPassword byte = 1
	LoginBanned      byte = 2
	LoginAlreadyIn   byte = 3
	LoginWorldFull   byte = 4
	LoginServerError byte = 5
)
