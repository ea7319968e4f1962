package packet

import (
	"encoding/binary"
	"errors"
)

// ErrShortPacket reports a read past the end of the payload.
var ErrShortPacket = errors.New("short packet")

// Reader decodes little-endian fields from a frame. Byte 0 is the opcode.
// Reads past the end yield zero values and latch ErrShortPacket.
type Reader struct {
	data  []byte
	off   int
	short bool
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data, off: 1}
}

func (r *Reader) Opcode() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

// Err is ErrShortPacket once any read ran out of bytes.
func (r *Reader) Err() error {
	if r.short {
		return ErrShortPacket
	}
	return nil
}

func (r *Reader) take(n int) []byte {
	if r.off+n > len(r.data) {
		r.short = true
		r.off = len(r.data)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// ReadC reads [C], one byte.
func (r *Reader) ReadC() byte {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

// ReadH reads [H], uint16.
func (r *Reader) ReadH() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

// ReadD reads [D], int32.
func (r *Reader) ReadD() int32 {
	if b := r.take(4); b != nil {
		return int32(binary.LittleEndian.Uint32(b))
	}
	return 0
}

// ReadS reads [S], a NUL-terminated string in the wire charset. A missing
// terminator consumes the rest of the payload.
func (r *Reader) ReadS() string {
	rest := r.data[min(r.off, len(r.data)):]
	for i, c := range rest {
		if c == 0 {
			r.off += i + 1
			return decodeString(rest[:i])
		}
	}
	r.off = len(r.data)
	return decodeString(rest)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}
