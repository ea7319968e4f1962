package packet

import (
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// charset is the encoding of strings on the wire. UTF-8 unless configured.
var charset atomic.Pointer[encoding.Encoding]

func init() {
	var enc encoding.Encoding = unicode.UTF8
	charset.Store(&enc)
}

// SetCharset selects the wire string encoding: "utf8", "latin1" or "big5".
// Called once at boot before any session is accepted.
func SetCharset(name string) error {
	var enc encoding.Encoding
	switch strings.ToLower(name) {
	case "", "utf8", "utf-8":
		enc = unicode.UTF8
	case "latin1", "iso-8859-1":
		enc = charmap.ISO8859_1
	case "big5", "ms950":
		enc = traditionalchinese.Big5
	default:
		return fmt.Errorf("unknown charset %q", name)
	}
	charset.Store(&enc)
	return nil
}

func encodeString(s string) []byte {
	if isASCII(s) {
		return []byte(s)
	}
	b, err := (*charset.Load()).NewEncoder().Bytes([]byte(s))
	if err != nil {
		// Fallback: write raw bytes (works for pure ASCII)
		return []byte(s)
	}
	return b
}

func decodeString(raw []byte) string {
	if isASCII(string(raw)) {
		return string(raw)
	}
	b, err := (*charset.Load()).NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw) // fallback to raw bytes
	}
	return string(b)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
