// Package ccscript implements the scenario-script (CC) container format:
// header/body framing, the text-record scanner, and the extraction and
// injection engine described by the translation-patching toolchain this
// module supports.
package ccscript

import (
	"encoding/binary"
	"errors"

	"github.com/aikika/ccpatch/pkg/lzss"
)

// HeaderSize is the length of the opaque prefix kept verbatim across
// compress/decompress: bytes [0x00,0x14) are fully opaque, [0x14,0x16) hold
// the little-endian body-length field, and [0x16,0x18) are opaque.
const HeaderSize = 0x18

// LengthFieldOffset is the offset of the 16-bit body-length field within
// the header. This field, together with the two opaque bytes that follow
// it at [0x16,0x18), forms the 4-byte little-endian declared size the LZSS
// layer expects at the front of its input: the [0x16,0x18) half is always
// zero on real scripts because the decompressed body never exceeds
// MaxBodySize. DeclaredBodyLength reports and SetDeclaredBodyLength
// rewrites only the low 16 bits; only 0x14 is ever observed to change on a
// real recompress, and an implementer should not assume the adjacent field
// tracks it.
const LengthFieldOffset = 0x14

// MaxBodySize is the largest a decompressed body may be.
const MaxBodySize = 0xFFFF

// ErrFileTooSmall is returned by Unframe when the raw script is shorter
// than the fixed header.
var ErrFileTooSmall = errors.New("ccscript: file smaller than header")

// ErrCorruptLZSS is returned by Unframe when the LZSS payload cannot be
// decompressed at all (currently unreachable: pkg/lzss.Decompress never
// fails on a well-formed 4-byte-prefixed stream, but the error is kept
// distinct from ErrFileTooSmall so callers can tell the two apart).
var ErrCorruptLZSS = lzss.ErrCorrupt

// Container is the in-memory form of a script file: the opaque header plus
// the decompressed body. Header always has length HeaderSize.
type Container struct {
	Header [HeaderSize]byte
	Body   []byte
}

// DeclaredBodyLength reads the little-endian length field at 0x14.
func (c *Container) DeclaredBodyLength() int {
	return int(binary.LittleEndian.Uint16(c.Header[LengthFieldOffset:]))
}

// SetDeclaredBodyLength rewrites the little-endian length field at 0x14.
// Bytes [0x16,0x18) are left untouched.
func (c *Container) SetDeclaredBodyLength(n int) {
	binary.LittleEndian.PutUint16(c.Header[LengthFieldOffset:], uint16(n))
}

// Unframe splits a raw script file into header and decompressed body.
// raw[0x14:] (which includes the 4-byte length prefix living inside the
// header) is handed to the LZSS layer as-is.
func Unframe(raw []byte) (Container, error) {
	if len(raw) < HeaderSize {
		return Container{}, ErrFileTooSmall
	}
	body, err := lzss.Decompress(raw[LengthFieldOffset:])
	if err != nil {
		return Container{}, err
	}
	var c Container
	copy(c.Header[:], raw[:HeaderSize])
	c.Body = body
	return c, nil
}

// Frame recombines a container's header and a freshly compressed body into
// a raw script file. lzss.Compress returns its own 4-byte size prefix
// ahead of the token stream, but that same 4 bytes already lives inside
// the header at [0x14,0x18); only the token stream that follows it is
// appended after the header.
func Frame(c Container) []byte {
	compressed := lzss.Compress(c.Body)
	out := make([]byte, 0, HeaderSize+len(compressed)-4)
	out = append(out, c.Header[:]...)
	out = append(out, compressed[4:]...)
	return out
}

// Decompressed renders a container as the flat header++body form: this is
// the byte layout written to a decompressed-intermediate file on disk.
func (c Container) Decompressed() []byte {
	out := make([]byte, 0, HeaderSize+len(c.Body))
	out = append(out, c.Header[:]...)
	out = append(out, c.Body...)
	return out
}

// ParseDecompressed is the inverse of Decompressed: it splits a
// decompressed-intermediate file back into header and body without
// touching the LZSS layer.
func ParseDecompressed(raw []byte) (Container, error) {
	if len(raw) < HeaderSize {
		return Container{}, ErrFileTooSmall
	}
	var c Container
	copy(c.Header[:], raw[:HeaderSize])
	c.Body = append([]byte(nil), raw[HeaderSize:]...)
	return c, nil
}
