package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// HelloSize is the exact, fixed size of a handshake block in bytes.
//
// Layout (40 bytes total): signature(4) + major(4) + minor(4) + patch(4) +
// pre(12) + build(12). spec.md §4.1 calls for "signature: 3 bytes" and two
// 16-byte pre/build fields, which together overshoot 40 bytes; this is the
// concrete, compile-time-fixed layout that resolves the mismatch while
// keeping every field spec.md names (see DESIGN.md).
const HelloSize = 40

// expectedSignature is compared against the first 3 bytes of the received
// signature field; the 4th byte is reserved.
var expectedSignature = [4]byte{'B', 'P', '3', 'D'}

// ProtocolVersion is the version this broker implements and requires of
// connecting targets.
var ProtocolVersion = Version{Major: 1, Minor: 0, Patch: 0}

// Version is the semantic version exchanged during the handshake.
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
	Pre   [12]byte
	Build [12]byte
}

// Hello is the 40-byte handshake block sent in both directions.
type Hello struct {
	Signature [4]byte
	Version   Version
}

// DefaultHello is the block the broker sends in response to a successful
// handshake.
func DefaultHello() Hello {
	return Hello{Signature: expectedSignature, Version: ProtocolVersion}
}

// WriteHello writes the 40-byte handshake block to w.
func WriteHello(w io.Writer, h Hello) error {
	buf := make([]byte, 0, HelloSize)
	b := bytes.NewBuffer(buf)
	b.Write(h.Signature[:])
	_ = binary.Write(b, binary.LittleEndian, h.Version.Major)
	_ = binary.Write(b, binary.LittleEndian, h.Version.Minor)
	_ = binary.Write(b, binary.LittleEndian, h.Version.Patch)
	b.Write(h.Version.Pre[:])
	b.Write(h.Version.Build[:])
	if b.Len() != HelloSize {
		return fmt.Errorf("wire: encoded hello is %d bytes, want %d", b.Len(), HelloSize)
	}
	_, err := w.Write(b.Bytes())
	return err
}

// ReadHello reads and parses the 40-byte handshake block from r.
func ReadHello(r io.Reader) (Hello, error) {
	var raw [HelloSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Hello{}, fmt.Errorf("wire: read hello: %w", err)
	}

	var h Hello
	copy(h.Signature[:], raw[0:4])
	h.Version.Major = binary.LittleEndian.Uint32(raw[4:8])
	h.Version.Minor = binary.LittleEndian.Uint32(raw[8:12])
	h.Version.Patch = binary.LittleEndian.Uint32(raw[12:16])
	copy(h.Version.Pre[:], raw[16:28])
	copy(h.Version.Build[:], raw[28:40])
	return h, nil
}

// Check validates a received Hello against what this broker expects,
// returning the mismatch classification from spec.md §4.1.
func Check(h Hello) HandshakeMismatch {
	if !bytes.Equal(h.Signature[:3], expectedSignature[:3]) {
		return HandshakeSignatureMismatch
	}
	if h.Version.Major != ProtocolVersion.Major || h.Version.Minor != ProtocolVersion.Minor {
		return HandshakeVersionMismatch
	}
	return HandshakeOK
}
