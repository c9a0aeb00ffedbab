package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Codec reads frames from one target connection and decodes them into
// Commands. It owns a single reusable buffer, grown on demand, so a long
// session handling thousands of frames does not allocate per frame.
type Codec struct {
	r   io.Reader
	buf []byte
}

// NewCodec wraps r. Callers typically pass a *bufio.Reader already sized
// for the socket; Codec itself buffers only the current frame's payload.
func NewCodec(r io.Reader) *Codec {
	return &Codec{r: r, buf: make([]byte, initialBufferSize)}
}

// ReadCommand reads one length-prefixed frame and decodes its command. It
// returns ErrInvalidData (wrapped) for any malformed frame, including a
// length prefix beyond MaxFrameSize.
func (c *Codec) ReadCommand() (Command, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(c.r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: frame length %d exceeds max %d", ErrInvalidData, n, MaxFrameSize)
	}
	if cap(c.buf) < int(n) {
		c.buf = make([]byte, n)
	}
	payload := c.buf[:n]
	if _, err := io.ReadFull(c.r, payload); err != nil {
		return nil, fmt.Errorf("wire: read frame payload: %w", err)
	}
	cmd, err := decodeCommand(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return cmd, nil
}

// WriteFrame writes a pre-encoded command payload to w with its
// length-prefix header. Used by tests to build round-trip fixtures.
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
