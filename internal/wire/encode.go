package wire

import (
	"bytes"
	"encoding/binary"
	"math"
)

// encoder accumulates a command payload. Every primitive write is
// infallible (bytes.Buffer never errors), which keeps the command Encode
// methods below free of error returns.
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) u8(v uint8)   { e.buf.WriteByte(v) }
func (e *encoder) bool(v bool)  { if v { e.u8(1) } else { e.u8(0) } }

func (e *encoder) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) i64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	e.buf.Write(b[:])
}

func (e *encoder) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) f64(v float64) {
	e.u64(math.Float64bits(v))
}

func (e *encoder) bytesRaw(b []byte) {
	e.u32(uint32(len(b)))
	e.buf.Write(b)
}

func (e *encoder) str(s string) {
	e.bytesRaw([]byte(s))
}

func (e *encoder) optStr(s *string) {
	if s == nil {
		e.u8(0)
		return
	}
	e.u8(1)
	e.str(*s)
}

func (e *encoder) optU32(v *uint32) {
	if v == nil {
		e.u8(0)
		return
	}
	e.u8(1)
	e.u32(*v)
}

func (e *encoder) spanID(s SpanID) {
	e.u32(s.ID)
	e.u32(s.Instance)
}

func (e *encoder) optSpanID(s *SpanID) {
	if s == nil {
		e.u8(0)
		return
	}
	e.u8(1)
	e.spanID(*s)
}

func (e *encoder) level(l Level) {
	e.u8(uint8(l))
}

func (e *encoder) duration(d Duration) {
	e.u32(d.Seconds)
	e.u32(d.Nanos)
}

func (e *encoder) metadata(m Metadata) {
	e.str(m.Name)
	e.str(m.Target)
	e.level(m.Level)
	e.optStr(m.Module)
	e.optStr(m.File)
	e.optU32(m.Line)
}

func (e *encoder) value(v Value) {
	e.u8(uint8(v.Kind))
	switch v.Kind {
	case ValueFloat:
		e.f64(v.F)
	case ValueSigned:
		e.i64(v.I)
	case ValueUnsigned:
		e.u64(v.U)
	case ValueString:
		e.str(v.S)
	case ValueBool:
		e.bool(v.B)
	}
}

func (e *encoder) valueSet(vs ValueSet) {
	e.u32(uint32(len(vs)))
	for _, p := range vs {
		e.str(p.Key)
		e.value(p.Value)
	}
}

func (e *encoder) targetInfo(t TargetInfo) {
	e.str(t.OS)
	e.str(t.Family)
	e.str(t.Arch)
}

func (e *encoder) optCPUInfo(c *CPUInfo) {
	if c == nil {
		e.u8(0)
		return
	}
	e.u8(1)
	e.str(c.Name)
	e.u32(c.CoreCount)
}

// EncodeCommand serializes cmd into a frame payload (kind tag followed by
// its fields), suitable for passing to WriteFrame.
func EncodeCommand(cmd Command) []byte {
	var e encoder
	e.u8(uint8(cmd.Kind()))
	switch c := cmd.(type) {
	case SpanAllocCmd:
		e.u32(c.ID)
		e.metadata(c.Metadata)
	case SpanInitCmd:
		e.spanID(c.Span)
		e.optSpanID(c.Parent)
		e.optStr(c.Message)
		e.valueSet(c.Values)
	case SpanFollowsCmd:
		e.spanID(c.Span)
		e.spanID(c.Follows)
	case SpanValuesCmd:
		e.spanID(c.Span)
		e.optStr(c.Message)
		e.valueSet(c.Values)
	case EventCmd:
		e.optSpanID(c.Span)
		e.metadata(c.Metadata)
		e.i64(c.TimeUnixSeconds)
		e.optStr(c.Message)
		e.valueSet(c.Values)
	case SpanEnterCmd:
		e.spanID(c.Span)
	case SpanExitCmd:
		e.spanID(c.Span)
		e.duration(c.Duration)
	case SpanFreeCmd:
		e.spanID(c.Span)
	case ProjectCmd:
		e.str(c.AppName)
		e.str(c.Name)
		e.str(c.Version)
		e.str(c.CommandLine)
		e.targetInfo(c.Target)
		e.optCPUInfo(c.CPU)
	case TerminateCmd:
		// no fields
	}
	return e.buf.Bytes()
}
