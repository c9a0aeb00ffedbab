package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// decoder reads sequentially from a frame payload already in memory. Every
// read method returns an error on truncation so decodeCommand can report a
// single wrapped ErrInvalidData without per-field plumbing.
type decoder struct {
	b   []byte
	pos int
}

func (d *decoder) need(n int) error {
	if d.pos+n > len(d.b) {
		return fmt.Errorf("truncated frame: need %d bytes at offset %d, have %d", n, d.pos, len(d.b))
	}
	return nil
}

func (d *decoder) u8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.b[d.pos]
	d.pos++
	return v, nil
}

func (d *decoder) boolean() (bool, error) {
	v, err := d.u8()
	return v != 0, err
}

func (d *decoder) u32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.b[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *decoder) i64() (int64, error) {
	v, err := d.u64()
	return int64(v), err
}

func (d *decoder) u64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(d.b[d.pos:])
	d.pos += 8
	return v, nil
}

func (d *decoder) f64() (float64, error) {
	v, err := d.u64()
	return math.Float64frombits(v), err
}

func (d *decoder) bytesRaw() ([]byte, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	if err := d.need(int(n)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, d.b[d.pos:d.pos+int(n)])
	d.pos += int(n)
	return out, nil
}

func (d *decoder) str() (string, error) {
	b, err := d.bytesRaw()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) optStr() (*string, error) {
	present, err := d.boolean()
	if err != nil || !present {
		return nil, err
	}
	s, err := d.str()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *decoder) optU32() (*uint32, error) {
	present, err := d.boolean()
	if err != nil || !present {
		return nil, err
	}
	v, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (d *decoder) spanID() (SpanID, error) {
	id, err := d.u32()
	if err != nil {
		return SpanID{}, err
	}
	inst, err := d.u32()
	if err != nil {
		return SpanID{}, err
	}
	return SpanID{ID: id, Instance: inst}, nil
}

func (d *decoder) optSpanID() (*SpanID, error) {
	present, err := d.boolean()
	if err != nil || !present {
		return nil, err
	}
	s, err := d.spanID()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *decoder) level() (Level, error) {
	v, err := d.u8()
	return Level(v), err
}

func (d *decoder) duration() (Duration, error) {
	sec, err := d.u32()
	if err != nil {
		return Duration{}, err
	}
	nanos, err := d.u32()
	if err != nil {
		return Duration{}, err
	}
	return Duration{Seconds: sec, Nanos: nanos}, nil
}

func (d *decoder) metadata() (Metadata, error) {
	var m Metadata
	var err error
	if m.Name, err = d.str(); err != nil {
		return m, err
	}
	if m.Target, err = d.str(); err != nil {
		return m, err
	}
	if m.Level, err = d.level(); err != nil {
		return m, err
	}
	if m.Module, err = d.optStr(); err != nil {
		return m, err
	}
	if m.File, err = d.optStr(); err != nil {
		return m, err
	}
	if m.Line, err = d.optU32(); err != nil {
		return m, err
	}
	return m, nil
}

func (d *decoder) value() (Value, error) {
	kind, err := d.u8()
	if err != nil {
		return Value{}, err
	}
	switch ValueKind(kind) {
	case ValueFloat:
		v, err := d.f64()
		return Value{Kind: ValueFloat, F: v}, err
	case ValueSigned:
		v, err := d.i64()
		return Value{Kind: ValueSigned, I: v}, err
	case ValueUnsigned:
		v, err := d.u64()
		return Value{Kind: ValueUnsigned, U: v}, err
	case ValueString:
		v, err := d.str()
		return Value{Kind: ValueString, S: v}, err
	case ValueBool:
		v, err := d.boolean()
		return Value{Kind: ValueBool, B: v}, err
	default:
		return Value{}, fmt.Errorf("unknown value kind %d", kind)
	}
}

func (d *decoder) valueSet() (ValueSet, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	if int(n) > len(d.b)-d.pos {
		return nil, fmt.Errorf("value set count %d implausible for remaining %d bytes", n, len(d.b)-d.pos)
	}
	if n == 0 {
		return nil, nil
	}
	vs := make(ValueSet, 0, n)
	for i := uint32(0); i < n; i++ {
		key, err := d.str()
		if err != nil {
			return nil, err
		}
		val, err := d.value()
		if err != nil {
			return nil, err
		}
		vs = append(vs, ValuePair{Key: key, Value: val})
	}
	return vs, nil
}

func (d *decoder) targetInfo() (TargetInfo, error) {
	var t TargetInfo
	var err error
	if t.OS, err = d.str(); err != nil {
		return t, err
	}
	if t.Family, err = d.str(); err != nil {
		return t, err
	}
	if t.Arch, err = d.str(); err != nil {
		return t, err
	}
	return t, nil
}

func (d *decoder) optCPUInfo() (*CPUInfo, error) {
	present, err := d.boolean()
	if err != nil || !present {
		return nil, err
	}
	var c CPUInfo
	if c.Name, err = d.str(); err != nil {
		return nil, err
	}
	if c.CoreCount, err = d.u32(); err != nil {
		return nil, err
	}
	return &c, nil
}

// decodeCommand parses a full frame payload into its command, dispatching
// on the leading kind byte.
func decodeCommand(payload []byte) (Command, error) {
	d := &decoder{b: payload}
	kind, err := d.u8()
	if err != nil {
		return nil, err
	}

	switch CommandKind(kind) {
	case KindSpanAlloc:
		id, err := d.u32()
		if err != nil {
			return nil, err
		}
		md, err := d.metadata()
		if err != nil {
			return nil, err
		}
		return SpanAllocCmd{ID: id, Metadata: md}, nil

	case KindSpanInit:
		span, err := d.spanID()
		if err != nil {
			return nil, err
		}
		parent, err := d.optSpanID()
		if err != nil {
			return nil, err
		}
		msg, err := d.optStr()
		if err != nil {
			return nil, err
		}
		vs, err := d.valueSet()
		if err != nil {
			return nil, err
		}
		return SpanInitCmd{Span: span, Parent: parent, Message: msg, Values: vs}, nil

	case KindSpanFollows:
		span, err := d.spanID()
		if err != nil {
			return nil, err
		}
		follows, err := d.spanID()
		if err != nil {
			return nil, err
		}
		return SpanFollowsCmd{Span: span, Follows: follows}, nil

	case KindSpanValues:
		span, err := d.spanID()
		if err != nil {
			return nil, err
		}
		msg, err := d.optStr()
		if err != nil {
			return nil, err
		}
		vs, err := d.valueSet()
		if err != nil {
			return nil, err
		}
		return SpanValuesCmd{Span: span, Message: msg, Values: vs}, nil

	case KindEvent:
		span, err := d.optSpanID()
		if err != nil {
			return nil, err
		}
		md, err := d.metadata()
		if err != nil {
			return nil, err
		}
		ts, err := d.i64()
		if err != nil {
			return nil, err
		}
		msg, err := d.optStr()
		if err != nil {
			return nil, err
		}
		vs, err := d.valueSet()
		if err != nil {
			return nil, err
		}
		return EventCmd{Span: span, Metadata: md, TimeUnixSeconds: ts, Message: msg, Values: vs}, nil

	case KindSpanEnter:
		span, err := d.spanID()
		if err != nil {
			return nil, err
		}
		return SpanEnterCmd{Span: span}, nil

	case KindSpanExit:
		span, err := d.spanID()
		if err != nil {
			return nil, err
		}
		dur, err := d.duration()
		if err != nil {
			return nil, err
		}
		return SpanExitCmd{Span: span, Duration: dur}, nil

	case KindSpanFree:
		span, err := d.spanID()
		if err != nil {
			return nil, err
		}
		return SpanFreeCmd{Span: span}, nil

	case KindProject:
		appName, err := d.str()
		if err != nil {
			return nil, err
		}
		name, err := d.str()
		if err != nil {
			return nil, err
		}
		version, err := d.str()
		if err != nil {
			return nil, err
		}
		cmdLine, err := d.str()
		if err != nil {
			return nil, err
		}
		target, err := d.targetInfo()
		if err != nil {
			return nil, err
		}
		cpu, err := d.optCPUInfo()
		if err != nil {
			return nil, err
		}
		return ProjectCmd{AppName: appName, Name: name, Version: version, CommandLine: cmdLine, Target: target, CPU: cpu}, nil

	case KindTerminate:
		return TerminateCmd{}, nil

	default:
		return nil, fmt.Errorf("unknown command kind %d", kind)
	}
}
