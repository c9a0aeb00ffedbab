package wire

import (
	"bytes"
	"reflect"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }
func u32Ptr(v uint32) *uint32 { return &v }

func roundTrip(t *testing.T, cmd Command) Command {
	t.Helper()
	payload := EncodeCommand(cmd)

	var buf bytes.Buffer
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	c := NewCodec(&buf)
	got, err := c.ReadCommand()
	if err != nil {
		t.Fatalf("ReadCommand: %v", err)
	}
	return got
}

func TestCommandRoundTrip(t *testing.T) {
	line := uint32(42)
	cases := []Command{
		SpanAllocCmd{
			ID: 7,
			Metadata: Metadata{
				Name:   "render_frame",
				Target: "myapp::render",
				Level:  LevelInfo,
				Module: strPtr("render"),
				File:   strPtr("render.cpp"),
				Line:   &line,
			},
		},
		SpanInitCmd{
			Span:    SpanID{ID: 7, Instance: 1},
			Parent:  &SpanID{ID: 3, Instance: 1},
			Message: strPtr("starting"),
			Values: ValueSet{
				{Key: "width", Value: UnsignedValue(1920)},
				{Key: "ratio", Value: FloatValue(1.5)},
			},
		},
		SpanFollowsCmd{Span: SpanID{ID: 7, Instance: 1}, Follows: SpanID{ID: 2, Instance: 4}},
		SpanValuesCmd{
			Span:   SpanID{ID: 7, Instance: 1},
			Values: ValueSet{{Key: "ok", Value: BoolValue(true)}},
		},
		EventCmd{
			Span:            &SpanID{ID: 7, Instance: 1},
			Metadata:        Metadata{Name: "warn_overrun", Target: "myapp::render", Level: LevelWarning},
			TimeUnixSeconds: 1700000000,
			Message:         strPtr("frame took too long"),
			Values:          ValueSet{{Key: "frame", Value: SignedValue(-1)}},
		},
		EventCmd{
			Span:            nil,
			Metadata:        Metadata{Name: "startup", Target: "myapp", Level: LevelInfo},
			TimeUnixSeconds: 1700000000,
		},
		SpanEnterCmd{Span: SpanID{ID: 7, Instance: 1}},
		SpanExitCmd{Span: SpanID{ID: 7, Instance: 1}, Duration: DurationFromStd(1500 * time.Millisecond)},
		SpanFreeCmd{Span: SpanID{ID: 7, Instance: 1}},
		ProjectCmd{
			AppName:     "myapp",
			Name:        "myapp",
			Version:     "1.2.3",
			CommandLine: "myapp --flag",
			Target:      TargetInfo{OS: "linux", Family: "unix", Arch: "x86_64"},
			CPU:         &CPUInfo{Name: "Ryzen 9", CoreCount: 16},
		},
		ProjectCmd{
			AppName: "myapp",
			Target:  TargetInfo{OS: "linux", Family: "unix", Arch: "x86_64"},
		},
		TerminateCmd{},
	}

	for _, want := range cases {
		got := roundTrip(t, want)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("round trip %s: got %#v, want %#v", want.Kind(), got, want)
		}
	}
}

func TestReadCommandRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, make([]byte, 0)); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	// Overwrite the length prefix with a value beyond MaxFrameSize.
	raw := buf.Bytes()
	raw[0], raw[1], raw[2], raw[3] = 0xff, 0xff, 0xff, 0xff

	c := NewCodec(bytes.NewReader(raw))
	if _, err := c.ReadCommand(); err == nil {
		t.Fatal("ReadCommand: expected error for oversized frame, got nil")
	}
}

func TestReadCommandRejectsTruncatedFrame(t *testing.T) {
	payload := EncodeCommand(SpanFreeCmd{Span: SpanID{ID: 1, Instance: 1}})
	var buf bytes.Buffer
	_ = WriteFrame(&buf, payload)
	truncated := buf.Bytes()[:buf.Len()-2]

	c := NewCodec(bytes.NewReader(truncated))
	if _, err := c.ReadCommand(); err == nil {
		t.Fatal("ReadCommand: expected error for truncated frame, got nil")
	}
}

func TestReadCommandReusesBuffer(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteFrame(&buf, EncodeCommand(TerminateCmd{}))
	_ = WriteFrame(&buf, EncodeCommand(SpanFreeCmd{Span: SpanID{ID: 9, Instance: 2}}))

	c := NewCodec(&buf)
	first, err := c.ReadCommand()
	if err != nil {
		t.Fatalf("ReadCommand #1: %v", err)
	}
	if first.Kind() != KindTerminate {
		t.Fatalf("first command kind = %v, want Terminate", first.Kind())
	}
	second, err := c.ReadCommand()
	if err != nil {
		t.Fatalf("ReadCommand #2: %v", err)
	}
	want := SpanFreeCmd{Span: SpanID{ID: 9, Instance: 2}}
	if !reflect.DeepEqual(second, want) {
		t.Fatalf("second command = %#v, want %#v", second, want)
	}
}
