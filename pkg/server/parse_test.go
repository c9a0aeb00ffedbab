package server

import (
	"testing"
	"time"

	"github.com/marmos91/tracebroker/internal/operator"
	"github.com/marmos91/tracebroker/internal/session"
)

func TestFromParsedLineConnect(t *testing.T) {
	cmd, err := FromParsedLine(operator.ParseLine("connect 127.0.0.1:5000"), session.Config{})
	if err != nil {
		t.Fatalf("FromParsedLine: %v", err)
	}
	if cmd.Kind != CmdConnect || cmd.Addr != "127.0.0.1:5000" {
		t.Errorf("cmd = %+v, want Connect to 127.0.0.1:5000", cmd)
	}
}

func TestFromParsedLineConnectRequiresAddress(t *testing.T) {
	if _, err := FromParsedLine(operator.ParseLine("connect"), session.Config{}); err == nil {
		t.Error("expected an error for connect with no address")
	}
}

func TestFromParsedLineKick(t *testing.T) {
	cmd, err := FromParsedLine(operator.ParseLine("kick 3"), session.Config{})
	if err != nil {
		t.Fatalf("FromParsedLine: %v", err)
	}
	if cmd.Kind != CmdKick || cmd.Index != 3 {
		t.Errorf("cmd = %+v, want Kick(3)", cmd)
	}
}

func TestFromParsedLineConfigMergesOntoCurrent(t *testing.T) {
	cur := session.Config{MaxFDCount: 2, Inheritance: true, RefreshIntervalMS: 500}
	cmd, err := FromParsedLine(operator.ParseLine("config max_fd_count=8"), cur)
	if err != nil {
		t.Fatalf("FromParsedLine: %v", err)
	}
	if cmd.Config.MaxFDCount != 8 {
		t.Errorf("MaxFDCount = %d, want 8", cmd.Config.MaxFDCount)
	}
	if cmd.Config.Inheritance != true || cmd.Config.RefreshIntervalMS != 500 {
		t.Errorf("config = %+v, want untouched fields preserved from current config", cmd.Config)
	}
}

func TestFromParsedLineConfigSetsConnectRetryAndWAL(t *testing.T) {
	cmd, err := FromParsedLine(operator.ParseLine("config connect_retries=3 connect_backoff_ms=250 wal_index=true"), session.Config{})
	if err != nil {
		t.Fatalf("FromParsedLine: %v", err)
	}
	if cmd.Config.ConnectRetries != 3 {
		t.Errorf("ConnectRetries = %d, want 3", cmd.Config.ConnectRetries)
	}
	if cmd.Config.ConnectBackoff != 250*time.Millisecond {
		t.Errorf("ConnectBackoff = %v, want 250ms", cmd.Config.ConnectBackoff)
	}
	if !cmd.Config.EnableWALIndex {
		t.Error("EnableWALIndex = false, want true")
	}
}

func TestFromParsedLineUnknownCommand(t *testing.T) {
	_, err := FromParsedLine(operator.ParseLine("frobnicate"), session.Config{})
	if _, ok := err.(operator.ErrUnknownCommand); !ok {
		t.Errorf("err = %v, want ErrUnknownCommand", err)
	}
}

func TestParseLineSplitsPositionalAndKeyValue(t *testing.T) {
	p := operator.ParseLine("config max_fd_count=8 inheritance=false refresh_interval=100")
	if p.Name != "config" {
		t.Errorf("Name = %q, want config", p.Name)
	}
	if len(p.Positional) != 0 {
		t.Errorf("Positional = %v, want none", p.Positional)
	}
	if p.KeyValue["max_fd_count"] != "8" || p.KeyValue["inheritance"] != "false" || p.KeyValue["refresh_interval"] != "100" {
		t.Errorf("KeyValue = %v", p.KeyValue)
	}
}
