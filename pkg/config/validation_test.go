package config

import "testing"

func TestValidateValidConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(&cfg); err != nil {
		t.Errorf("Validate() on DefaultConfig() = %v, want nil", err)
	}
}

func TestValidateMissingDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = ""
	if err := Validate(&cfg); err == nil {
		t.Error("Validate() with empty DataDir should fail")
	}
}

func TestValidateInvalidLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "VERBOSE"
	if err := Validate(&cfg); err == nil {
		t.Error("Validate() with an unrecognized log level should fail")
	}
}

func TestValidateInvalidSampleRate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Telemetry.SampleRate = 1.5
	if err := Validate(&cfg); err == nil {
		t.Error("Validate() with SampleRate > 1 should fail")
	}
}

func TestValidateInvalidPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.ListenDefaultPort = 70000
	if err := Validate(&cfg); err == nil {
		t.Error("Validate() with an out-of-range port should fail")
	}
}
